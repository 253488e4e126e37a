package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	// ErrCorruptArchive is returned when the container's central directory cannot be read.
	ErrCorruptArchive = errors.New("corrupt archive")
	// ErrNoTranscriptFound is returned when the archive holds no .txt entry.
	ErrNoTranscriptFound = errors.New("no transcript found in archive")
)

// Entry is one member of the exported archive.
type Entry struct {
	Name        string
	IsDirectory bool
	Bytes       []byte
}

// Archive holds every entry of an opened export in container order.
type Archive struct {
	Entries []Entry
}

// OpenFile reads the archive at archiveFilePath into memory and opens it.
func OpenFile(archiveFilePath string) (*Archive, error) {
	raw, readErr := os.ReadFile(archiveFilePath)
	if readErr != nil {
		return nil, fmt.Errorf("read archive %q: %w", archiveFilePath, readErr)
	}
	return Open(raw)
}

// Open decompresses a deflate-based zip container held in memory.
func Open(raw []byte) (*Archive, error) {
	zipReader, openErr := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if openErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, openErr)
	}

	result := &Archive{Entries: make([]Entry, 0, len(zipReader.File))}
	for _, zipFile := range zipReader.File {
		normalizedName := filepath.ToSlash(zipFile.Name)
		if zipFile.FileInfo().IsDir() || strings.HasSuffix(normalizedName, "/") {
			result.Entries = append(result.Entries, Entry{Name: normalizedName, IsDirectory: true})
			continue
		}
		fileReader, openFileErr := zipFile.Open()
		if openFileErr != nil {
			return nil, fmt.Errorf("%w: open entry %q: %v", ErrCorruptArchive, zipFile.Name, openFileErr)
		}
		contentBytes, readErr := io.ReadAll(fileReader)
		fileReader.Close()
		if readErr != nil {
			return nil, fmt.Errorf("%w: read entry %q: %v", ErrCorruptArchive, zipFile.Name, readErr)
		}
		result.Entries = append(result.Entries, Entry{Name: normalizedName, Bytes: contentBytes})
	}
	return result, nil
}

// Files returns the non-directory entries in container order.
func (a *Archive) Files() []Entry {
	files := make([]Entry, 0, len(a.Entries))
	for _, entry := range a.Entries {
		if !entry.IsDirectory {
			files = append(files, entry)
		}
	}
	return files
}

// FindTranscript returns the first .txt entry in container order.
func (a *Archive) FindTranscript() (Entry, error) {
	for _, entry := range a.Entries {
		if entry.IsDirectory {
			continue
		}
		if strings.EqualFold(path.Ext(entry.Name), ".txt") {
			return entry, nil
		}
	}
	return Entry{}, ErrNoTranscriptFound
}

// Attachments returns every non-directory entry except the transcript.
func (a *Archive) Attachments(transcriptName string) []Entry {
	var attachments []Entry
	for _, entry := range a.Files() {
		if entry.Name == transcriptName {
			continue
		}
		attachments = append(attachments, entry)
	}
	return attachments
}
