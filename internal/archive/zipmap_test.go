package archive

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/zip"
)

func buildZip(t *testing.T, names []string, contents map[string]string) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	for _, name := range names {
		fileWriter, err := writer.Create(name)
		if err != nil {
			t.Fatalf("create %q: %v", name, err)
		}
		if _, err := fileWriter.Write([]byte(contents[name])); err != nil {
			t.Fatalf("write %q: %v", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buffer.Bytes()
}

func TestOpen_EntriesInContainerOrder(t *testing.T) {
	raw := buildZip(t,
		[]string{"media/", "media/IMG-1.jpg", "WhatsApp Chat with Bob.txt", "notes.txt"},
		map[string]string{
			"media/IMG-1.jpg":            "\xff\xd8\xff",
			"WhatsApp Chat with Bob.txt": "12/5/23, 9:05 am - Alice: Hello",
			"notes.txt":                  "other",
		})

	opened, err := Open(raw)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(opened.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(opened.Entries))
	}
	if !opened.Entries[0].IsDirectory {
		t.Errorf("expected first entry to be a directory")
	}
	if len(opened.Files()) != 3 {
		t.Errorf("expected 3 file entries, got %d", len(opened.Files()))
	}

	transcript, err := opened.FindTranscript()
	if err != nil {
		t.Fatalf("FindTranscript() error = %v", err)
	}
	if transcript.Name != "WhatsApp Chat with Bob.txt" {
		t.Errorf("expected first .txt entry, got %q", transcript.Name)
	}

	attachments := opened.Attachments(transcript.Name)
	if len(attachments) != 2 || attachments[0].Name != "media/IMG-1.jpg" || attachments[1].Name != "notes.txt" {
		t.Errorf("unexpected attachments: %+v", attachments)
	}
}

func TestOpen_CorruptArchive(t *testing.T) {
	_, err := Open([]byte("definitely not a zip container"))
	if !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("expected ErrCorruptArchive, got %v", err)
	}
}

func TestFindTranscript_Missing(t *testing.T) {
	raw := buildZip(t, []string{"IMG-1.jpg"}, map[string]string{"IMG-1.jpg": "x"})
	opened, err := Open(raw)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := opened.FindTranscript(); !errors.Is(err, ErrNoTranscriptFound) {
		t.Fatalf("expected ErrNoTranscriptFound, got %v", err)
	}
}

func TestFindTranscript_UppercaseExtension(t *testing.T) {
	raw := buildZip(t, []string{"CHAT.TXT"}, map[string]string{"CHAT.TXT": "x"})
	opened, err := Open(raw)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	entry, err := opened.FindTranscript()
	if err != nil {
		t.Fatalf("FindTranscript() error = %v", err)
	}
	if string(entry.Bytes) != "x" {
		t.Errorf("unexpected transcript bytes %q", entry.Bytes)
	}
}
