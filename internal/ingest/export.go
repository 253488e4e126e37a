package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"chat_ingest/internal/transcript"
	"chat_ingest/internal/utils"
)

// Document is the serialized form of a conversation written to the output folder.
type Document struct {
	ID           string               `json:"id" yaml:"id"`
	Source       string               `json:"source" yaml:"source"`
	ImportedAt   time.Time            `json:"importedAt" yaml:"importedAt"`
	Transcript   string               `json:"transcript" yaml:"transcript"`
	Participants []string             `json:"participants" yaml:"participants"`
	Primary      string               `json:"primary,omitempty" yaml:"primary,omitempty"`
	Stats        transcript.Stats     `json:"stats" yaml:"stats"`
	Messages     []transcript.Message `json:"messages" yaml:"messages"`
}

// NewDocument pairs conversation metadata with the messages to write, which may be a filtered subset.
func NewDocument(conversation *Conversation, messages []transcript.Message) Document {
	return Document{
		ID:           conversation.ID,
		Source:       conversation.Source,
		ImportedAt:   conversation.ImportedAt,
		Transcript:   conversation.TranscriptName,
		Participants: conversation.Result.Participants,
		Primary:      conversation.Result.Primary,
		Stats:        conversation.Result.Stats,
		Messages:     messages,
	}
}

// Export writes <outputRoot>/<MMDDYY-HHMM>/conversation.<format> and a files/ folder
// holding every resolved attachment referenced by messages, one file per distinct content
// digest. It returns the folder written.
func Export(conversation *Conversation, messages []transcript.Message, outputRoot, format string, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	absoluteOutputRoot, absErr := filepath.Abs(outputRoot)
	if absErr != nil {
		return "", fmt.Errorf("resolve output folder: %w", absErr)
	}
	if mkErr := utils.EnsureDir(absoluteOutputRoot); mkErr != nil {
		return "", fmt.Errorf("create output folder %q: %w", absoluteOutputRoot, mkErr)
	}

	timestamps := make([]time.Time, 0, len(messages))
	for _, message := range messages {
		timestamps = append(timestamps, message.Timestamp)
	}
	baseFolder := utils.FormatDatestamp(utils.StartTime(timestamps, conversation.ImportedAt))
	targetFolder, folderErr := freeFolder(absoluteOutputRoot, baseFolder)
	if folderErr != nil {
		return "", folderErr
	}
	if mkErr := utils.EnsureDir(targetFolder); mkErr != nil {
		return "", fmt.Errorf("create output subfolder %q: %w", targetFolder, mkErr)
	}

	documentPath := filepath.Join(targetFolder, "conversation."+format)
	if writeErr := utils.WriteDocument(documentPath, format, NewDocument(conversation, messages)); writeErr != nil {
		return "", writeErr
	}

	filesFolder := filepath.Join(targetFolder, "files")
	usedNames := make(map[string]int)
	written := make(map[string]bool)
	for _, message := range messages {
		if message.Attachment == nil || !message.Attachment.Resolved() {
			continue
		}
		record := message.Attachment.Record
		contentKey := record.Digest
		if contentKey == "" {
			contentKey = "entry:" + record.Name
		}
		if written[contentKey] {
			logger.Debug("attachment content already written",
				zap.String("entry", record.Name), zap.String("digest", record.Digest))
			continue
		}
		if mkErr := utils.EnsureDir(filesFolder); mkErr != nil {
			return "", fmt.Errorf("create files subfolder %q: %w", filesFolder, mkErr)
		}
		fileName := uniqueName(usedNames, attachmentFileName(record.Name, record.Converted, record.MediaType.Extension()))
		written[contentKey] = true

		payload := record.Data
		if record.IsTextual() {
			payload = []byte(record.Text)
		}
		targetPath := filepath.Join(filesFolder, fileName)
		if writeErr := utils.WriteFile(targetPath, payload); writeErr != nil {
			logger.Error("write attachment", zap.String("entry", record.Name), zap.String("targetPath", targetPath), zap.Error(writeErr))
		}
	}
	return targetFolder, nil
}

func attachmentFileName(entryName string, converted bool, extension string) string {
	base := path.Base(entryName)
	if converted {
		base = strings.TrimSuffix(base, path.Ext(base)) + extension
	}
	return base
}

// uniqueName suffixes repeated base names with _N, comparing case-insensitively.
func uniqueName(used map[string]int, base string) string {
	key := strings.ToLower(base)
	used[key]++
	if used[key] == 1 {
		return base
	}
	extension := path.Ext(base)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(base, extension), used[key], extension)
}

func freeFolder(root, base string) (string, error) {
	candidate := filepath.Join(root, base)
	for suffix := 2; ; suffix++ {
		_, statErr := os.Stat(candidate)
		if errors.Is(statErr, fs.ErrNotExist) {
			return candidate, nil
		}
		if statErr != nil {
			return "", fmt.Errorf("inspect output folder %q: %w", candidate, statErr)
		}
		candidate = filepath.Join(root, fmt.Sprintf("%s_%d", base, suffix))
	}
}
