package ingest

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap/zaptest"

	"chat_ingest/internal/archive"
	"chat_ingest/internal/attachments"
	"chat_ingest/internal/sniff"
)

var fixedNow = time.Date(2026, time.October, 16, 15, 0, 0, 0, time.UTC)

const sampleTranscript = "12/5/23, 9:05 am - Messages to this chat are now secured\n" +
	"12/5/23, 9:06 am - Alice: Hello there\n" +
	"12/5/23, 9:07 am - Bob: IMG-20230512-WA0001.heic (file attached)\n" +
	"12/5/23, 9:08 am - Alice: Jane Doe.vcf (file attached)\n" +
	"12/5/23, 9:09 am - Bob: see you\n" +
	"tomorrow"

var heicBytes = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'h', 'e', 'i', 'c', 0x00, 0x00, 0x00, 0x00}

func buildArchive(t *testing.T, files [][2]string) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	for _, file := range files {
		fileWriter, err := writer.Create(file[0])
		if err != nil {
			t.Fatalf("create %q: %v", file[0], err)
		}
		if _, err := fileWriter.Write([]byte(file[1])); err != nil {
			t.Fatalf("write %q: %v", file[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buffer.Bytes()
}

func sampleArchive(t *testing.T) []byte {
	return buildArchive(t, [][2]string{
		{"WhatsApp Chat with Bob.txt", sampleTranscript},
		{"media/IMG-20230512-WA0001.heic", string(heicBytes)},
		{"media/Jane Doe.vcf", "BEGIN:VCARD\nFN:Jane Doe\nTEL:+1 555 0100\nEND:VCARD"},
	})
}

var fakeJPEG = attachments.TranscoderFunc(func(_ context.Context, _ []byte, _ sniff.MediaType) attachments.Outcome {
	return attachments.Converted{Data: []byte{0xFF, 0xD8, 0xFF}, MediaType: sniff.Image("jpeg")}
})

func newTestImporter(t *testing.T) *Importer {
	t.Helper()
	return NewImporter(Options{
		Workers:    2,
		Location:   time.UTC,
		Now:        func() time.Time { return fixedNow },
		Logger:     zaptest.NewLogger(t),
		Transcoder: fakeJPEG,
	})
}

func TestImport_PublishesConversation(t *testing.T) {
	importer := newTestImporter(t)

	conversation, err := importer.Import(context.Background(), "export.zip", sampleArchive(t))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if importer.Current() != conversation {
		t.Fatalf("Current() did not return the published conversation")
	}
	if conversation.ID == "" || conversation.Generation != 1 || conversation.Source != "export.zip" {
		t.Errorf("conversation metadata = %+v", conversation)
	}
	if conversation.TranscriptName != "WhatsApp Chat with Bob.txt" {
		t.Errorf("transcript = %q", conversation.TranscriptName)
	}
	if conversation.Store.Len() != 2 {
		t.Errorf("store has %d records, want 2", conversation.Store.Len())
	}

	messages := conversation.Result.Messages
	if len(messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(messages))
	}
	if !messages[0].IsSystem {
		t.Errorf("first message should be a system message: %+v", messages[0])
	}
	photo := messages[2].Attachment
	if photo == nil || !photo.Resolved() || photo.MediaType != sniff.Image("jpeg") || !photo.Record.Converted {
		t.Errorf("heic attachment = %+v", photo)
	}
	card := messages[3].Attachment
	if card == nil || card.Contact == nil || card.Contact.Name != "Jane Doe" {
		t.Errorf("vcard attachment = %+v", card)
	}
	if messages[4].Text != "see you\ntomorrow" {
		t.Errorf("continuation text = %q", messages[4].Text)
	}
	if len(conversation.Result.Participants) != 2 || conversation.Result.Primary != "Alice" {
		t.Errorf("participants = %v primary = %q", conversation.Result.Participants, conversation.Result.Primary)
	}
}

func TestImport_FatalErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		wantErr error
	}{
		{"corrupt archive", []byte("definitely not a zip"), archive.ErrCorruptArchive},
		{"no transcript", buildArchive(t, [][2]string{{"media/a.jpg", "\xff\xd8\xff"}}), archive.ErrNoTranscriptFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			importer := newTestImporter(t)
			if _, err := importer.Import(context.Background(), "first.zip", sampleArchive(t)); err != nil {
				t.Fatalf("seed import: %v", err)
			}
			previous := importer.Current()

			_, err := importer.Import(context.Background(), "broken.zip", tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Import() error = %v, want %v", err, tt.wantErr)
			}
			if importer.Current() != previous {
				t.Errorf("failed import replaced the published conversation")
			}
		})
	}
}

func TestImport_SupersededGenerationIsDiscarded(t *testing.T) {
	importer := newTestImporter(t)
	older := importer.begin()
	newer := importer.begin()

	opened, err := archive.Open(sampleArchive(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	winner, err := importer.run(context.Background(), newer, "newer.zip", opened)
	if err != nil {
		t.Fatalf("newer import error = %v", err)
	}
	if _, err := importer.run(context.Background(), older, "older.zip", opened); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("older import error = %v, want ErrSuperseded", err)
	}
	if importer.Current() != winner {
		t.Errorf("Current() = %+v, want the newer import", importer.Current())
	}
}

func TestImport_ConcurrentImportsKeepNewestGeneration(t *testing.T) {
	importer := newTestImporter(t)
	raw := sampleArchive(t)

	const imports = 8
	var wg sync.WaitGroup
	for index := 0; index < imports; index++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := importer.Import(context.Background(), "concurrent.zip", raw)
			if err != nil && !errors.Is(err, ErrSuperseded) {
				t.Errorf("Import() error = %v", err)
			}
		}()
	}
	wg.Wait()

	current := importer.Current()
	if current == nil || current.Generation != imports {
		t.Fatalf("Current() = %+v, want generation %d", current, imports)
	}
	if len(current.Result.Messages) != 5 {
		t.Errorf("published conversation has %d messages", len(current.Result.Messages))
	}
}

func TestImport_CanceledContextDoesNotPublish(t *testing.T) {
	importer := newTestImporter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := importer.Import(ctx, "canceled.zip", sampleArchive(t)); !errors.Is(err, context.Canceled) {
		t.Fatalf("Import() error = %v, want context.Canceled", err)
	}
	if importer.Current() != nil {
		t.Errorf("canceled import was published")
	}
}
