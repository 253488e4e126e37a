package catalog

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"chat_ingest/internal/attachments"
	"chat_ingest/internal/ingest"
	"chat_ingest/internal/sniff"
	"chat_ingest/internal/transcript"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "nested", "catalog.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleConversation(id string, importedAt time.Time) *ingest.Conversation {
	store := attachments.NewStore()
	store.Put(&attachments.Record{
		Name:         "media/IMG-1.heic",
		MediaType:    sniff.Image("jpeg"),
		OriginalType: sniff.Image("heic"),
		Data:         []byte{0xFF, 0xD8, 0xFF},
		Digest:       "digest-img-1",
		Converted:    true,
	})
	return &ingest.Conversation{
		ID:             id,
		Generation:     1,
		Source:         "/tmp/" + id + ".zip",
		ImportedAt:     importedAt,
		TranscriptName: "WhatsApp Chat.txt",
		Store:          store,
		Result: transcript.Result{
			Participants: []string{"Alice", "Bob"},
			Primary:      "Alice",
			Messages: []transcript.Message{
				{Line: 1, Sender: transcript.SystemSender, IsSystem: true, Text: "secured"},
				{Line: 2, Sender: "Alice", Text: "hi"},
				{Line: 3, Sender: "Bob", Attachment: &transcript.Attachment{Name: "IMG-1.heic", Entry: "media/IMG-1.heic"}},
			},
		},
	}
}

func TestOpenDB_RecordsSchemaVersion(t *testing.T) {
	db := openTestDB(t)
	version, err := db.SchemaVersion()
	if err != nil || version != schemaVersion {
		t.Errorf("SchemaVersion() = %q, %v", version, err)
	}
}

func TestSaveConversation_AndListImports(t *testing.T) {
	db := openTestDB(t)
	older := sampleConversation("older", time.Date(2026, time.October, 15, 8, 0, 0, 0, time.UTC))
	newer := sampleConversation("newer", time.Date(2026, time.October, 16, 8, 0, 0, 0, time.UTC))
	newer.Result.Participants = []string{"Carol"}

	for _, conversation := range []*ingest.Conversation{older, newer} {
		if err := db.SaveConversation(conversation); err != nil {
			t.Fatalf("SaveConversation(%s) error = %v", conversation.ID, err)
		}
	}

	imports, err := db.ListImports()
	if err != nil {
		t.Fatalf("ListImports() error = %v", err)
	}
	if len(imports) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(imports))
	}
	if imports[0].ImportID != "newer" || imports[1].ImportID != "older" {
		t.Errorf("imports not newest first: %+v", imports)
	}
	if !reflect.DeepEqual(imports[1].Participants, []string{"Alice", "Bob"}) {
		t.Errorf("participants = %v", imports[1].Participants)
	}
	if imports[1].MessageCount != 3 || imports[1].Primary != "Alice" || imports[1].ImportedAt != "2026-10-15T08:00:00Z" {
		t.Errorf("import row = %+v", imports[1])
	}

	ids, err := db.ImportsWithDigest("digest-img-1")
	if err != nil || !reflect.DeepEqual(ids, []string{"newer", "older"}) {
		t.Errorf("ImportsWithDigest() = %v, %v", ids, err)
	}
}

func TestSaveConversation_ReplacesSameImport(t *testing.T) {
	db := openTestDB(t)
	conversation := sampleConversation("same", time.Date(2026, time.October, 16, 8, 0, 0, 0, time.UTC))
	if err := db.SaveConversation(conversation); err != nil {
		t.Fatalf("first save: %v", err)
	}
	conversation.Result.Messages = conversation.Result.Messages[:1]
	if err := db.SaveConversation(conversation); err != nil {
		t.Fatalf("second save: %v", err)
	}

	count, err := db.MessageCount("same")
	if err != nil || count != 1 {
		t.Errorf("MessageCount() = %d, %v", count, err)
	}
	imports, _ := db.ListImports()
	if len(imports) != 1 {
		t.Errorf("expected a single import row, got %d", len(imports))
	}
}

func TestDeleteImport_Cascades(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveConversation(sampleConversation("gone", time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}
	removed, err := db.DeleteImport("gone")
	if err != nil || !removed {
		t.Fatalf("DeleteImport() = %v, %v", removed, err)
	}
	if removed, err := db.DeleteImport("gone"); err != nil || removed {
		t.Errorf("second DeleteImport() = %v, %v; want false", removed, err)
	}
	count, err := db.MessageCount("gone")
	if err != nil || count != 0 {
		t.Errorf("MessageCount() after delete = %d, %v", count, err)
	}
	ids, _ := db.ImportsWithDigest("digest-img-1")
	if len(ids) != 0 {
		t.Errorf("attachments survived delete: %v", ids)
	}
}
