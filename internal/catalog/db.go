// Package catalog keeps a SQLite history of completed imports.
package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"chat_ingest/internal/ingest"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS imports (
    import_id     TEXT PRIMARY KEY,
    generation    INTEGER NOT NULL DEFAULT 0,
    source        TEXT NOT NULL,
    transcript    TEXT NOT NULL DEFAULT '',
    imported_at   TEXT NOT NULL,
    primary_name  TEXT NOT NULL DEFAULT '',
    message_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS participants (
    import_id TEXT NOT NULL REFERENCES imports(import_id) ON DELETE CASCADE,
    name      TEXT NOT NULL,
    PRIMARY KEY (import_id, name)
);

CREATE TABLE IF NOT EXISTS messages (
    import_id     TEXT NOT NULL REFERENCES imports(import_id) ON DELETE CASCADE,
    seq           INTEGER NOT NULL,
    line_number   INTEGER NOT NULL DEFAULT 0,
    ts            TEXT NOT NULL DEFAULT '',
    sender        TEXT NOT NULL,
    is_system     INTEGER NOT NULL DEFAULT 0,
    text          TEXT NOT NULL,
    media_omitted INTEGER NOT NULL DEFAULT 0,
    attachment    TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (import_id, seq)
);

CREATE TABLE IF NOT EXISTS attachments (
    import_id     TEXT NOT NULL REFERENCES imports(import_id) ON DELETE CASCADE,
    entry_name    TEXT NOT NULL,
    media_type    TEXT NOT NULL,
    original_type TEXT NOT NULL,
    digest        TEXT NOT NULL,
    size          INTEGER NOT NULL DEFAULT 0,
    converted     INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (import_id, entry_name)
);

CREATE INDEX IF NOT EXISTS attachments_digest ON attachments(digest);
`

// schemaVersion is bumped whenever the table layout changes.
const schemaVersion = "1"

type DB struct {
	db *sql.DB
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// foreign_keys is per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("init meta: %w", err)
	}
	if _, err := db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("record schema version: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) SchemaVersion() (string, error) {
	var version string
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&version)
	return version, err
}

// SaveConversation stores a published import in one transaction. Saving the same
// import id again replaces the earlier rows.
func (d *DB) SaveConversation(conversation *ingest.Conversation) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM imports WHERE import_id = ?", conversation.ID); err != nil {
		return fmt.Errorf("clear import: %w", err)
	}

	result := conversation.Result
	if _, err := tx.Exec(
		`INSERT INTO imports (import_id, generation, source, transcript, imported_at, primary_name, message_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conversation.ID, int64(conversation.Generation), conversation.Source, conversation.TranscriptName,
		conversation.ImportedAt.UTC().Format(time.RFC3339), result.Primary, len(result.Messages),
	); err != nil {
		return fmt.Errorf("insert import: %w", err)
	}

	for _, name := range result.Participants {
		if _, err := tx.Exec("INSERT INTO participants (import_id, name) VALUES (?, ?)", conversation.ID, name); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	messageStmt, err := tx.Prepare(
		`INSERT INTO messages (import_id, seq, line_number, ts, sender, is_system, text, media_omitted, attachment)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer messageStmt.Close()
	for seq, message := range result.Messages {
		attachment := ""
		if message.Attachment != nil {
			attachment = message.Attachment.Name
		}
		if _, err := messageStmt.Exec(conversation.ID, seq, message.Line,
			message.Timestamp.UTC().Format(time.RFC3339), message.Sender, boolInt(message.IsSystem),
			message.Text, boolInt(message.MediaOmitted), attachment); err != nil {
			return fmt.Errorf("insert message %d: %w", seq, err)
		}
	}

	if conversation.Store != nil {
		for _, record := range conversation.Store.Records() {
			if _, err := tx.Exec(
				`INSERT INTO attachments (import_id, entry_name, media_type, original_type, digest, size, converted)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				conversation.ID, record.Name, record.MediaType.MIME(), record.OriginalType.MIME(),
				record.Digest, record.Size(), boolInt(record.Converted),
			); err != nil {
				return fmt.Errorf("insert attachment %q: %w", record.Name, err)
			}
		}
	}
	return tx.Commit()
}

type ImportRow struct {
	ImportID     string
	Generation   int64
	Source       string
	Transcript   string
	ImportedAt   string
	Primary      string
	MessageCount int
	Participants []string
}

// ListImports returns stored imports, newest first.
func (d *DB) ListImports() ([]ImportRow, error) {
	rows, err := d.db.Query(
		`SELECT import_id, generation, source, transcript, imported_at, primary_name, message_count
		 FROM imports ORDER BY imported_at DESC, import_id`)
	if err != nil {
		return nil, err
	}

	var imports []ImportRow
	for rows.Next() {
		var row ImportRow
		if err := rows.Scan(&row.ImportID, &row.Generation, &row.Source, &row.Transcript, &row.ImportedAt,
			&row.Primary, &row.MessageCount); err != nil {
			rows.Close()
			return nil, err
		}
		imports = append(imports, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// the single connection is free again once rows is closed
	for index := range imports {
		participants, err := d.Participants(imports[index].ImportID)
		if err != nil {
			return nil, err
		}
		imports[index].Participants = participants
	}
	return imports, nil
}

func (d *DB) Participants(importID string) ([]string, error) {
	rows, err := d.db.Query("SELECT name FROM participants WHERE import_id = ? ORDER BY name", importID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (d *DB) MessageCount(importID string) (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM messages WHERE import_id = ?", importID).Scan(&n)
	return n, err
}

// ImportsWithDigest lists import ids holding an attachment with the given content digest.
func (d *DB) ImportsWithDigest(digest string) ([]string, error) {
	rows, err := d.db.Query("SELECT DISTINCT import_id FROM attachments WHERE digest = ? ORDER BY import_id", digest)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteImport removes an import and, through cascading keys, everything recorded with it.
// It reports whether the import existed.
func (d *DB) DeleteImport(importID string) (bool, error) {
	result, err := d.db.Exec("DELETE FROM imports WHERE import_id = ?", importID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func boolInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
