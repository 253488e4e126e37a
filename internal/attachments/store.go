// Package attachments classifies archive entries and keeps them addressable by entry name.
package attachments

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chat_ingest/internal/archive"
	"chat_ingest/internal/sniff"
)

const defaultWorkers = 4

// Record is one classified attachment. Textual types carry Text, everything else carries Data.
type Record struct {
	Name         string
	MediaType    sniff.MediaType
	OriginalType sniff.MediaType
	Data         []byte
	Text         string
	Digest       string
	Converted    bool
}

// IsTextual reports whether the payload is held as decoded text.
func (r *Record) IsTextual() bool {
	return r.MediaType.IsTextual()
}

// DataURI returns the payload inline-encoded for direct embedding.
func (r *Record) DataURI() string {
	if r.IsTextual() {
		return "data:" + r.MediaType.MIME() + ";charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(r.Text))
	}
	return "data:" + r.MediaType.MIME() + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// Size is the stored payload length in bytes.
func (r *Record) Size() int {
	if r.IsTextual() {
		return len(r.Text)
	}
	return len(r.Data)
}

// Store maps entry names to records and remembers archive order.
// It is built once per import and is read-only afterwards.
type Store struct {
	records map[string]*Record
	order   []string
}

func NewStore() *Store {
	return &Store{records: make(map[string]*Record)}
}

// Put adds a record. A repeated name replaces the earlier record but keeps its position.
func (s *Store) Put(record *Record) {
	if _, exists := s.records[record.Name]; !exists {
		s.order = append(s.order, record.Name)
	}
	s.records[record.Name] = record
}

func (s *Store) Lookup(name string) (*Record, bool) {
	record, ok := s.records[name]
	return record, ok
}

// Names returns entry names in insertion order.
func (s *Store) Names() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Records returns records in insertion order.
func (s *Store) Records() []*Record {
	records := make([]*Record, 0, len(s.order))
	for _, name := range s.order {
		records = append(records, s.records[name])
	}
	return records
}

func (s *Store) Len() int {
	return len(s.order)
}

// Options tunes Ingest. Zero values are usable.
type Options struct {
	Workers    int
	Transcoder Transcoder
	Logger     *zap.Logger
}

// Ingest classifies every entry, converting HEIC images when a Transcoder is set.
// Classification runs in parallel but the returned store follows entry order, and
// Ingest only returns once every entry has been processed.
func Ingest(ctx context.Context, entries []archive.Entry, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	records := make([]*Record, len(entries))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for index, entry := range entries {
		if entry.IsDirectory {
			continue
		}
		index, entry := index, entry
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			records[index] = buildRecord(groupCtx, entry, opts.Transcoder, logger)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("ingest attachments: %w", err)
	}

	store := NewStore()
	for _, record := range records {
		if record != nil {
			store.Put(record)
		}
	}
	logger.Debug("attachment store ready", zap.Int("records", store.Len()))
	return store, nil
}

func buildRecord(ctx context.Context, entry archive.Entry, transcoder Transcoder, logger *zap.Logger) *Record {
	mediaType := sniff.Classify(entry.Bytes, entry.Name)
	record := &Record{
		Name:         entry.Name,
		MediaType:    mediaType,
		OriginalType: mediaType,
	}

	if mediaType.IsTextual() {
		record.Text = string(entry.Bytes)
		record.Digest = digest(entry.Bytes)
		return record
	}

	record.Data = entry.Bytes
	if isHEIC(mediaType) && transcoder != nil {
		switch outcome := transcoder.Transcode(ctx, entry.Bytes, mediaType).(type) {
		case Converted:
			record.Data = outcome.Data
			record.MediaType = outcome.MediaType
			record.Converted = true
		case Failed:
			logger.Warn("heic conversion failed, keeping original bytes",
				zap.String("entry", entry.Name), zap.Error(outcome.Err))
			record.Data = outcome.Original
			record.MediaType = outcome.MediaType
		}
	}
	record.Digest = digest(record.Data)
	return record
}

func isHEIC(mediaType sniff.MediaType) bool {
	return mediaType.Kind == sniff.KindImage && (mediaType.Subkind == "heic" || mediaType.Subkind == "heif")
}

func digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
