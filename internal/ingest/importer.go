// Package ingest runs an import end to end: archive, attachment store, transcript.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chat_ingest/internal/archive"
	"chat_ingest/internal/attachments"
	"chat_ingest/internal/transcript"
)

// ErrSuperseded is returned when a newer import was published first.
var ErrSuperseded = errors.New("import superseded by a newer import")

const defaultTranscodeTimeout = 30 * time.Second

// Conversation is one published import.
type Conversation struct {
	ID             string
	Generation     uint64
	Source         string
	ImportedAt     time.Time
	TranscriptName string
	Result         transcript.Result
	Store          *attachments.Store
}

type Options struct {
	Workers          int
	TranscodeTimeout time.Duration
	Location         *time.Location
	Now              func() time.Time
	Primary          string
	Logger           *zap.Logger
	// Transcoder overrides the HEIC transcoder; mostly useful in tests.
	Transcoder attachments.Transcoder
}

// Importer numbers every import and publishes only the newest completed one.
// It is safe for concurrent use.
type Importer struct {
	opts   Options
	logger *zap.Logger

	generation atomic.Uint64

	mu        sync.RWMutex
	published *Conversation
}

func NewImporter(opts Options) *Importer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.TranscodeTimeout <= 0 {
		opts.TranscodeTimeout = defaultTranscodeTimeout
	}
	if opts.Transcoder == nil {
		opts.Transcoder = attachments.HEICTranscoder{Timeout: opts.TranscodeTimeout}
	}
	return &Importer{opts: opts, logger: opts.Logger}
}

// Current returns the last published conversation, or nil before the first success.
func (i *Importer) Current() *Conversation {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.published
}

func (i *Importer) ImportFile(ctx context.Context, archiveFilePath string) (*Conversation, error) {
	generation := i.begin()
	absolutePath, absErr := filepath.Abs(archiveFilePath)
	if absErr != nil {
		return nil, fmt.Errorf("resolve archive path: %w", absErr)
	}
	opened, openErr := archive.OpenFile(absolutePath)
	if openErr != nil {
		return nil, openErr
	}
	return i.run(ctx, generation, absolutePath, opened)
}

// Import reads an archive held in memory. source is only recorded on the result.
func (i *Importer) Import(ctx context.Context, source string, raw []byte) (*Conversation, error) {
	generation := i.begin()
	opened, openErr := archive.Open(raw)
	if openErr != nil {
		return nil, openErr
	}
	return i.run(ctx, generation, source, opened)
}

func (i *Importer) begin() uint64 {
	return i.generation.Add(1)
}

func (i *Importer) run(ctx context.Context, generation uint64, source string, opened *archive.Archive) (*Conversation, error) {
	logger := i.logger.With(zap.Uint64("generation", generation), zap.String("source", source))

	transcriptEntry, findErr := opened.FindTranscript()
	if findErr != nil {
		return nil, findErr
	}

	store, ingestErr := attachments.Ingest(ctx, opened.Attachments(transcriptEntry.Name), attachments.Options{
		Workers:    i.opts.Workers,
		Transcoder: i.opts.Transcoder,
		Logger:     logger,
	})
	if ingestErr != nil {
		return nil, ingestErr
	}

	parser := transcript.NewParser(transcript.Options{
		Location: i.opts.Location,
		Now:      i.opts.Now,
		Logger:   logger,
		Primary:  i.opts.Primary,
	})
	result := parser.Parse(string(transcriptEntry.Bytes), store)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("import interrupted: %w", ctxErr)
	}

	conversation := &Conversation{
		ID:             uuid.NewString(),
		Generation:     generation,
		Source:         source,
		ImportedAt:     i.opts.Now(),
		TranscriptName: transcriptEntry.Name,
		Result:         result,
		Store:          store,
	}
	if publishErr := i.publish(conversation); publishErr != nil {
		logger.Warn("discarding superseded import", zap.Error(publishErr))
		return nil, publishErr
	}

	logger.Info("import published",
		zap.String("id", conversation.ID),
		zap.String("transcript", transcriptEntry.Name),
		zap.Int("messages", result.Stats.Messages),
		zap.Int("attachments", store.Len()),
		zap.Int("unresolvedReferences", result.Stats.UnresolvedReferences),
	)
	return conversation, nil
}

func (i *Importer) publish(conversation *Conversation) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.published != nil && i.published.Generation > conversation.Generation {
		return fmt.Errorf("generation %d behind published %d: %w",
			conversation.Generation, i.published.Generation, ErrSuperseded)
	}
	i.published = conversation
	return nil
}
