package transcript

import (
	"time"

	"chat_ingest/internal/attachments"
	"chat_ingest/internal/sniff"
	"chat_ingest/internal/vcard"
)

// SystemSender is the sender recorded for informational lines.
const SystemSender = "System"

// UnknownSender replaces an empty sender and is never counted as a participant.
const UnknownSender = "Unknown"

// Attachment is a file referenced by a message. Record is nil when the
// reference could not be matched to an archive entry.
type Attachment struct {
	Name      string              `json:"name" yaml:"name"`
	Entry     string              `json:"entry,omitempty" yaml:"entry,omitempty"`
	MediaType sniff.MediaType     `json:"mediaType" yaml:"mediaType"`
	RawText   string              `json:"rawText,omitempty" yaml:"rawText,omitempty"`
	Contact   *vcard.Contact      `json:"contact,omitempty" yaml:"contact,omitempty"`
	Record    *attachments.Record `json:"-" yaml:"-"`
}

// Resolved reports whether the reference was matched to an archive entry.
func (a *Attachment) Resolved() bool {
	return a.Record != nil
}

// Message is one transcript entry. Messages are never modified after Parse returns.
type Message struct {
	Line         int         `json:"line" yaml:"line"`
	Timestamp    time.Time   `json:"timestamp" yaml:"timestamp"`
	Time         string      `json:"time" yaml:"time"`
	DayLabel     string      `json:"dayLabel" yaml:"dayLabel"`
	Sender       string      `json:"sender" yaml:"sender"`
	IsSystem     bool        `json:"isSystem" yaml:"isSystem"`
	Text         string      `json:"text" yaml:"text"`
	MediaOmitted bool        `json:"mediaOmitted,omitempty" yaml:"mediaOmitted,omitempty"`
	Attachment   *Attachment `json:"attachment,omitempty" yaml:"attachment,omitempty"`
	Links        []string    `json:"links,omitempty" yaml:"links,omitempty"`
}

// Stats counts how the transcript's lines were consumed.
type Stats struct {
	Lines                int `json:"lines" yaml:"lines"`
	Messages             int `json:"messages" yaml:"messages"`
	SystemMessages       int `json:"systemMessages" yaml:"systemMessages"`
	Continuations        int `json:"continuations" yaml:"continuations"`
	Dropped              int `json:"dropped" yaml:"dropped"`
	Attachments          int `json:"attachments" yaml:"attachments"`
	UnresolvedReferences int `json:"unresolvedReferences" yaml:"unresolvedReferences"`
	FallbackTimestamps   int `json:"fallbackTimestamps" yaml:"fallbackTimestamps"`
}

// Result is the parsed conversation.
type Result struct {
	Messages     []Message `json:"messages" yaml:"messages"`
	Participants []string  `json:"participants" yaml:"participants"`
	Primary      string    `json:"primary,omitempty" yaml:"primary,omitempty"`
	Stats        Stats     `json:"stats" yaml:"stats"`
}
