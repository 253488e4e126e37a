package transcript

import (
	"strings"

	"go.uber.org/zap"

	"chat_ingest/internal/match"
	"chat_ingest/internal/sniff"
	"chat_ingest/internal/vcard"
)

const (
	// MediaOmittedMarker appears in exports made without media.
	MediaOmittedMarker = "<Media omitted>"
	// MediaOmittedText replaces the body of such messages.
	MediaOmittedText = "Media omitted"

	attachmentIcon = "📎 "
)

// attach rewrites message text for attachment references and fills in the attachment.
func (p *Parser) attach(message *Message, body string, source Source, candidates []string, stats *Stats) {
	if strings.Contains(body, MediaOmittedMarker) {
		message.Text = MediaOmittedText
		message.MediaOmitted = true
		return
	}
	markerAt := strings.Index(body, match.FileAttachedMarker)
	if markerAt < 0 {
		return
	}
	stats.Attachments++

	fileName := strings.TrimSpace(body[:markerAt])
	caption := strings.TrimSpace(body[markerAt+len(match.FileAttachedMarker):])
	attachment := &Attachment{Name: fileName}
	message.Attachment = attachment

	found, ok := p.policy.Resolve(fileName, candidates)
	if !ok || source == nil {
		stats.UnresolvedReferences++
		p.logger.Debug("attachment reference not found in archive",
			zap.Int("line", message.Line), zap.String("file", fileName))
		attachment.MediaType = sniff.FromFilename(fileName)
		message.Text = withCaption(labelFor(fileName), caption)
		return
	}
	record, ok := source.Lookup(found.Name)
	if !ok {
		stats.UnresolvedReferences++
		attachment.MediaType = sniff.FromFilename(fileName)
		message.Text = withCaption(labelFor(fileName), caption)
		return
	}
	p.logger.Debug("attachment resolved",
		zap.Int("line", message.Line), zap.String("file", fileName),
		zap.String("entry", record.Name), zap.String("rule", found.Rule))

	attachment.Entry = record.Name
	attachment.MediaType = record.MediaType
	attachment.Record = record

	switch record.MediaType.Kind {
	case sniff.KindImage:
		message.Text = caption
	case sniff.KindVCard:
		contact := vcard.Parse(record.Text)
		attachment.Contact = &contact
		attachment.RawText = record.Text
		message.Text = caption
	case sniff.KindPlainText:
		attachment.RawText = record.Text
		message.Text = withCaption(labelFor(fileName), caption)
	default:
		message.Text = withCaption(labelFor(fileName), caption)
	}
}

func labelFor(fileName string) string {
	return strings.TrimSpace(attachmentIcon + fileName)
}

func withCaption(label, caption string) string {
	if caption == "" {
		return label
	}
	return label + "\n" + caption
}
