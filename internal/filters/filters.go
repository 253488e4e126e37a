package filters

import (
	"fmt"
	"regexp"
	"strings"

	"chat_ingest/internal/transcript"
)

// NormalizeMediaTypeName canonicalizes media kind names to the names used by sniff.Kind.
func NormalizeMediaTypeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "image", "images", "img", "photo", "photos", "picture", "sticker", "jpg", "jpeg", "png", "gif", "webp", "heic":
		return "image"
	case "video", "videos", "vid", "clip", "mp4", "mov":
		return "video"
	case "audio", "voice", "voice-note", "ptt", "opus", "mp3", "m4a":
		return "audio"
	case "pdf", "document", "documents", "doc", "docx":
		return "pdf"
	case "vcard", "vcf", "contact", "contacts":
		return "vcard"
	case "text", "txt", "plain":
		return "text"
	case "unknown", "binary", "bin", "other":
		return "unknown"
	default:
		return n
	}
}

// EnumerateMediaKinds lists the media kinds present on a message. Messages without
// an attachment have none; omitted media counts as unknown.
func EnumerateMediaKinds(message transcript.Message) map[string]struct{} {
	result := make(map[string]struct{})
	if message.Attachment != nil {
		result[message.Attachment.MediaType.Kind.String()] = struct{}{}
	}
	if message.MediaOmitted {
		result["unknown"] = struct{}{}
	}
	return result
}

// HasAnyDesired returns true if any desired key is present in the found set.
func HasAnyDesired(found map[string]struct{}, desired []string, normalizer func(string) string) bool {
	if len(desired) == 0 {
		return true
	}
	for _, value := range desired {
		key := normalizer(value)
		if _, ok := found[key]; ok {
			return true
		}
	}
	return false
}

// Criteria selects messages: every pattern must match the text, and when set,
// the sender must be one of Senders and the media kind one of MediaTypes.
type Criteria struct {
	Patterns   []*regexp.Regexp
	Senders    []string
	MediaTypes []string
}

func (c Criteria) Active() bool {
	return len(c.Patterns) > 0 || len(c.Senders) > 0 || len(c.MediaTypes) > 0
}

func (c Criteria) Keep(message transcript.Message) bool {
	for _, re := range c.Patterns {
		if !re.MatchString(message.Text) {
			return false
		}
	}
	senders := map[string]struct{}{lowerTrim(message.Sender): {}}
	if !HasAnyDesired(senders, c.Senders, lowerTrim) {
		return false
	}
	return HasAnyDesired(EnumerateMediaKinds(message), c.MediaTypes, NormalizeMediaTypeName)
}

// Apply returns the kept messages in their original order.
func Apply(messages []transcript.Message, criteria Criteria) []transcript.Message {
	if !criteria.Active() {
		return messages
	}
	kept := make([]transcript.Message, 0, len(messages))
	for _, message := range messages {
		if criteria.Keep(message) {
			kept = append(kept, message)
		}
	}
	return kept
}

// BuildNoMatchError creates a precise error when nothing matched.
func BuildNoMatchError(patternCSV string, senders []string, mediaTypes []string) error {
	who := strings.Join(senders, ",")
	kinds := strings.Join(mediaTypes, ",")
	switch {
	case who != "" && kinds != "":
		return fmt.Errorf("no messages matched patterns [%s] from sender(s) %q with media type(s) %q", patternCSV, who, kinds)
	case who != "":
		return fmt.Errorf("no messages matched patterns [%s] from sender(s) %q", patternCSV, who)
	case kinds != "":
		return fmt.Errorf("no messages matched patterns [%s] with media type(s) %q", patternCSV, kinds)
	default:
		return fmt.Errorf("no messages matched patterns [%s]", patternCSV)
	}
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
