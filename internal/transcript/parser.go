// Package transcript turns an exported chat transcript into ordered messages.
package transcript

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"chat_ingest/internal/attachments"
	"chat_ingest/internal/match"
)

// Source is the read-only view of the attachment store the parser needs.
type Source interface {
	Names() []string
	Lookup(name string) (*attachments.Record, bool)
}

const (
	space      = `[\s\x{00A0}\x{202F}]`
	linePrefix = `^(\d{1,2}/\d{1,2}/\d{2,4}` + `[,\s\x{00A0}\x{202F}]+` + `\d{1,2}:\d{2}` + space + `*(?:[ap]\.?` + space + `?m\.?)?)` +
		space + `*-` + space + `*`
)

var (
	authoredLine = regexp.MustCompile(`(?i)` + linePrefix + `([^:]*):` + space + `*(.*)$`)
	systemLine   = regexp.MustCompile(`(?i)` + linePrefix + `(.+)$`)
	linkPattern  = regexp.MustCompile(`https?://[\w\-._~:/?#\[\]@!$&'()*+,;=%]+`)
)

// Options configures a Parser. Zero values fall back to local time, the current clock,
// the default match policy and a no-op logger.
type Options struct {
	Location *time.Location
	Now      func() time.Time
	Policy   match.Policy
	Logger   *zap.Logger
	// Primary is the participant designated by the caller; empty means "suggest one".
	Primary string
}

// Parser is stateless between calls; Parse can be called concurrently.
type Parser struct {
	location *time.Location
	now      func() time.Time
	policy   match.Policy
	logger   *zap.Logger
	primary  string
}

func NewParser(opts Options) *Parser {
	parser := &Parser{
		location: opts.Location,
		now:      opts.Now,
		policy:   opts.Policy,
		logger:   opts.Logger,
		primary:  opts.Primary,
	}
	if parser.location == nil {
		parser.location = time.Local
	}
	if parser.now == nil {
		parser.now = time.Now
	}
	if parser.policy == nil {
		parser.policy = match.DefaultPolicy
	}
	if parser.logger == nil {
		parser.logger = zap.NewNop()
	}
	return parser
}

// Parse reads text line by line. source may be nil when the archive had no attachments.
func (p *Parser) Parse(text string, source Source) Result {
	now := p.now()
	var candidates []string
	if source != nil {
		candidates = source.Names()
	}

	var result Result
	participants := make(map[string]struct{})
	current := -1

	for index, line := range splitLines(text) {
		result.Stats.Lines++
		trimmed := strings.TrimFunc(line, isTrimmable)
		if trimmed == "" {
			continue
		}

		if parts := authoredLine.FindStringSubmatch(trimmed); parts != nil {
			message := p.newMessage(index+1, parts[1], now, &result.Stats)
			sender := strings.TrimSpace(parts[2])
			body := strings.TrimSpace(parts[3])
			if sender != "" && sender != UnknownSender {
				participants[sender] = struct{}{}
			}
			if sender == "" {
				sender = UnknownSender
			}
			message.Sender = sender
			message.Text = body
			p.attach(&message, body, source, candidates, &result.Stats)
			result.Messages = append(result.Messages, message)
			current = len(result.Messages) - 1
			continue
		}

		if parts := systemLine.FindStringSubmatch(trimmed); parts != nil {
			message := p.newMessage(index+1, parts[1], now, &result.Stats)
			message.Sender = SystemSender
			message.IsSystem = true
			message.Text = strings.TrimSpace(parts[2])
			result.Messages = append(result.Messages, message)
			result.Stats.SystemMessages++
			current = len(result.Messages) - 1
			continue
		}

		if current < 0 {
			result.Stats.Dropped++
			continue
		}
		result.Stats.Continuations++
		if result.Messages[current].Text == "" {
			result.Messages[current].Text = trimmed
		} else {
			result.Messages[current].Text += "\n" + trimmed
		}
	}

	for index := range result.Messages {
		result.Messages[index].Links = linkPattern.FindAllString(result.Messages[index].Text, -1)
	}
	result.Stats.Messages = len(result.Messages)

	result.Participants = make([]string, 0, len(participants))
	for participant := range participants {
		result.Participants = append(result.Participants, participant)
	}
	sort.Strings(result.Participants)
	result.Primary = suggestPrimary(p.primary, result.Participants)
	return result
}

func (p *Parser) newMessage(line int, stamp string, now time.Time, stats *Stats) Message {
	timestamp, recovery := RecoverTimestamp(stamp, p.location, now)
	if recovery != RecoveredExplicit {
		p.logger.Debug("timestamp recovered with fallback",
			zap.Int("line", line), zap.String("stamp", stamp), zap.Int("recovery", int(recovery)))
	}
	if recovery == RecoveredSubstituted {
		stats.FallbackTimestamps++
	}
	return Message{
		Line:      line,
		Timestamp: timestamp,
		Time:      FormatTime(timestamp, p.location),
		DayLabel:  DayLabel(timestamp, now, p.location),
	}
}

func suggestPrimary(configured string, participants []string) string {
	if configured != "" {
		for _, participant := range participants {
			if participant == configured {
				return configured
			}
		}
	}
	if len(participants) > 0 {
		return participants[0]
	}
	return ""
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// isTrimmable also strips the byte-order mark and the directional marks some exports emit.
func isTrimmable(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff' || r == '\u200e' || r == '\u200f'
}
