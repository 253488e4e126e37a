package transcript

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Recovery tells which strategy produced a timestamp.
type Recovery int

const (
	RecoveredExplicit Recovery = iota
	RecoveredGeneric
	RecoveredSubstituted
)

const (
	timeLayout     = "3:04 PM"
	dayLabelLayout = "Monday, January 2, 2006"
)

var explicitTimestamp = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4}) (\d{1,2}):(\d{2}) ?(am|pm)?$`)

var timestampCleaner = strings.NewReplacer(",", " ", "\u202f", " ", "\u00a0", " ", ".", "")

// RecoverTimestamp reads a "D/M/Y, H:MM[ am|pm]" stamp in loc. When the explicit
// pattern fails a generic parser is tried, and when that fails too now is returned.
func RecoverTimestamp(raw string, loc *time.Location, now time.Time) (time.Time, Recovery) {
	normalized := normalizeTimestamp(raw)
	if parsed, ok := parseExplicit(normalized, loc); ok {
		return parsed, RecoveredExplicit
	}
	if parsed, ok := parseGeneric(normalized, loc); ok {
		return parsed, RecoveredGeneric
	}
	return now.In(loc), RecoveredSubstituted
}

func parseGeneric(normalized string, loc *time.Location) (parsed time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			parsed, ok = time.Time{}, false
		}
	}()
	parsed, err := dateparse.ParseIn(normalized, loc, dateparse.PreferMonthFirst(false))
	if err != nil || parsed.IsZero() {
		return time.Time{}, false
	}
	return parsed, true
}

func normalizeTimestamp(raw string) string {
	cleaned := strings.ToLower(timestampCleaner.Replace(raw))
	return strings.Join(strings.Fields(cleaned), " ")
}

func parseExplicit(normalized string, loc *time.Location) (time.Time, bool) {
	parts := explicitTimestamp.FindStringSubmatch(normalized)
	if parts == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(parts[1])
	month, _ := strconv.Atoi(parts[2])
	year := ExpandYear(parts[3])
	hour, _ := strconv.Atoi(parts[4])
	minute, _ := strconv.Atoi(parts[5])

	hour, ok := normalizeHour(hour, parts[6])
	if !ok || minute > 59 || month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	parsed := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if parsed.Day() != day || int(parsed.Month()) != month {
		return time.Time{}, false
	}
	return parsed, true
}

// ExpandYear maps two-digit years 00-29 to 2000-2029 and 30-99 to 1900-1999.
func ExpandYear(token string) int {
	year, _ := strconv.Atoi(token)
	if len(token) != 2 {
		return year
	}
	if year <= 29 {
		return 2000 + year
	}
	return 1900 + year
}

// normalizeHour applies the 12-hour clock: 12am is 0, 12pm stays 12, any other pm hour
// gains 12. Hour 0 is accepted with either marker, so 0pm reads as noon.
func normalizeHour(hour int, meridiem string) (int, bool) {
	switch meridiem {
	case "am":
		if hour > 12 {
			return 0, false
		}
		if hour == 12 {
			return 0, true
		}
		return hour, true
	case "pm":
		if hour > 12 {
			return 0, false
		}
		if hour == 12 {
			return 12, true
		}
		return hour + 12, true
	default:
		return hour, hour <= 23
	}
}

// FormatTime renders the clock time shown next to a message, e.g. "9:05 AM".
func FormatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(timeLayout)
}

// DayLabel is "Today", "Yesterday", or the full date, comparing calendar days in loc.
func DayLabel(t, now time.Time, loc *time.Location) string {
	local := t.In(loc)
	year, month, day := local.Date()
	nowYear, nowMonth, nowDay := now.In(loc).Date()
	if year == nowYear && month == nowMonth && day == nowDay {
		return "Today"
	}
	yesterdayYear, yesterdayMonth, yesterdayDay := time.Date(nowYear, nowMonth, nowDay-1, 12, 0, 0, 0, loc).Date()
	if year == yesterdayYear && month == yesterdayMonth && day == yesterdayDay {
		return "Yesterday"
	}
	return local.Format(dayLabelLayout)
}
