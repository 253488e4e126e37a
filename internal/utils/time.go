package utils

import (
	"fmt"
	"strings"
	"time"
)

func FormatDatestamp(t time.Time) string {
	return t.Format("010206-1504")
}

// ResolveLocation loads an IANA zone name. Empty and "local" mean the system zone.
func ResolveLocation(name string) (*time.Location, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || strings.EqualFold(trimmed, "local") {
		return time.Local, nil
	}
	location, err := time.LoadLocation(trimmed)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", trimmed, err)
	}
	return location, nil
}

// StartTime is the first non-zero timestamp, or fallback when there is none.
func StartTime(timestamps []time.Time, fallback time.Time) time.Time {
	for _, timestamp := range timestamps {
		if !timestamp.IsZero() {
			return timestamp
		}
	}
	return fallback
}
