// Package normalize holds the pure, per-column cleaning functions applied to
// raw survey cells. None of them return errors: malformed input becomes nil.
package normalize

import (
	"strings"
	"time"
)

// timestampLayouts are tried in order. The wall-clock fields are always read
// as UTC; an offset written in the cell is ignored.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

// Timestamp parses a survey submission time into a UTC instant.
// Returns nil for empty or unrecognized input.
func Timestamp(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			utc := time.Date(t.Year(), t.Month(), t.Day(),
				t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
			return &utc
		}
	}
	return nil
}
