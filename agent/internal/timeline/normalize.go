package timeline

import (
	"strings"
	"time"
)

// zonedLayouts carry their own offset; the caller's location is ignored.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
}

// localLayouts have no zone and are interpreted in the caller's location.
var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 03:04:05 PM",
	"01/02/2006 3:04:05 PM",
	"1/2/2006 3:04:05 PM",
	"1/2/2006, 3:04:05 PM",
	"02.01.2006 15:04:05",
}

// ParseTimestamp interprets text using the known layouts. loc is used for
// layouts without an explicit offset; nil means UTC.
func ParseTimestamp(text string, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Normalize converts one upstream row into an Entry. ok is false when either
// the timestamp or the status cannot be interpreted.
func Normalize(timestampText, statusText string, loc *time.Location) (Entry, bool) {
	t, ok := ParseTimestamp(timestampText, loc)
	if !ok {
		return Entry{}, false
	}
	status, ok := ParseStatus(statusText)
	if !ok {
		return Entry{}, false
	}
	return NewEntry(t, status), true
}
