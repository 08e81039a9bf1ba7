package timeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the kind of connectivity event recorded upstream.
type Status int

const (
	// StatusUnknown marks a row whose status text could not be mapped.
	StatusUnknown Status = iota
	// Start marks the beginning of a session.
	Start
	// Stop marks the end of a session.
	Stop
)

func (s Status) String() string {
	switch s {
	case Start:
		return "start"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its lowercase name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ParseStatus maps upstream status text onto Start or Stop.
// Matching is case-insensitive and tolerates accounting prefixes such as
// "Acct-Start" or "Session Stop".
func ParseStatus(text string) (Status, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	switch s {
	case "start", "acct start", "session start", "started":
		return Start, true
	case "stop", "acct stop", "session stop", "stopped":
		return Stop, true
	}
	return StatusUnknown, false
}

// Entry is one normalized connectivity event.
type Entry struct {
	TimestampMs int64     `json:"timestamp_ms"`
	Status      Status    `json:"status"`
	Date        time.Time `json:"date"`
}

// NewEntry builds an Entry for t truncated to millisecond precision.
func NewEntry(t time.Time, status Status) Entry {
	t = t.Truncate(time.Millisecond)
	return Entry{TimestampMs: t.UnixMilli(), Status: status, Date: t}
}

// Valid reports whether e carries a usable timestamp and a known status.
func (e Entry) Valid() bool {
	return !e.Date.IsZero() && (e.Status == Start || e.Status == Stop)
}

func (e Entry) String() string {
	return fmt.Sprintf("%s@%s", e.Status, e.Date.Format(time.RFC3339))
}
