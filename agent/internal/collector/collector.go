package collector

import (
	"sort"
	"time"

	"github.com/linkpulse/linkpulse/agent/internal/source"
	"github.com/linkpulse/linkpulse/agent/internal/timeline"
)

// Cleaned is the deduplicated timeline.
type Cleaned struct {
	// Entries are non-decreasing by TimestampMs and alternate in status.
	Entries []timeline.Entry `json:"entries"`

	// Ignored counts entries collapsed as repeats of the previous kept
	// status. Invalid entries are dropped without being counted.
	Ignored int `json:"ignored"`
}

// Clean drops invalid entries, stable-sorts the rest ascending by time, and
// collapses runs of the same status to their first entry. The input slice is
// not modified.
func Clean(entries []timeline.Entry) Cleaned {
	valid := make([]timeline.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Valid() {
			valid = append(valid, e)
		}
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].TimestampMs < valid[j].TimestampMs
	})

	out := make([]timeline.Entry, 0, len(valid))
	ignored := 0
	for _, e := range valid {
		if n := len(out); n > 0 && out[n-1].Status == e.Status {
			ignored++
			continue
		}
		out = append(out, e)
	}
	return Cleaned{Entries: out, Ignored: ignored}
}

// CleanRows normalizes raw rows in loc and cleans them. Rows that do not
// normalize are dropped without being counted in Ignored.
func CleanRows(rows []source.RawRow, loc *time.Location) Cleaned {
	entries := make([]timeline.Entry, 0, len(rows))
	for _, r := range rows {
		if e, ok := timeline.Normalize(r.TimestampText, r.StatusText, loc); ok {
			entries = append(entries, e)
		}
	}
	return Clean(entries)
}
