package collector

import (
	"testing"
	"time"

	"github.com/linkpulse/linkpulse/agent/internal/source"
	"github.com/linkpulse/linkpulse/agent/internal/timeline"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func at(min int, s timeline.Status) timeline.Entry {
	return timeline.NewEntry(t0.Add(time.Duration(min)*time.Minute), s)
}

func TestClean_Empty(t *testing.T) {
	got := Clean(nil)
	if len(got.Entries) != 0 || got.Ignored != 0 {
		t.Errorf("Clean(nil) = %+v, want empty", got)
	}
}

func TestClean_Single(t *testing.T) {
	in := []timeline.Entry{at(0, timeline.Stop)}
	got := Clean(in)
	if len(got.Entries) != 1 || got.Entries[0] != in[0] || got.Ignored != 0 {
		t.Errorf("Clean(single) = %+v", got)
	}
}

func TestClean_CollapsesRepeatedStarts(t *testing.T) {
	in := []timeline.Entry{
		at(0, timeline.Start),
		at(1, timeline.Start),
		at(2, timeline.Start),
		at(3, timeline.Stop),
	}
	got := Clean(in)
	if got.Ignored != 2 {
		t.Errorf("Ignored = %d, want 2", got.Ignored)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("len = %d, want 2", len(got.Entries))
	}
	if got.Entries[0] != in[0] {
		t.Errorf("kept %v, want the first start %v", got.Entries[0], in[0])
	}
}

func TestClean_SortsAscendingAndKeepsInput(t *testing.T) {
	in := []timeline.Entry{
		at(30, timeline.Stop),
		at(20, timeline.Start),
		at(10, timeline.Stop),
		at(0, timeline.Start),
	}
	orig := append([]timeline.Entry(nil), in...)
	got := Clean(in)

	for i := 1; i < len(got.Entries); i++ {
		if got.Entries[i].TimestampMs < got.Entries[i-1].TimestampMs {
			t.Fatalf("entries not ascending at %d", i)
		}
	}
	if len(got.Entries) != 4 {
		t.Errorf("len = %d, want 4", len(got.Entries))
	}
	for i := range in {
		if in[i] != orig[i] {
			t.Fatal("Clean modified its input")
		}
	}
}

func TestClean_StableForEqualTimestamps(t *testing.T) {
	// Same instant: input order decides, so stop precedes start here.
	in := []timeline.Entry{
		at(5, timeline.Stop),
		at(5, timeline.Start),
		at(0, timeline.Start),
	}
	got := Clean(in)
	want := []timeline.Status{timeline.Start, timeline.Stop, timeline.Start}
	if len(got.Entries) != len(want) {
		t.Fatalf("len = %d, want %d", len(got.Entries), len(want))
	}
	for i, s := range want {
		if got.Entries[i].Status != s {
			t.Errorf("entries[%d] = %v, want %v", i, got.Entries[i].Status, s)
		}
	}
}

func TestClean_DropsInvalid(t *testing.T) {
	in := []timeline.Entry{
		at(0, timeline.Start),
		{},
		{TimestampMs: 1, Status: timeline.StatusUnknown, Date: t0},
		at(1, timeline.Stop),
	}
	got := Clean(in)
	if len(got.Entries) != 2 || got.Ignored != 0 {
		t.Errorf("got %d entries, %d ignored; want 2, 0", len(got.Entries), got.Ignored)
	}
}

func TestClean_IgnoredCountsOnlyDuplicates(t *testing.T) {
	in := []timeline.Entry{
		at(0, timeline.Start),
		{},
		at(1, timeline.Start),
		{TimestampMs: 2, Status: timeline.StatusUnknown, Date: t0},
		at(3, timeline.Stop),
		at(4, timeline.Stop),
	}
	got := Clean(in)
	if len(got.Entries) != 2 {
		t.Fatalf("len = %d, want 2", len(got.Entries))
	}
	if got.Ignored != 2 {
		t.Errorf("Ignored = %d, want 2 (duplicates only)", got.Ignored)
	}
}

func TestClean_InvariantAndIdempotence(t *testing.T) {
	statuses := []timeline.Status{
		timeline.Stop, timeline.Stop, timeline.Start, timeline.Stop, timeline.Start,
		timeline.Start, timeline.Start, timeline.Stop, timeline.Stop, timeline.Start,
	}
	in := make([]timeline.Entry, len(statuses))
	for i, s := range statuses {
		in[i] = at((i*7)%11, s)
	}

	once := Clean(in)
	for i := 1; i < len(once.Entries); i++ {
		if once.Entries[i].Status == once.Entries[i-1].Status {
			t.Fatalf("adjacent duplicate status at %d", i)
		}
	}
	if len(once.Entries)+once.Ignored != len(in) {
		t.Errorf("kept %d + ignored %d != input %d", len(once.Entries), once.Ignored, len(in))
	}

	twice := Clean(once.Entries)
	if twice.Ignored != 0 || len(twice.Entries) != len(once.Entries) {
		t.Fatalf("second pass changed result: %+v", twice)
	}
	for i := range once.Entries {
		if twice.Entries[i] != once.Entries[i] {
			t.Errorf("entries[%d] differ after second pass", i)
		}
	}
}

func TestCleanRows(t *testing.T) {
	rows := []source.RawRow{
		{TimestampText: "2025-01-01 00:00:00", StatusText: "Session Start"},
		{TimestampText: "2025-01-01 00:01:00", StatusText: "Session Start"},
		{TimestampText: "yesterday", StatusText: "Session Stop"},
		{TimestampText: "2025-01-01 00:02:00", StatusText: "Interim-Update"},
		{TimestampText: "2025-01-01 00:03:00", StatusText: "Session Stop"},
	}
	got := CleanRows(rows, time.UTC)
	if len(got.Entries) != 2 {
		t.Fatalf("len = %d, want 2", len(got.Entries))
	}
	if got.Ignored != 1 {
		t.Errorf("Ignored = %d, want 1 (unparsable rows are not counted)", got.Ignored)
	}
}
