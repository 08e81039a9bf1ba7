package timeline

import (
	"testing"
	"time"
)

func TestParseTimestamp_Layouts(t *testing.T) {
	want := time.Date(2025, 1, 15, 10, 30, 45, 0, time.UTC)

	tests := []struct {
		name  string
		input string
	}{
		{"RFC3339", "2025-01-15T10:30:45Z"},
		{"RFC3339 offset", "2025-01-15T12:30:45+02:00"},
		{"space separated", "2025-01-15 10:30:45"},
		{"T separated no zone", "2025-01-15T10:30:45"},
		{"US 24h", "01/15/2025 10:30:45"},
		{"US 12h", "01/15/2025 10:30:45 AM"},
		{"US short 12h", "1/15/2025, 10:30:45 AM"},
		{"European", "15.01.2025 10:30:45"},
		{"padded", "  2025-01-15 10:30:45  "},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tc.input, time.UTC)
			if !ok {
				t.Fatalf("ParseTimestamp(%q) failed", tc.input)
			}
			if !got.Equal(want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tc.input, got, want)
			}
		})
	}
}

func TestParseTimestamp_LocalLayoutUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	got, ok := ParseTimestamp("2025-01-15 10:00:00", loc)
	if !ok {
		t.Fatal("ParseTimestamp failed")
	}
	if got.UTC().Hour() != 7 {
		t.Errorf("UTC hour = %d, want 7", got.UTC().Hour())
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	for _, in := range []string{"", "yesterday", "2025-13-45 99:99:99", "N/A"} {
		if _, ok := ParseTimestamp(in, time.UTC); ok {
			t.Errorf("ParseTimestamp(%q) should fail", in)
		}
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"Start", Start, true},
		{"STOP", Stop, true},
		{"Acct-Start", Start, true},
		{"acct_stop", Stop, true},
		{"Session Stop", Stop, true},
		{" start ", Start, true},
		{"Interim-Update", StatusUnknown, false},
		{"", StatusUnknown, false},
	}
	for _, tc := range tests {
		got, ok := ParseStatus(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseStatus(%q) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalize(t *testing.T) {
	e, ok := Normalize("2025-01-01 00:10:00.250", "Start", time.UTC)
	if !ok {
		t.Fatal("Normalize failed")
	}
	if e.Status != Start {
		t.Errorf("Status = %v, want start", e.Status)
	}
	want := time.Date(2025, 1, 1, 0, 10, 0, 250e6, time.UTC).UnixMilli()
	if e.TimestampMs != want {
		t.Errorf("TimestampMs = %d, want %d", e.TimestampMs, want)
	}
	if !e.Valid() {
		t.Error("Valid() = false, want true")
	}

	if _, ok := Normalize("garbage", "Start", time.UTC); ok {
		t.Error("Normalize with bad timestamp should fail")
	}
	if _, ok := Normalize("2025-01-01 00:10:00", "Alive", time.UTC); ok {
		t.Error("Normalize with unknown status should fail")
	}
}
