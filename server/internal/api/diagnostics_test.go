package api

import (
	"testing"

	"github.com/linkpulse/linkpulse/pkg/types"
)

func intp(v int) *int { return &v }
func floatp(v float64) *float64 { return &v }

func keys(hints []DiagnosticHint) map[string]string {
	out := make(map[string]string, len(hints))
	for _, h := range hints {
		out[h.Key] = h.Level
	}
	return out
}

func TestDiagnostics_AllClear(t *testing.T) {
	snap := &types.Snapshot{
		State: "healthy",
		Fetch: types.Fetch{Outcome: types.OutcomeComplete},
		Metrics: types.Metrics{
			MeanScore:         intp(96),
			PercentConnected:  floatp(99.99),
			Sessions:          2,
			TotalDisconnects:  1,
			DisconnectsPerDay: 0.14,
		},
	}
	hints := computeDiagnostics(snap)
	if len(hints) != 1 || hints[0].Key != "healthy" || hints[0].Level != "ok" {
		t.Errorf("hints = %+v", hints)
	}
}

func TestDiagnostics_FetchFailedWithoutData(t *testing.T) {
	snap := &types.Snapshot{
		Fetch:        types.Fetch{Outcome: types.OutcomeFailed},
		ErrorMessage: "failed to fetch logs: upstream 503",
	}
	hints := computeDiagnostics(snap)
	if len(hints) != 1 || hints[0].Key != "fetch_failed" || hints[0].Level != "critical" {
		t.Errorf("hints = %+v", hints)
	}
}

func TestDiagnostics_NoSessions(t *testing.T) {
	snap := &types.Snapshot{State: "unknown", Fetch: types.Fetch{Outcome: types.OutcomeComplete}}
	got := keys(computeDiagnostics(snap))
	if got["no_sessions"] != "info" || len(got) != 1 {
		t.Errorf("hints = %v", got)
	}
}

func TestDiagnostics_UnstableLine(t *testing.T) {
	hourly := make([]int, 24)
	hourly[3] = 30
	hourly[14] = 10
	peak := 3
	snap := &types.Snapshot{
		State: "critical",
		Fetch: types.Fetch{Outcome: types.OutcomeCancelled, Pages: 2, Entries: 80},
		Metrics: types.Metrics{
			MeanScore:           intp(22),
			PercentConnected:    floatp(85),
			Sessions:            40,
			TotalDisconnects:    40,
			DisconnectsPerDay:   13.3,
			QuickReconnectRatio: 0.9,
			LongDisconnects:     []types.Outage{{Seconds: 3900}, {Seconds: 2000}},
			P95ReconnectSeconds: floatp(3900),
			HourlyDisconnects:   hourly,
			PeakHour:            &peak,
		},
		SourceCert: &types.CertStatus{Endpoint: "https://radius.local", Status: types.CertExpiring, DaysLeft: 7},
	}
	hints := computeDiagnostics(snap)
	got := keys(hints)

	want := map[string]string{
		"fetch_partial":    "warning",
		"uptime":           "critical",
		"flapping":         "critical",
		"long_outages":     "warning",
		"quick_reconnects": "info",
		"peak_hour":        "info",
		"source_cert":      "warning",
	}
	for k, lvl := range want {
		if got[k] != lvl {
			t.Errorf("%s: level %q, want %q", k, got[k], lvl)
		}
	}
	if _, ok := got["slow_reconnects"]; ok {
		t.Error("slow_reconnects should be suppressed when long outages are reported")
	}
	if _, ok := got["healthy"]; ok {
		t.Error("unexpected all-clear hint")
	}

	for i := 1; i < len(hints); i++ {
		if levelRank[hints[i-1].Level] > levelRank[hints[i].Level] {
			t.Errorf("hints not ordered by severity at %d: %s before %s", i, hints[i-1].Level, hints[i].Level)
		}
	}
}

func TestHumanSeconds(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{45, "45s"},
		{720, "12m"},
		{3900, "1h05m"},
	}
	for _, tc := range tests {
		if got := humanSeconds(tc.in); got != tc.want {
			t.Errorf("humanSeconds(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
