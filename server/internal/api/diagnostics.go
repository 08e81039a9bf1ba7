package api

import (
	"fmt"
	"sort"

	"github.com/linkpulse/linkpulse/pkg/types"
)

// DiagnosticHint is one human-readable insight about a subscriber's line.
// A UI shows these as chips on the subscriber card with Detail on click.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label shown on the chip (≤ 5 words).
	Title string `json:"title"`
	// Detail is the full explanation shown on click/hover.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

var levelRank = map[string]int{"critical": 0, "warning": 1, "info": 2, "ok": 3}

// computeDiagnostics derives human-readable diagnostic hints from a snapshot.
// Diagnostics are ordered: critical first, then warnings, then info.
func computeDiagnostics(snap *types.Snapshot) []DiagnosticHint {
	var hints []DiagnosticHint
	m := &snap.Metrics

	// ── Fetch problems ───────────────────────────────────────────────────────
	switch snap.Fetch.Outcome {
	case types.OutcomeFailed:
		hints = append(hints, DiagnosticHint{
			Key:   "fetch_failed",
			Level: "critical",
			Title: "Can't read session log",
			Detail: fmt.Sprintf(
				"The agent could not read the full session log from the upstream accounting system. "+
					"It got: \"%s\". Check that the endpoint is reachable and the credentials are valid. "+
					"Figures below only cover the %d events fetched before the failure.",
				snap.ErrorMessage, snap.Fetch.Entries,
			),
		})
		if snap.Fetch.Entries == 0 {
			return hints
		}
	case types.OutcomeCancelled:
		hints = append(hints, DiagnosticHint{
			Key:   "fetch_partial",
			Level: "warning",
			Title: "Partial session log",
			Detail: fmt.Sprintf(
				"The last fetch was cancelled after %d pages. "+
					"The score is computed from the %d events read so far and may shift on the next run.",
				snap.Fetch.Pages, snap.Fetch.Entries,
			),
		})
	}

	// ── No activity ──────────────────────────────────────────────────────────
	if m.Sessions == 0 && m.TotalDisconnects == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "no_sessions",
			Level: "info",
			Title: "No sessions in window",
			Detail: "The session log has no start or stop events in the analysis window. " +
				"Either the subscriber has not connected, or the upstream system is not recording accounting for this account.",
		})
		return sortHints(hints)
	}

	// ── Uptime ───────────────────────────────────────────────────────────────
	if p := m.PercentConnected; p != nil && *p < 100 {
		v := *p
		level := "info"
		switch {
		case v < 90:
			level = "critical"
		case v < 99:
			level = "warning"
		}
		if level != "info" || v < 99.9 {
			hints = append(hints, DiagnosticHint{
				Key:   "uptime",
				Level: level,
				Title: fmt.Sprintf("%.1f%% connected", v),
				Detail: fmt.Sprintf(
					"The line was connected for %.2f%% of the time between its first event and the end of the window. "+
						"Below 99%% usually means the subscriber noticed.",
					v,
				),
				Value: &v,
			})
		}
	}

	// ── Flapping ─────────────────────────────────────────────────────────────
	if rate := m.DisconnectsPerDay; rate >= 3 {
		v := rate
		level := "warning"
		if rate >= 12 {
			level = "critical"
		}
		hints = append(hints, DiagnosticHint{
			Key:   "flapping",
			Level: level,
			Title: fmt.Sprintf("%.1f drops per day", rate),
			Detail: fmt.Sprintf(
				"The session dropped %d times, about %.1f per day. "+
					"Frequent short sessions point at line noise, a failing CPE, or an aggressive idle timeout on the access concentrator.",
				m.TotalDisconnects, rate,
			),
			Value: &v,
		})
	}

	// ── Long outages ─────────────────────────────────────────────────────────
	if n := len(m.LongDisconnects); n > 0 {
		var longest float64
		for _, o := range m.LongDisconnects {
			if o.Seconds > longest {
				longest = o.Seconds
			}
		}
		v := float64(n)
		hints = append(hints, DiagnosticHint{
			Key:   "long_outages",
			Level: "warning",
			Title: fmt.Sprintf("%d long outages", n),
			Detail: fmt.Sprintf(
				"%d reconnects took longer than 30 minutes; the longest lasted %s. "+
					"Outages this long are rarely a renegotiation. Look for power loss at the premises or a fault on the access network.",
				n, humanSeconds(longest),
			),
			Value: &v,
		})
	}

	// ── Reconnect pattern ────────────────────────────────────────────────────
	if m.TotalDisconnects >= 3 && m.QuickReconnectRatio >= 0.8 {
		v := m.QuickReconnectRatio * 100
		hints = append(hints, DiagnosticHint{
			Key:   "quick_reconnects",
			Level: "info",
			Title: "Mostly brief drops",
			Detail: fmt.Sprintf(
				"%.0f%% of reconnects happened within five minutes. "+
					"The line comes back on its own, which suggests session renegotiation rather than a physical fault.",
				v,
			),
			Value: &v,
		})
	}
	if p95 := m.P95ReconnectSeconds; p95 != nil && *p95 > 300 && len(m.LongDisconnects) == 0 {
		v := *p95
		hints = append(hints, DiagnosticHint{
			Key:   "slow_reconnects",
			Level: "info",
			Title: "Slow reconnects",
			Detail: fmt.Sprintf(
				"One in twenty reconnects took %s or more. Check authentication latency on the RADIUS side.",
				humanSeconds(v),
			),
			Value: &v,
		})
	}

	// ── Time-of-day clustering ───────────────────────────────────────────────
	if h := m.PeakHour; h != nil && *h < len(m.HourlyDisconnects) && m.TotalDisconnects >= 4 {
		peak := m.HourlyDisconnects[*h]
		if share := float64(peak) / float64(m.TotalDisconnects); share >= 0.5 {
			v := share * 100
			hints = append(hints, DiagnosticHint{
				Key:   "peak_hour",
				Level: "info",
				Title: fmt.Sprintf("Drops cluster at %02d:00", *h),
				Detail: fmt.Sprintf(
					"%d of %d disconnects happened in the %02d:00 hour. "+
						"A fixed time of day usually means a scheduled session timeout or a nightly maintenance job.",
					peak, m.TotalDisconnects, *h,
				),
				Value: &v,
			})
		}
	}

	// ── Upstream certificate ─────────────────────────────────────────────────
	if c := snap.SourceCert; c != nil {
		switch c.Status {
		case types.CertExpired:
			hints = append(hints, DiagnosticHint{
				Key:    "source_cert",
				Level:  "critical",
				Title:  "Source cert expired",
				Detail: fmt.Sprintf("The certificate for %s expired on %s. Fetches will fail once clients enforce it.", c.Endpoint, c.NotAfter),
			})
		case types.CertExpiring:
			v := float64(c.DaysLeft)
			hints = append(hints, DiagnosticHint{
				Key:    "source_cert",
				Level:  "warning",
				Title:  fmt.Sprintf("Source cert: %dd left", c.DaysLeft),
				Detail: fmt.Sprintf("The certificate for %s expires on %s (issuer %q).", c.Endpoint, c.NotAfter, c.Issuer),
				Value:  &v,
			})
		}
	}

	// ── All clear ────────────────────────────────────────────────────────────
	if len(hints) == 0 {
		var score float64
		if m.MeanScore != nil {
			score = float64(*m.MeanScore)
		}
		hints = append(hints, DiagnosticHint{
			Key:   "healthy",
			Level: "ok",
			Title: "All clear",
			Detail: fmt.Sprintf(
				"The line is stable with a score of %.0f/100. "+
					"Drops are rare and reconnects are fast.",
				score,
			),
			Value: &score,
		})
	}

	return sortHints(hints)
}

func sortHints(hints []DiagnosticHint) []DiagnosticHint {
	sort.SliceStable(hints, func(i, j int) bool {
		return levelRank[hints[i].Level] < levelRank[hints[j].Level]
	})
	return hints
}

// humanSeconds formats a duration in seconds as "1h05m", "12m" or "45s".
func humanSeconds(sec float64) string {
	s := int(sec)
	switch {
	case s >= 3600:
		return fmt.Sprintf("%dh%02dm", s/3600, (s%3600)/60)
	case s >= 60:
		return fmt.Sprintf("%dm", s/60)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
