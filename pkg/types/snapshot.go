package types

import "fmt"

// Fetch outcomes reported in Snapshot.Outcome.
const (
	OutcomeComplete  = "complete"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Snapshot is one analysis run for one subscriber, as shipped by the agent.
type Snapshot struct {
	SubscriberID  string `json:"subscriber_id"`
	Label         string `json:"label,omitempty"`
	AgentID       string `json:"agent_id,omitempty"`
	TimestampUnix int64  `json:"timestamp_unix"`

	// WindowStartUnix and WindowEndUnix bound the requested log window.
	WindowStartUnix int64 `json:"window_start_unix"`
	WindowEndUnix   int64 `json:"window_end_unix"`

	// State is one of healthy | degraded | critical | unknown.
	State string `json:"state"`

	Fetch Fetch `json:"fetch"`

	// SourceCert describes the upstream endpoint's TLS certificate, when the
	// source is served over https.
	SourceCert *CertStatus `json:"source_cert,omitempty"`

	// ErrorMessage is non-empty when the fetch was cancelled or failed; the
	// metrics then cover the partial log.
	ErrorMessage string `json:"error_message,omitempty"`

	Metrics Metrics `json:"metrics"`
}

// Fetch summarises the pagination run behind a snapshot.
type Fetch struct {
	Outcome  string `json:"outcome"`
	Pages    int    `json:"pages"`
	Rows     int    `json:"rows"`
	Entries  int    `json:"entries"`
	Dropped  int    `json:"dropped"`
	Total    *int   `json:"total"`
	Duration int64  `json:"duration_ms"`

	// SuccessPct is the share of recent runs for this subscriber that
	// completed without a transport failure.
	SuccessPct float64 `json:"success_pct"`
}

// Metrics mirrors the analyzer's Metrics record. Pointer fields are null
// when not applicable.
type Metrics struct {
	FirstUnix *int64  `json:"first_unix"`
	EndUnix   *int64  `json:"end_unix"`
	SpanDays  float64 `json:"span_days"`
	Ignored   int     `json:"ignored"`

	PercentConnected *float64 `json:"percent_connected"`
	ConnectedSeconds float64  `json:"connected_seconds"`

	Sessions              int      `json:"sessions"`
	AvgSessionMinutes     *float64 `json:"avg_session_minutes"`
	MedianSessionMinutes  *float64 `json:"median_session_minutes"`
	LongestSessionMinutes *float64 `json:"longest_session_minutes"`

	TotalDisconnects  int     `json:"total_disconnects"`
	DisconnectsPerDay float64 `json:"disconnects_per_day"`

	Reconnects             int      `json:"reconnects"`
	AvgReconnectSeconds    *float64 `json:"avg_reconnect_seconds"`
	MedianReconnectSeconds *float64 `json:"median_reconnect_seconds"`
	P95ReconnectSeconds    *float64 `json:"p95_reconnect_seconds"`
	FastReconnects         int      `json:"fast_reconnects"`
	QuickReconnects        int      `json:"quick_reconnects"`
	QuickReconnectRatio    float64  `json:"quick_reconnect_ratio"`

	LongDisconnects []Outage `json:"long_disconnects"`

	HourlyDisconnects  []int      `json:"hourly_disconnects"`
	WeekdayDisconnects []int      `json:"weekday_disconnects"`
	DailyDisconnects   []DayCount `json:"daily_disconnects"`
	PeakHour           *int       `json:"peak_hour"`
	PeakDay            string     `json:"peak_day,omitempty"`

	SessionBins   []Bin      `json:"session_bins"`
	ReconnectBins []Bin      `json:"reconnect_bins"`
	Rolling7Day   []DayCount `json:"rolling_7day"`

	MeanScore       *int       `json:"mean_score"`
	MedianScore     *int       `json:"median_score"`
	MeanBreakdown   *Breakdown `json:"mean_breakdown,omitempty"`
	MedianBreakdown *Breakdown `json:"median_breakdown,omitempty"`
}

// Outage is a reconnect gap longer than the long-disconnect threshold.
type Outage struct {
	StopUnix  int64   `json:"stop_unix"`
	StartUnix int64   `json:"start_unix"`
	Seconds   float64 `json:"seconds"`
}

// Bin is one histogram bucket.
type Bin struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DayCount is a count for one calendar day (YYYY-MM-DD).
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Breakdown holds the terms of one stability score.
type Breakdown struct {
	Uptime       float64 `json:"uptime"`
	SessionBonus float64 `json:"session_bonus"`
	FastBonus    float64 `json:"fast_bonus"`
	Flapping     float64 `json:"flapping_penalty"`
	LongOutage   float64 `json:"long_outage_penalty"`
	Raw          float64 `json:"raw"`
	Floored      bool    `json:"floored"`
	Score        int     `json:"score"`
}

// Certificate states reported in CertStatus.Status.
const (
	CertValid       = "valid"
	CertExpiring    = "expiring"
	CertExpired     = "expired"
	CertUnreachable = "unreachable"
)

// CertStatus describes a TLS leaf certificate.
type CertStatus struct {
	Endpoint string `json:"endpoint"`
	AuthType string `json:"auth_type"`
	Status   string `json:"status"`
	NotAfter string `json:"not_after,omitempty"`
	Issuer   string `json:"issuer,omitempty"`
	DaysLeft int    `json:"days_left"`
}

// SendResponse acknowledges a Snapshot.
type SendResponse struct {
	Ok      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Validate checks the structural fields the server relies on.
func (s *Snapshot) Validate() error {
	if s.SubscriberID == "" {
		return fmt.Errorf("subscriber_id is required")
	}
	if s.TimestampUnix <= 0 {
		return fmt.Errorf("timestamp_unix must be positive")
	}
	switch s.Fetch.Outcome {
	case OutcomeComplete, OutcomeCancelled, OutcomeFailed:
	default:
		return fmt.Errorf("unknown fetch outcome %q", s.Fetch.Outcome)
	}
	return nil
}
