package api

import "github.com/linkpulse/linkpulse/pkg/types"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	// OverallScore is the average mean score across subscribers that have
	// one; null when none do.
	OverallScore    *float64 `json:"overall_score"`
	State           string   `json:"state"`
	SubscriberCount int      `json:"subscriber_count"`
	HealthyCount    int      `json:"healthy_count"`
	DegradedCount   int      `json:"degraded_count"`
	CriticalCount   int      `json:"critical_count"`
	UnknownCount    int      `json:"unknown_count"`
	AlertCount      int      `json:"alert_count"`
}

// SubscriberResponse is one subscriber entry in GET /api/v1/subscribers or
// GET /api/v1/subscribers/{id}. Metrics is only included in the detail view.
type SubscriberResponse struct {
	SubscriberID      string            `json:"subscriber_id"`
	Label             string            `json:"label,omitempty"`
	AgentID           string            `json:"agent_id,omitempty"`
	State             string            `json:"state"`
	MeanScore         *int              `json:"mean_score"`
	MedianScore       *int              `json:"median_score"`
	UptimePct         *float64          `json:"uptime_pct"`
	Disconnects       int               `json:"disconnects"`
	DisconnectsPerDay float64           `json:"disconnects_per_day"`
	LongDisconnects   int               `json:"long_disconnects"`
	Fetch             types.Fetch       `json:"fetch"`
	SourceCert        *types.CertStatus `json:"source_cert,omitempty"`
	ErrorMessage      string            `json:"error_message,omitempty"`
	WindowStart       string            `json:"window_start"` // RFC3339
	WindowEnd         string            `json:"window_end"`   // RFC3339
	Diagnostics       []DiagnosticHint  `json:"diagnostics"`
	Metrics           *types.Metrics    `json:"metrics,omitempty"`
	LastSeen          string            `json:"last_seen"` // RFC3339
}

// CertResponse is one entry in GET /api/v1/certs.
type CertResponse struct {
	SubscriberID string `json:"subscriber_id"`
	types.CertStatus
}

// SnapshotResponse is the payload for GET /api/v1/snapshot.
type SnapshotResponse struct {
	Subscribers []SubscriberResponse `json:"subscribers"`
	GeneratedAt string               `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
