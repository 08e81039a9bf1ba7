package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/linkpulse/linkpulse/pkg/types"
	"github.com/linkpulse/linkpulse/server/internal/alerts"
	"github.com/linkpulse/linkpulse/server/internal/history"
	"github.com/linkpulse/linkpulse/server/internal/report"
	"github.com/linkpulse/linkpulse/server/internal/store"
)

const subscribersPrefix = "/api/v1/subscribers/"

// AlertSource lists current alerts.
type AlertSource interface {
	Active() []*alerts.Alert
	FiringCount() int
}

// HistorySource lists persisted runs for a subscriber.
type HistorySource interface {
	List(ctx context.Context, subscriberID string, limit int) ([]history.Run, error)
}

// ChartRenderer draws a named chart for a snapshot.
type ChartRenderer interface {
	Render(w io.Writer, name string, snap *types.Snapshot) error
}

// Deps are the optional collaborators of the API. Nil fields disable the
// endpoints that need them.
type Deps struct {
	Alerts  AlertSource
	History HistorySource
	Charts  ChartRenderer
}

// Handler is the HTTP handler for all /api/v1/* endpoints and /metrics.
// It reads subscriber state from the snapshot store and returns JSON responses.
type Handler struct {
	store *store.Store
	deps  Deps
	mux   *http.ServeMux
	now   func() time.Time
}

// New creates a Handler wired to the given snapshot store and registers all routes.
func New(st *store.Store, deps Deps) http.Handler {
	h := &Handler{store: st, deps: deps, mux: http.NewServeMux(), now: time.Now}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/subscribers", h.listSubscribers)
	h.mux.HandleFunc(subscribersPrefix, h.subscriberTree)
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)
	h.mux.HandleFunc("/api/v1/certs", h.certs)
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)
	h.mux.HandleFunc("/metrics", h.metrics)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: overall score and state counts.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries := h.store.List()
	resp := HealthResponse{SubscriberCount: len(entries)}
	if h.deps.Alerts != nil {
		resp.AlertCount = h.deps.Alerts.FiringCount()
	}

	var (
		total  float64
		scored int
	)
	for _, e := range entries {
		if s := e.Snapshot.Metrics.MeanScore; s != nil {
			total += float64(*s)
			scored++
		}
		switch e.Snapshot.State {
		case "healthy":
			resp.HealthyCount++
		case "degraded":
			resp.DegradedCount++
		case "critical":
			resp.CriticalCount++
		default:
			resp.UnknownCount++
		}
	}

	if scored == 0 {
		resp.State = "unknown"
		jsonResp(w, http.StatusOK, resp)
		return
	}
	avg := total / float64(scored)
	resp.OverallScore = &avg
	resp.State = stateFromScore(avg)
	jsonResp(w, http.StatusOK, resp)
}

// listSubscribers returns GET /api/v1/subscribers: all live subscribers.
func (h *Handler) listSubscribers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.summaries())
}

// subscriberTree dispatches /api/v1/subscribers/{id}[/history|/charts/{name}.png].
func (h *Handler) subscriberTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, subscribersPrefix), "/")
	if rest == "" {
		h.listSubscribers(w, r)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]

	switch {
	case len(parts) == 1:
		h.getSubscriber(w, id)
	case len(parts) == 2 && parts[1] == "history":
		h.subscriberHistory(w, r, id)
	case len(parts) == 3 && parts[1] == "charts" && strings.HasSuffix(parts[2], ".png"):
		h.subscriberChart(w, id, strings.TrimSuffix(parts[2], ".png"))
	default:
		jsonErr(w, http.StatusNotFound, "not found")
	}
}

// getSubscriber returns GET /api/v1/subscribers/{id}: the latest snapshot
// with full metrics. 404 if unknown or stale.
func (h *Handler) getSubscriber(w http.ResponseWriter, id string) {
	e, ok := h.store.Live(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "subscriber not found")
		return
	}
	resp := toSubscriberResponse(e)
	m := e.Snapshot.Metrics
	resp.Metrics = &m
	jsonResp(w, http.StatusOK, resp)
}

// subscriberHistory returns GET /api/v1/subscribers/{id}/history?limit=N.
// History outlives the store TTL, so unknown-to-store subscribers are not
// rejected.
func (h *Handler) subscriberHistory(w http.ResponseWriter, r *http.Request, id string) {
	if h.deps.History == nil {
		jsonErr(w, http.StatusServiceUnavailable, "history disabled")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := h.deps.History.List(r.Context(), id, limit)
	if err != nil {
		slog.Error("api: history query failed", "subscriber", id, "err", err)
		jsonErr(w, http.StatusInternalServerError, "history query failed")
		return
	}
	jsonResp(w, http.StatusOK, runs)
}

// subscriberChart returns GET /api/v1/subscribers/{id}/charts/{name}.png.
func (h *Handler) subscriberChart(w http.ResponseWriter, id, name string) {
	if h.deps.Charts == nil {
		jsonErr(w, http.StatusServiceUnavailable, "charts disabled")
		return
	}
	switch name {
	case report.ChartHourly, report.ChartRolling, report.ChartSessions:
	default:
		jsonErr(w, http.StatusNotFound, "unknown chart")
		return
	}
	e, ok := h.store.Live(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "subscriber not found")
		return
	}

	var buf bytes.Buffer
	if err := h.deps.Charts.Render(&buf, name, e.Snapshot); err != nil {
		if errors.Is(err, report.ErrNoData) {
			jsonErr(w, http.StatusNotFound, "not enough data for chart")
			return
		}
		slog.Error("api: chart render failed", "subscriber", id, "chart", name, "err", err)
		jsonErr(w, http.StatusInternalServerError, "chart render failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// alerts returns GET /api/v1/alerts: firing alerts plus those resolved in
// the past hour.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	out := []*alerts.Alert{}
	if h.deps.Alerts != nil {
		out = append(out, h.deps.Alerts.Active()...)
	}
	jsonResp(w, http.StatusOK, out)
}

// certs returns GET /api/v1/certs: upstream source certificate status per
// subscriber.
func (h *Handler) certs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	out := make([]CertResponse, 0)
	for _, e := range h.store.List() {
		if c := e.Snapshot.SourceCert; c != nil {
			out = append(out, CertResponse{SubscriberID: e.Snapshot.SubscriberID, CertStatus: *c})
		}
	}
	jsonResp(w, http.StatusOK, out)
}

// snapshot returns GET /api/v1/snapshot: full JSON dump of all live subscribers.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildSnapshot(h.store, h.now()))
}

// BuildSnapshot returns the /api/v1/snapshot payload for the live entries
// in st. The WebSocket hub broadcasts the same document.
func BuildSnapshot(st *store.Store, now time.Time) SnapshotResponse {
	entries := st.List()
	subs := make([]SubscriberResponse, 0, len(entries))
	for _, e := range entries {
		subs = append(subs, toSubscriberResponse(e))
	}
	return SnapshotResponse{
		Subscribers: subs,
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}
}

// --- helpers ----------------------------------------------------------------

func (h *Handler) summaries() []SubscriberResponse {
	return BuildSnapshot(h.store, h.now()).Subscribers
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// stateFromScore converts a 0-100 score to a health state string, using the
// same thresholds as the agent's analyzer.
func stateFromScore(score float64) string {
	switch {
	case score >= 85:
		return "healthy"
	case score >= 60:
		return "degraded"
	default:
		return "critical"
	}
}

// toSubscriberResponse maps a store.Entry to its JSON summary.
func toSubscriberResponse(e *store.Entry) SubscriberResponse {
	snap := e.Snapshot
	m := &snap.Metrics
	return SubscriberResponse{
		SubscriberID:      snap.SubscriberID,
		Label:             snap.Label,
		AgentID:           snap.AgentID,
		State:             snap.State,
		MeanScore:         m.MeanScore,
		MedianScore:       m.MedianScore,
		UptimePct:         m.PercentConnected,
		Disconnects:       m.TotalDisconnects,
		DisconnectsPerDay: m.DisconnectsPerDay,
		LongDisconnects:   len(m.LongDisconnects),
		Fetch:             snap.Fetch,
		SourceCert:        snap.SourceCert,
		ErrorMessage:      snap.ErrorMessage,
		WindowStart:       unixRFC3339(snap.WindowStartUnix),
		WindowEnd:         unixRFC3339(snap.WindowEndUnix),
		Diagnostics:       computeDiagnostics(snap),
		LastSeen:          e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func unixRFC3339(sec int64) string {
	if sec == 0 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
