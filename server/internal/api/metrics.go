package api

import (
	"log/slog"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/linkpulse/linkpulse/server/internal/store"
)

var metricStates = []string{"healthy", "degraded", "critical", "unknown"}

// metrics returns GET /metrics: live subscriber figures in the Prometheus
// text exposition format.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	w.WriteHeader(http.StatusOK)

	enc := expfmt.NewEncoder(w, format)
	for _, mf := range h.families() {
		if len(mf.Metric) == 0 {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			slog.Error("api: encode metrics failed", "family", mf.GetName(), "err", err)
			return
		}
	}
}

// families builds the metric families from the live store.
func (h *Handler) families() []*dto.MetricFamily {
	entries := h.store.List()

	subscribers := gaugeFamily("linkpulse_subscribers", "Subscribers with a live snapshot.")
	subscribers.Metric = append(subscribers.Metric, gauge(float64(len(entries))))

	score := gaugeFamily("linkpulse_subscriber_score", "Stability score (0-100) by variant.")
	uptime := gaugeFamily("linkpulse_subscriber_uptime_percent", "Percent of the observed span the line was connected.")
	disconnects := gaugeFamily("linkpulse_subscriber_disconnects", "Disconnects in the analysis window.")
	perDay := gaugeFamily("linkpulse_subscriber_disconnects_per_day", "Disconnects per day over the observed span.")
	long := gaugeFamily("linkpulse_subscriber_long_disconnects", "Reconnect gaps longer than 30 minutes.")
	state := gaugeFamily("linkpulse_subscriber_state", "1 for the subscriber's current health state.")
	fetch := gaugeFamily("linkpulse_subscriber_fetch_success_percent", "Share of recent agent fetches that completed.")
	lastSeen := gaugeFamily("linkpulse_subscriber_last_seen_timestamp_seconds", "Unix time the latest snapshot was received.")
	certDays := gaugeFamily("linkpulse_source_cert_days_left", "Days until the upstream source certificate expires.")

	for _, e := range entries {
		appendSubscriber(e, score, uptime, disconnects, perDay, long, state, fetch, lastSeen, certDays)
	}

	firing := gaugeFamily("linkpulse_alerts_firing", "Alerts currently firing.")
	if h.deps.Alerts != nil {
		firing.Metric = append(firing.Metric, gauge(float64(h.deps.Alerts.FiringCount())))
	}

	return []*dto.MetricFamily{subscribers, score, uptime, disconnects, perDay, long, state, fetch, lastSeen, certDays, firing}
}

func appendSubscriber(e *store.Entry, score, uptime, disconnects, perDay, long, state, fetch, lastSeen, certDays *dto.MetricFamily) {
	snap := e.Snapshot
	m := &snap.Metrics
	sub := label("subscriber", snap.SubscriberID)

	if m.MeanScore != nil {
		score.Metric = append(score.Metric, gauge(float64(*m.MeanScore), sub, label("variant", "mean")))
	}
	if m.MedianScore != nil {
		score.Metric = append(score.Metric, gauge(float64(*m.MedianScore), sub, label("variant", "median")))
	}
	if m.PercentConnected != nil {
		uptime.Metric = append(uptime.Metric, gauge(*m.PercentConnected, sub))
	}
	disconnects.Metric = append(disconnects.Metric, gauge(float64(m.TotalDisconnects), sub))
	perDay.Metric = append(perDay.Metric, gauge(m.DisconnectsPerDay, sub))
	long.Metric = append(long.Metric, gauge(float64(len(m.LongDisconnects)), sub))
	for _, s := range metricStates {
		v := 0.0
		if snap.State == s {
			v = 1
		}
		state.Metric = append(state.Metric, gauge(v, sub, label("state", s)))
	}
	fetch.Metric = append(fetch.Metric, gauge(snap.Fetch.SuccessPct, sub))
	lastSeen.Metric = append(lastSeen.Metric, gauge(float64(e.UpdatedAt.Unix()), sub))
	if c := snap.SourceCert; c != nil && c.NotAfter != "" {
		certDays.Metric = append(certDays.Metric, gauge(float64(c.DaysLeft), sub, label("endpoint", c.Endpoint)))
	}
}

func gaugeFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
}

func gauge(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: proto.Float64(v)},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}
