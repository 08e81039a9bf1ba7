package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linkpulse/linkpulse/agent/internal/analyzer"
	"github.com/linkpulse/linkpulse/agent/internal/collector"
	"github.com/linkpulse/linkpulse/agent/internal/config"
	"github.com/linkpulse/linkpulse/agent/internal/paginator"
	"github.com/linkpulse/linkpulse/agent/internal/security"
	"github.com/linkpulse/linkpulse/agent/internal/source"
	"github.com/linkpulse/linkpulse/pkg/types"
)

// historyWindow is the number of recent runs tracked per subscriber for
// Report.SuccessPct.
const historyWindow = 20

// Report is the outcome of one pipeline run for one subscriber.
type Report struct {
	Subscriber config.Subscriber

	// WindowStart and WindowEnd bound the requested log window.
	WindowStart time.Time
	WindowEnd   time.Time

	Duration time.Duration
	Fetch    *paginator.Result
	Metrics  *analyzer.Metrics

	// SuccessPct is the share of this subscriber's recent runs that did not
	// fail with a transport error.
	SuccessPct float64

	// SourceCert is the upstream certificate status observed at the start of
	// the cycle. Nil for plain-http and file sources.
	SourceCert *types.CertStatus
}

// settings is the reloadable part of the agent config.
type settings struct {
	interval    time.Duration
	lookback    time.Duration
	pageSize    int
	maxPages    int
	loc         *time.Location
	params      analyzer.ScoreParams
	subscribers []config.Subscriber
}

func settingsFrom(cfg config.AgentConfig) *settings {
	return &settings{
		interval:    cfg.PollInterval,
		lookback:    cfg.Lookback,
		pageSize:    cfg.PageSize,
		maxPages:    cfg.MaxPages,
		loc:         cfg.Location(),
		params:      analyzer.ParamsFromConfig(cfg.Scoring),
		subscribers: append([]config.Subscriber(nil), cfg.Subscribers...),
	}
}

// Poller drives the pipeline. All exported methods are safe for concurrent use.
type Poller struct {
	src      source.Source
	onReport func(*Report)
	now      func() time.Time

	checkCert func(context.Context) *types.CertStatus

	cur atomic.Pointer[settings]

	mu      sync.Mutex
	history map[string][]bool
}

// New returns a Poller reading from src and passing every Report to onReport.
func New(cfg config.AgentConfig, src source.Source, onReport func(*Report)) *Poller {
	p := &Poller{
		src:      src,
		onReport: onReport,
		now:      time.Now,
		history:  make(map[string][]bool),
	}
	srcCfg := cfg.Source
	p.checkCert = func(ctx context.Context) *types.CertStatus {
		return security.Check(ctx, srcCfg)
	}
	p.cur.Store(settingsFrom(cfg))
	return p
}

// Update replaces the reloadable settings. A run already in progress keeps
// the settings it started with.
func (p *Poller) Update(cfg config.AgentConfig) {
	p.cur.Store(settingsFrom(cfg))
	slog.Info("poller: settings updated", "subscribers", len(cfg.Subscribers),
		"poll_interval", cfg.PollInterval)
}

// Run polls immediately and then every poll interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	interval := p.cur.Load().interval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.RunOnce(ctx)

		if next := p.cur.Load().interval; next != interval {
			interval = next
			ticker.Reset(interval)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce analyses every configured subscriber in order. It stops early when
// ctx is cancelled; the interrupted subscriber's partial report is still
// delivered.
func (p *Poller) RunOnce(ctx context.Context) {
	st := p.cur.Load()

	var cert *types.CertStatus
	if p.checkCert != nil {
		cert = p.checkCert(ctx)
		if cert != nil && cert.Status != types.CertValid {
			slog.Warn("poller: source certificate", "endpoint", cert.Endpoint,
				"status", cert.Status, "days_left", cert.DaysLeft)
		}
	}

	for _, sub := range st.subscribers {
		if ctx.Err() != nil {
			return
		}
		r := p.analyze(ctx, st, sub)
		r.SourceCert = cert
		if p.onReport != nil {
			p.onReport(r)
		}
	}
}

// Analyze runs the pipeline once for sub with the current settings.
func (p *Poller) Analyze(ctx context.Context, sub config.Subscriber) *Report {
	return p.analyze(ctx, p.cur.Load(), sub)
}

func (p *Poller) analyze(ctx context.Context, st *settings, sub config.Subscriber) *Report {
	end := p.now()
	start := end.Add(-st.lookback)
	log := slog.With("subscriber", sub.Username)

	res := paginator.FetchAll(ctx, p.src, sub.Username, paginator.Options{
		Start:    start,
		End:      end,
		PageSize: st.pageSize,
		MaxPages: st.maxPages,
		Location: st.loc,
		OnProgress: func(fetched, page int, total *int) {
			if total != nil {
				log.Debug("poller: fetch progress", "page", page, "fetched", fetched, "total", *total)
			} else {
				log.Debug("poller: fetch progress", "page", page, "fetched", fetched)
			}
		},
	})

	switch res.Outcome {
	case paginator.OutcomeCancelled:
		log.Warn("poller: fetch cancelled", "pages", res.Pages, "entries", len(res.Entries))
	case paginator.OutcomeFailed:
		log.Error("poller: failed to fetch logs", "pages", res.Pages,
			"entries", len(res.Entries), "err", res.Err)
	}

	// The observed window runs from the first to the last entry; an open
	// final session closes at the last entry.
	cleaned := collector.Clean(res.Entries)
	m := analyzer.New(cleaned,
		analyzer.WithLocation(st.loc),
		analyzer.WithScoreParams(st.params),
	).ComputeMetrics()

	r := &Report{
		Subscriber:  sub,
		WindowStart: start,
		WindowEnd:   end,
		Duration:    p.now().Sub(end),
		Fetch:       res,
		Metrics:     m,
		SuccessPct:  p.record(sub.Username, res.Outcome != paginator.OutcomeFailed),
	}

	log.Info("poller: subscriber analysed",
		"outcome", res.Outcome.String(),
		"entries", len(cleaned.Entries),
		"ignored", cleaned.Ignored,
		"state", m.State,
		"duration", r.Duration)
	return r
}

// record appends one run outcome and returns the success percentage over
// the tracked window.
func (p *Poller) record(username string, ok bool) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.history[username]
	if len(h) >= historyWindow {
		h = h[1:]
	}
	h = append(h, ok)
	p.history[username] = h

	var n int
	for _, v := range h {
		if v {
			n++
		}
	}
	return float64(n) / float64(len(h)) * 100
}
