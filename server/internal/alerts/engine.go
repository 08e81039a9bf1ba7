package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/linkpulse/linkpulse/pkg/types"
	"github.com/linkpulse/linkpulse/server/internal/config"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert states.
const (
	StateFiring   = "firing"
	StateResolved = "resolved"
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID           string     `json:"id"`
	RuleName     string     `json:"rule_name"`
	SubscriberID string     `json:"subscriber_id"`
	Severity     string     `json:"severity"`
	Message      string     `json:"message"`
	Value        float64    `json:"value"`
	FiredAt      time.Time  `json:"fired_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	State        string     `json:"state"`
}

// Engine evaluates alert rules against incoming snapshots and delivers
// webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []config.AlertRule
	webhooks []config.WebhookConfig

	mu       sync.Mutex
	active   map[string]*Alert    // key: "ruleName:subscriberID"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts
	client   *http.Client
	now      func() time.Time
}

// New creates an Engine from the server alert configuration.
// An Engine with empty rules is valid; Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	return &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// Evaluate tests all configured rules against snap.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(snap *types.Snapshot) {
	if len(e.rules) == 0 {
		return
	}

	now := e.now()
	for _, rule := range e.rules {
		key := rule.Name + ":" + snap.SubscriberID
		fires, value := evalCondition(rule.Condition, snap)

		var notify *Alert
		e.mu.Lock()
		if fires {
			notify = e.fire(rule, key, snap, value, now)
		} else {
			notify = e.resolve(key, now)
		}
		e.mu.Unlock()

		if notify == nil {
			continue
		}
		if notify.State == StateFiring {
			slog.Warn("alerts: alert fired",
				"rule", rule.Name,
				"subscriber", snap.SubscriberID,
				"value", value,
				"severity", notify.Severity,
			)
		} else {
			slog.Info("alerts: alert resolved",
				"rule", rule.Name,
				"subscriber", snap.SubscriberID,
			)
		}
		go e.deliver(notify)
	}
}

// fire records a firing alert unless the rule is cooling down. It returns a
// copy for delivery, or nil. e.mu must be held.
func (e *Engine) fire(rule config.AlertRule, key string, snap *types.Snapshot, value float64, now time.Time) *Alert {
	cooldown := rule.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	if last, ok := e.lastFire[key]; ok && now.Sub(last) <= cooldown {
		return nil
	}

	sev := rule.Severity
	if sev == "" {
		sev = "warning"
	}
	name := snap.SubscriberID
	if snap.Label != "" {
		name = snap.Label + " (" + snap.SubscriberID + ")"
	}
	a := &Alert{
		ID:           fmt.Sprintf("%s:%s:%d", rule.Name, snap.SubscriberID, now.UnixNano()),
		RuleName:     rule.Name,
		SubscriberID: snap.SubscriberID,
		Severity:     sev,
		Value:        value,
		Message:      fmt.Sprintf("[%s] %s fired for %s: %s (value %.2f)", sev, rule.Name, name, rule.Condition, value),
		FiredAt:      now,
		State:        StateFiring,
	}
	e.active[key] = a
	e.lastFire[key] = now
	cp := *a
	return &cp
}

// resolve moves a firing alert to history. It returns a copy for delivery,
// or nil when nothing was firing. e.mu must be held.
func (e *Engine) resolve(key string, now time.Time) *Alert {
	a, ok := e.active[key]
	if !ok {
		return nil
	}
	resolved := now
	a.State = StateResolved
	a.ResolvedAt = &resolved
	delete(e.active, key)

	e.history = append(e.history, a)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
	cp := *a
	return &cp
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FiredAt.After(out[j].FiredAt)
	})
	return out
}

// FiringCount returns the number of alerts currently firing.
func (e *Engine) FiringCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}
