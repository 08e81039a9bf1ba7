package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/linkpulse/linkpulse/agent/internal/config"
)

// ErrCircuitOpen is returned without contacting the upstream while the
// breaker is open.
var ErrCircuitOpen = errors.New("source: upstream circuit open")

// breakerSource guards another Source with a consecutive-failure circuit
// breaker. Cancelled requests are not counted as failures.
type breakerSource struct {
	next Source
	cb   circuitbreaker.CircuitBreaker[*Page]
}

func withBreaker(next Source, cfg config.BreakerConfig) *breakerSource {
	delay := cfg.Delay
	if delay <= 0 {
		delay = config.DefaultBreakerDelay
	}
	cb := circuitbreaker.NewBuilder[*Page]().
		HandleIf(func(_ *Page, err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		}).
		WithFailureThreshold(uint(cfg.Failures)).
		WithDelay(delay).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("source: circuit breaker state change",
				"from", stateName(e.OldState), "to", stateName(e.NewState))
		}).
		Build()
	return &breakerSource{next: next, cb: cb}
}

func (s *breakerSource) FetchPage(ctx context.Context, q Query) (*Page, error) {
	page, err := failsafe.With(s.cb).WithContext(ctx).Get(func() (*Page, error) {
		return s.next.FetchPage(ctx, q)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return page, err
}

// Open reports whether the breaker is currently rejecting requests.
func (s *breakerSource) Open() bool {
	return s.cb.IsOpen()
}

func stateName(s circuitbreaker.State) string {
	switch s {
	case circuitbreaker.ClosedState:
		return "closed"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	case circuitbreaker.OpenState:
		return "open"
	default:
		return "unknown"
	}
}
