package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/linkpulse/linkpulse/agent/internal/config"
)

// stubSource counts calls and fails while err is set.
type stubSource struct {
	calls int
	err   error
}

func (s *stubSource) FetchPage(ctx context.Context, _ Query) (*Page, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Page{Rows: []RawRow{{TimestampText: "2024-03-01 08:00:00", StatusText: "start"}}}, nil
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	stub := &stubSource{err: errors.New("connection refused")}
	s := withBreaker(stub, config.BreakerConfig{Failures: 3, Delay: time.Hour})

	for i := 0; i < 3; i++ {
		if _, err := s.FetchPage(context.Background(), Query{}); err == nil {
			t.Fatalf("call %d: expected upstream error", i)
		}
	}
	if !s.Open() {
		t.Fatal("breaker should be open after 3 failures")
	}

	_, err := s.FetchPage(context.Background(), Query{})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if stub.calls != 3 {
		t.Errorf("upstream calls = %d, want 3 (open circuit must not reach upstream)", stub.calls)
	}
}

func TestBreaker_CancellationNotCounted(t *testing.T) {
	stub := &stubSource{err: context.Canceled}
	s := withBreaker(stub, config.BreakerConfig{Failures: 1, Delay: time.Hour})

	for i := 0; i < 3; i++ {
		s.FetchPage(context.Background(), Query{}) //nolint:errcheck
	}
	if s.Open() {
		t.Error("cancelled requests should not open the breaker")
	}
}

func TestBreaker_PassesPages(t *testing.T) {
	s := withBreaker(&stubSource{}, config.BreakerConfig{Failures: 2})
	page, err := s.FetchPage(context.Background(), Query{})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(page.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(page.Rows))
	}
}
