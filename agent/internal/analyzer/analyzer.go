package analyzer

import (
	"time"

	"github.com/linkpulse/linkpulse/agent/internal/collector"
	"github.com/linkpulse/linkpulse/agent/internal/timeline"
)

// Gap is the interval between a disconnect and the following reconnect.
type Gap struct {
	Stop    time.Time `json:"stop"`
	Start   time.Time `json:"start"`
	Seconds float64   `json:"seconds"`
}

// Session is one connected interval. Open is true when the session had not
// ended by the close of the timeline.
type Session struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Seconds float64   `json:"seconds"`
	Open    bool      `json:"open,omitempty"`
}

type linkState int

const (
	stateUnset linkState = iota
	stateUp
	stateDown
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLocation sets the zone used for hour, weekday and calendar-day
// bucketing. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(a *Analyzer) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithWindowEnd extends the observed window to t when t is later than the
// last entry. A session still open at the end is closed at t.
func WithWindowEnd(t time.Time) Option {
	return func(a *Analyzer) { a.windowEnd = t }
}

// WithScoreParams replaces the default scoring constants.
func WithScoreParams(p ScoreParams) Option {
	return func(a *Analyzer) { a.params = p }
}

// Analyzer holds the aggregates of one pass over a cleaned timeline.
type Analyzer struct {
	loc       *time.Location
	windowEnd time.Time
	params    ScoreParams
	ignored   int

	first, end time.Time
	hasEntries bool

	sessions        []Session
	reconnects      []Gap
	longDisconnects []Gap
	disconnectTimes []time.Time

	totalDisconnects int
	hourly           [24]int
	weekday          [7]int
	daily            map[Date]int
}

// New runs the forward pass over cleaned. The entries must be ascending, as
// produced by collector.Clean.
func New(cleaned collector.Cleaned, opts ...Option) *Analyzer {
	a := &Analyzer{
		loc:     time.UTC,
		params:  DefaultScoreParams(),
		ignored: cleaned.Ignored,
		daily:   make(map[Date]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.pass(cleaned.Entries)
	return a
}

func (a *Analyzer) pass(entries []timeline.Entry) {
	if len(entries) == 0 {
		return
	}
	a.hasEntries = true
	a.first = entries[0].Date
	a.end = entries[len(entries)-1].Date
	if a.windowEnd.After(a.end) {
		a.end = a.windowEnd
	}

	longAfter := a.params.LongDisconnectAfter.Seconds()
	state := stateUnset
	var last time.Time

	for _, e := range entries {
		now := e.Date
		switch e.Status {
		case timeline.Start:
			if state == stateUp {
				continue
			}
			if state == stateDown {
				if sec := now.Sub(last).Seconds(); sec > 0 {
					g := Gap{Stop: last, Start: now, Seconds: sec}
					a.reconnects = append(a.reconnects, g)
					if sec > longAfter {
						a.longDisconnects = append(a.longDisconnects, g)
					}
				}
			}
			state = stateUp
			last = now

		case timeline.Stop:
			a.totalDisconnects++
			local := now.In(a.loc)
			a.hourly[local.Hour()]++
			a.weekday[local.Weekday()]++
			a.daily[DateOf(now, a.loc)]++

			if state == stateUp {
				if sec := now.Sub(last).Seconds(); sec > 0 {
					a.sessions = append(a.sessions, Session{Start: last, End: now, Seconds: sec})
				}
			}
			state = stateDown
			last = now
			a.disconnectTimes = append(a.disconnectTimes, now)
		}
	}

	if state == stateUp {
		if sec := a.end.Sub(last).Seconds(); sec > 0 {
			a.sessions = append(a.sessions, Session{Start: last, End: a.end, Seconds: sec, Open: true})
		}
	}
}

// Sessions returns the recorded sessions in timeline order.
func (a *Analyzer) Sessions() []Session {
	return append([]Session(nil), a.sessions...)
}

// Reconnects returns the recorded reconnect gaps in timeline order.
func (a *Analyzer) Reconnects() []Gap {
	return append([]Gap(nil), a.reconnects...)
}
