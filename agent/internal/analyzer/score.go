package analyzer

import (
	"math"
	"time"

	"github.com/linkpulse/linkpulse/agent/internal/config"
)

// State constants derived from a stability score.
const (
	StateHealthy  = "healthy"
	StateDegraded = "degraded"
	StateCritical = "critical"
	StateUnknown  = "unknown"
)

// Thresholds that map a score to a health state.
const (
	ThresholdHealthy  = 85.0
	ThresholdDegraded = 60.0
)

// Reconnect speed classes used by the fast-reconnect bonus.
const (
	fastReconnectUnder   = 30 * time.Second
	quickReconnectWithin = 300 * time.Second
)

// ScoreParams holds every constant of the stability score.
type ScoreParams struct {
	// UptimeWeight scales percentConnected into points.
	UptimeWeight float64

	// Session bonus: min(Cap, Scale·tanh(hours/ScaleHours) × RefDays/days).
	SessionBonusCap   float64
	SessionBonusScale float64
	SessionScaleHours float64
	SessionRefDays    float64

	// Fast bonus: min(Cap, quickRatio × Scale).
	FastBonusCap   float64
	FastBonusScale float64

	// Flapping penalty: min(Cap, (shortPerDay+1)^Exponent × Scale).
	FlappingCap      float64
	FlappingExponent float64
	FlappingScale    float64

	// Long outage penalty: min(Cap, (long/days × 7) × Scale).
	LongOutageCap   float64
	LongOutageScale float64

	// Lines at or above FloorUptimePct never score below FloorScore.
	FloorUptimePct float64
	FloorScore     float64

	// LongDisconnectAfter is the exclusive threshold above which a reconnect
	// gap counts as a long disconnect.
	LongDisconnectAfter time.Duration
}

// DefaultScoreParams returns the standard scoring constants.
func DefaultScoreParams() ScoreParams {
	return ScoreParams{
		UptimeWeight:        0.90,
		SessionBonusCap:     20,
		SessionBonusScale:   25,
		SessionScaleHours:   6,
		SessionRefDays:      30,
		FastBonusCap:        12,
		FastBonusScale:      50,
		FlappingCap:         22,
		FlappingExponent:    1.5,
		FlappingScale:       5,
		LongOutageCap:       28,
		LongOutageScale:     12,
		FloorUptimePct:      90,
		FloorScore:          30,
		LongDisconnectAfter: 1800 * time.Second,
	}
}

// ParamsFromConfig applies the non-zero overrides in s to the defaults.
func ParamsFromConfig(s config.Scoring) ScoreParams {
	p := DefaultScoreParams()
	set := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	set(&p.UptimeWeight, s.UptimeWeight)
	set(&p.SessionBonusCap, s.SessionBonusCap)
	set(&p.SessionBonusScale, s.SessionBonusScale)
	set(&p.SessionScaleHours, s.SessionScaleHours)
	set(&p.SessionRefDays, s.SessionRefDays)
	set(&p.FastBonusCap, s.FastBonusCap)
	set(&p.FastBonusScale, s.FastBonusScale)
	set(&p.FlappingCap, s.FlappingCap)
	set(&p.FlappingExponent, s.FlappingExponent)
	set(&p.FlappingScale, s.FlappingScale)
	set(&p.LongOutageCap, s.LongOutageCap)
	set(&p.LongOutageScale, s.LongOutageScale)
	set(&p.FloorUptimePct, s.FloorUptimePct)
	set(&p.FloorScore, s.FloorScore)
	if s.LongDisconnectAfter > 0 {
		p.LongDisconnectAfter = s.LongDisconnectAfter
	}
	return p
}

// ScoreInput holds the aggregates fed into the score formula.
type ScoreInput struct {
	// PercentConnected is in the range 0–100.
	PercentConnected float64

	// SessionMinutes is the mean or median session length. Nil when there
	// were no sessions; the session bonus is then 0.
	SessionMinutes *float64

	// QuickReconnectRatio is quick gaps / all gaps, 0 when there were none.
	QuickReconnectRatio float64

	// ShortDisconnectsPerDay counts disconnects that were not long outages.
	ShortDisconnectsPerDay float64

	LongDisconnects int

	// Days is the timeline span in days, at least 1.
	Days float64
}

// Breakdown is the result of the score calculation with every term kept so
// dashboards can show why a line scored the way it did.
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

// Score calculates the stability score:
//
//	uptime     = pct × 0.90
//	session    = min(20, 25·tanh((m/60)/6) × (30/days))
//	fast       = min(12, quickRatio × 50)
//	flapping   = min(22, (shortPerDay + 1)^1.5 × 5)
//	longOutage = min(28, (long/days × 7) × 12)
//	raw        = uptime + session + fast − flapping − longOutage
//
// Lines with pct ≥ 90 are floored at 30 before clamping to 0–100 and rounding.
func Score(p ScoreParams, in ScoreInput) Breakdown {
	days := math.Max(1, in.Days)

	var b Breakdown
	b.Uptime = in.PercentConnected * p.UptimeWeight
	if in.SessionMinutes != nil {
		hours := *in.SessionMinutes / 60
		b.SessionBonus = math.Min(p.SessionBonusCap,
			p.SessionBonusScale*math.Tanh(hours/p.SessionScaleHours)*(p.SessionRefDays/days))
	}
	b.FastBonus = math.Min(p.FastBonusCap, in.QuickReconnectRatio*p.FastBonusScale)
	b.Flapping = math.Min(p.FlappingCap,
		math.Pow(in.ShortDisconnectsPerDay+1, p.FlappingExponent)*p.FlappingScale)
	b.LongOutage = math.Min(p.LongOutageCap,
		(float64(in.LongDisconnects)/days*7)*p.LongOutageScale)

	raw := b.Uptime + b.SessionBonus + b.FastBonus - b.Flapping - b.LongOutage
	if in.PercentConnected >= p.FloorUptimePct && raw < p.FloorScore {
		raw = p.FloorScore
		b.Floored = true
	}
	b.Raw = raw
	b.Score = int(math.Round(clamp(raw, 0, 100)))
	return b
}

// StateFromScore maps a score to a named health state. A nil score is
// StateUnknown.
func StateFromScore(score *int) string {
	if score == nil {
		return StateUnknown
	}
	switch s := float64(*score); {
	case s >= ThresholdHealthy:
		return StateHealthy
	case s >= ThresholdDegraded:
		return StateDegraded
	default:
		return StateCritical
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
