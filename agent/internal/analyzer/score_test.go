package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/linkpulse/linkpulse/agent/internal/config"
)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func fp(f float64) *float64 { return &f }

func TestScore_Terms(t *testing.T) {
	tests := []struct {
		name      string
		in        ScoreInput
		wantRaw   float64
		wantScore int
	}{
		{
			name: "steady line clamps at 100",
			// 90 + 25·tanh(1)=19.0399 + 12 − 5 − 0 = 116.04
			in: ScoreInput{
				PercentConnected:    100,
				SessionMinutes:      fp(360),
				QuickReconnectRatio: 1,
				Days:                30,
			},
			wantRaw:   116.0399,
			wantScore: 100,
		},
		{
			name: "mixed line",
			// 72 + 25·tanh(1/6)·3=12.3855 + 12 − 2^1.5·5=14.1421 − 8.4 = 73.8434
			in: ScoreInput{
				PercentConnected:       80,
				SessionMinutes:         fp(60),
				QuickReconnectRatio:    0.5,
				ShortDisconnectsPerDay: 1,
				LongDisconnects:        1,
				Days:                   10,
			},
			wantRaw:   73.8434,
			wantScore: 74,
		},
		{
			name: "bad line clamps at 0",
			// 45 + 0 + 0 − min(22, 40) − min(28, 24) = −1
			in: ScoreInput{
				PercentConnected:       50,
				ShortDisconnectsPerDay: 3,
				LongDisconnects:        2,
				Days:                   7,
			},
			wantRaw:   -1,
			wantScore: 0,
		},
		{
			name: "days below one are treated as one",
			// 0 + 0 + 0 − 5 − min(28, 7·12) = −33
			in:        ScoreInput{LongDisconnects: 1, Days: 0.2},
			wantRaw:   -33,
			wantScore: 0,
		},
	}

	p := DefaultScoreParams()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(p, tc.in)
			if !almostEqual(got.Raw, tc.wantRaw, 0.001) {
				t.Errorf("Raw = %.4f, want %.4f", got.Raw, tc.wantRaw)
			}
			if got.Score != tc.wantScore {
				t.Errorf("Score = %d, want %d", got.Score, tc.wantScore)
			}
		})
	}
}

func TestScore_NoSessionsNoBonus(t *testing.T) {
	got := Score(DefaultScoreParams(), ScoreInput{PercentConnected: 70, Days: 1})
	if got.SessionBonus != 0 {
		t.Errorf("SessionBonus = %v, want 0", got.SessionBonus)
	}
}

func TestScore_Caps(t *testing.T) {
	got := Score(DefaultScoreParams(), ScoreInput{
		PercentConnected:       95,
		SessionMinutes:         fp(100000),
		QuickReconnectRatio:    1,
		ShortDisconnectsPerDay: 500,
		LongDisconnects:        500,
		Days:                   1,
	})
	if got.SessionBonus != 20 || got.FastBonus != 12 {
		t.Errorf("bonuses = %v/%v, want 20/12", got.SessionBonus, got.FastBonus)
	}
	if got.Flapping != 22 || got.LongOutage != 28 {
		t.Errorf("penalties = %v/%v, want 22/28", got.Flapping, got.LongOutage)
	}
}

func TestScore_Floor(t *testing.T) {
	p := DefaultScoreParams()
	p.LongOutageCap = 80

	// 81 − 22 − 80 = −21, floored to 30 because pct ≥ 90.
	got := Score(p, ScoreInput{
		PercentConnected:       90,
		ShortDisconnectsPerDay: 20,
		LongDisconnects:        20,
		Days:                   1,
	})
	if !got.Floored || got.Score != 30 {
		t.Errorf("Floored=%v Score=%d, want true/30", got.Floored, got.Score)
	}

	// Same line just under the floor threshold is not protected.
	got = Score(p, ScoreInput{
		PercentConnected:       89.9,
		ShortDisconnectsPerDay: 20,
		LongDisconnects:        20,
		Days:                   1,
	})
	if got.Floored || got.Score != 0 {
		t.Errorf("Floored=%v Score=%d, want false/0", got.Floored, got.Score)
	}
}

func TestScore_BoundsAndFloorProperty(t *testing.T) {
	p := DefaultScoreParams()
	for pct := 0.0; pct <= 100; pct += 7.5 {
		for _, short := range []float64{0, 0.5, 3, 40} {
			for _, long := range []int{0, 1, 5, 60} {
				for _, m := range []*float64{nil, fp(1), fp(90), fp(2000)} {
					b := Score(p, ScoreInput{
						PercentConnected:       pct,
						SessionMinutes:         m,
						QuickReconnectRatio:    short / 40,
						ShortDisconnectsPerDay: short,
						LongDisconnects:        long,
						Days:                   3,
					})
					if b.Score < 0 || b.Score > 100 {
						t.Fatalf("score %d out of bounds (pct=%v short=%v long=%d)", b.Score, pct, short, long)
					}
					if pct >= 90 && b.Score < 30 {
						t.Fatalf("score %d below floor at pct=%v", b.Score, pct)
					}
				}
			}
		}
	}
}

func TestStateFromScore(t *testing.T) {
	score := func(n int) *int { return &n }
	tests := []struct {
		in   *int
		want string
	}{
		{score(100), StateHealthy},
		{score(85), StateHealthy},
		{score(84), StateDegraded},
		{score(60), StateDegraded},
		{score(59), StateCritical},
		{score(0), StateCritical},
		{nil, StateUnknown},
	}
	for _, tc := range tests {
		if got := StateFromScore(tc.in); got != tc.want {
			t.Errorf("StateFromScore(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParamsFromConfig(t *testing.T) {
	p := ParamsFromConfig(config.Scoring{
		FlappingExponent:    2,
		LongDisconnectAfter: time.Hour,
	})
	def := DefaultScoreParams()
	if p.FlappingExponent != 2 {
		t.Errorf("FlappingExponent = %v, want 2", p.FlappingExponent)
	}
	if p.LongDisconnectAfter != time.Hour {
		t.Errorf("LongDisconnectAfter = %v, want 1h", p.LongDisconnectAfter)
	}
	if p.UptimeWeight != def.UptimeWeight || p.LongOutageCap != def.LongOutageCap {
		t.Error("zero fields should keep defaults")
	}
}
