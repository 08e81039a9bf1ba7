package alerts

import (
	"strconv"
	"strings"

	"github.com/linkpulse/linkpulse/pkg/types"
)

// evalCondition evaluates a rule condition string against a Snapshot.
//
// Supported expressions (field operator value):
//
//	mean_score < 60
//	median_score < 60
//	uptime_pct < 95
//	disconnects > 20
//	long_disconnects >= 1
//	disconnects_per_day > 12
//	p95_reconnect_seconds > 600
//	cert_days_left < 14
//	state == critical
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed, the field is unknown,
// or the field has no value in this snapshot (for example a nil score).
func evalCondition(cond string, snap *types.Snapshot) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "state" {
		switch op {
		case "==":
			return snap.State == rhs, 0
		case "!=":
			return snap.State != rhs, 0
		}
		return false, 0
	}

	v, ok := numericField(field, snap)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the snapshot. ok is false
// for unknown fields and for values the snapshot does not carry.
func numericField(field string, snap *types.Snapshot) (float64, bool) {
	m := &snap.Metrics
	switch field {
	case "mean_score":
		return intPtr(m.MeanScore)
	case "median_score":
		return intPtr(m.MedianScore)
	case "uptime_pct":
		return floatPtr(m.PercentConnected)
	case "disconnects":
		return float64(m.TotalDisconnects), true
	case "long_disconnects":
		return float64(len(m.LongDisconnects)), true
	case "disconnects_per_day":
		return m.DisconnectsPerDay, true
	case "p95_reconnect_seconds":
		return floatPtr(m.P95ReconnectSeconds)
	case "fetch_success_pct":
		return snap.Fetch.SuccessPct, true
	case "cert_days_left":
		if snap.SourceCert == nil || snap.SourceCert.NotAfter == "" {
			return 0, false
		}
		return float64(snap.SourceCert.DaysLeft), true
	default:
		return 0, false
	}
}

func intPtr(p *int) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return float64(*p), true
}

func floatPtr(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
