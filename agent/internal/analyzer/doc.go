// Package analyzer derives connection-stability metrics from a cleaned
// session timeline.
//
// analyzer.go runs the single forward pass: a small state machine over
// start/stop entries that records sessions, reconnect gaps, long outages and
// disconnect histograms. metrics.go turns those aggregates into the Metrics
// record (uptime, percentiles, bins, rolling 7-day series).
//
// score.go provides the pure Score(ScoreParams, ScoreInput) function behind
// the two stability scores (mean- and median-session variants), bounded to
// 0–100, and the health state derived from them: Healthy ≥85, Degraded
// 60–84, Critical <60, Unknown when there is no uptime figure.
package analyzer
