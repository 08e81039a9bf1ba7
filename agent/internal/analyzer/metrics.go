package analyzer

import (
	"math"
	"sort"
	"time"
)

const day = 24 * time.Hour

// Bin is one bucket of a fixed-edge histogram.
type Bin struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DayCount is a count attached to a calendar day.
type DayCount struct {
	Date  Date `json:"date"`
	Count int  `json:"count"`
}

// DayReconnects groups the reconnect gaps that ended on one calendar day.
type DayReconnects struct {
	Date  Date `json:"date"`
	Total int  `json:"total"`
	Fast  int  `json:"fast"`
	Quick int  `json:"quick"`
}

// Metrics is the derived stability record for one timeline. Pointer fields
// are nil where the value is not applicable (empty or zero-length data).
type Metrics struct {
	First    *time.Time `json:"first,omitempty"`
	End      *time.Time `json:"end,omitempty"`
	SpanDays float64    `json:"span_days"`
	Ignored  int        `json:"ignored"`

	PercentConnected *float64 `json:"percent_connected"`
	ConnectedSeconds float64  `json:"connected_seconds"`

	Sessions              int      `json:"sessions"`
	AvgSessionMinutes     *float64 `json:"avg_session_minutes"`
	MedianSessionMinutes  *float64 `json:"median_session_minutes"`
	LongestSessionMinutes *float64 `json:"longest_session_minutes"`

	TotalDisconnects  int     `json:"total_disconnects"`
	DisconnectsPerDay float64 `json:"disconnects_per_day"`

	Reconnects             int      `json:"reconnects"`
	AvgReconnectSeconds    *float64 `json:"avg_reconnect_seconds"`
	MedianReconnectSeconds *float64 `json:"median_reconnect_seconds"`
	P95ReconnectSeconds    *float64 `json:"p95_reconnect_seconds"`
	FastReconnects         int      `json:"fast_reconnects"`
	QuickReconnects        int      `json:"quick_reconnects"`
	QuickReconnectRatio    float64  `json:"quick_reconnect_ratio"`

	DailyReconnects []DayReconnects `json:"daily_reconnects"`
	LongDisconnects []Gap           `json:"long_disconnects"`

	HourlyDisconnects  [24]int    `json:"hourly_disconnects"`
	WeekdayDisconnects [7]int     `json:"weekday_disconnects"`
	DailyDisconnects   []DayCount `json:"daily_disconnects"`
	PeakHour           *int       `json:"peak_hour"`
	PeakDay            *Date      `json:"peak_day"`

	SessionBins   []Bin      `json:"session_bins"`
	ReconnectBins []Bin      `json:"reconnect_bins"`
	Rolling7Day   []DayCount `json:"rolling_7day"`

	MeanScore       *int       `json:"mean_score"`
	MedianScore     *int       `json:"median_score"`
	MeanBreakdown   *Breakdown `json:"mean_breakdown,omitempty"`
	MedianBreakdown *Breakdown `json:"median_breakdown,omitempty"`
	State           string     `json:"state"`
}

var (
	sessionEdges    = []float64{5, 30, 60, 240}
	sessionLabels   = []string{"≤5m", "≤30m", "≤60m", "≤4h", ">4h"}
	reconnectEdges  = []float64{1, 5, 30}
	reconnectLabels = []string{"≤1m", "≤5m", "≤30m", ">30m"}
)

// ComputeMetrics derives the Metrics record. It does not modify the
// Analyzer and returns an equal record on every call.
func (a *Analyzer) ComputeMetrics() *Metrics {
	m := &Metrics{
		Ignored:            a.ignored,
		TotalDisconnects:   a.totalDisconnects,
		HourlyDisconnects:  a.hourly,
		WeekdayDisconnects: a.weekday,
		Sessions:           len(a.sessions),
		Reconnects:         len(a.reconnects),
		LongDisconnects:    append([]Gap{}, a.longDisconnects...),
		DailyReconnects:    []DayReconnects{},
		DailyDisconnects:   []DayCount{},
		Rolling7Day:        []DayCount{},
		State:              StateUnknown,
	}

	days := 1.0
	if a.hasEntries {
		first, end := a.first, a.end
		m.First, m.End = &first, &end
		days = math.Max(1, end.Sub(first).Seconds()/day.Seconds())
	}
	m.SpanDays = days
	m.DisconnectsPerDay = float64(a.totalDisconnects) / days

	sessionMin := make([]float64, len(a.sessions))
	for i, s := range a.sessions {
		m.ConnectedSeconds += s.Seconds
		sessionMin[i] = s.Seconds / 60
	}
	if a.hasEntries {
		if window := a.end.Sub(a.first).Seconds(); window > 0 {
			pct := 100 * m.ConnectedSeconds / window
			m.PercentConnected = &pct
		}
	}
	if len(sessionMin) > 0 {
		m.AvgSessionMinutes = ptr(mean(sessionMin))
		m.MedianSessionMinutes = ptr(median(sessionMin))
		m.LongestSessionMinutes = ptr(maxOf(sessionMin))
	}
	m.SessionBins = bin(sessionMin, sessionEdges, sessionLabels)

	gapSec := make([]float64, len(a.reconnects))
	gapMin := make([]float64, len(a.reconnects))
	byDay := make(map[Date]*DayReconnects)
	for i, g := range a.reconnects {
		gapSec[i] = g.Seconds
		gapMin[i] = g.Seconds / 60

		d := DateOf(g.Start, a.loc)
		dr := byDay[d]
		if dr == nil {
			dr = &DayReconnects{Date: d}
			byDay[d] = dr
		}
		dr.Total++
		if g.Seconds < fastReconnectUnder.Seconds() {
			dr.Fast++
			m.FastReconnects++
		}
		if g.Seconds <= quickReconnectWithin.Seconds() {
			dr.Quick++
			m.QuickReconnects++
		}
	}
	for _, d := range sortedDates(byDay) {
		m.DailyReconnects = append(m.DailyReconnects, *byDay[d])
	}
	if len(gapSec) > 0 {
		m.AvgReconnectSeconds = ptr(mean(gapSec))
		m.MedianReconnectSeconds = ptr(median(gapSec))
		m.P95ReconnectSeconds = ptr(percentile95(gapSec))
		m.QuickReconnectRatio = float64(m.QuickReconnects) / float64(len(gapSec))
	}
	m.ReconnectBins = bin(gapMin, reconnectEdges, reconnectLabels)

	for _, d := range sortedDates(a.daily) {
		m.DailyDisconnects = append(m.DailyDisconnects, DayCount{Date: d, Count: a.daily[d]})
	}
	if a.totalDisconnects > 0 {
		peakHour := 0
		for h, n := range a.hourly {
			if n > a.hourly[peakHour] {
				peakHour = h
			}
		}
		m.PeakHour = &peakHour

		peak := m.DailyDisconnects[0]
		for _, dc := range m.DailyDisconnects[1:] {
			if dc.Count > peak.Count {
				peak = dc
			}
		}
		m.PeakDay = &peak.Date
	}

	if a.hasEntries {
		m.Rolling7Day = a.rolling()
	}

	if m.PercentConnected != nil {
		in := ScoreInput{
			PercentConnected:       *m.PercentConnected,
			QuickReconnectRatio:    m.QuickReconnectRatio,
			ShortDisconnectsPerDay: float64(a.totalDisconnects-len(a.longDisconnects)) / days,
			LongDisconnects:        len(a.longDisconnects),
			Days:                   days,
		}
		in.SessionMinutes = m.AvgSessionMinutes
		mb := Score(a.params, in)
		in.SessionMinutes = m.MedianSessionMinutes
		md := Score(a.params, in)

		m.MeanBreakdown, m.MedianBreakdown = &mb, &md
		m.MeanScore, m.MedianScore = &mb.Score, &md.Score
		m.State = StateFromScore(m.MeanScore)
	}
	return m
}

// rolling counts, for each calendar day from the first entry through the
// end of the window, the disconnects in the 7×24h before that day's end.
func (a *Analyzer) rolling() []DayCount {
	times := a.disconnectTimes
	last := DateOf(a.end, a.loc)
	var out []DayCount
	for d := DateOf(a.first, a.loc); !last.Before(d); d = d.AddDays(1) {
		dayEnd := d.AddDays(1).Midnight(a.loc)
		from := dayEnd.Add(-7 * day)
		lo := sort.Search(len(times), func(i int) bool { return !times[i].Before(from) })
		hi := sort.Search(len(times), func(i int) bool { return !times[i].Before(dayEnd) })
		out = append(out, DayCount{Date: d, Count: hi - lo})
	}
	return out
}

// bin counts values into len(edges)+1 buckets; value v lands in the first
// bucket whose edge is ≥ v.
func bin(values, edges []float64, labels []string) []Bin {
	out := make([]Bin, len(labels))
	for i, l := range labels {
		out[i].Label = l
	}
	for _, v := range values {
		i := sort.SearchFloat64s(edges, v)
		out[i].Count++
	}
	return out
}

func sortedDates[V any](m map[Date]V) []Date {
	keys := make([]Date, 0, len(m))
	for d := range m {
		keys = append(keys, d)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

func mean(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// median averages the two middle values when len(v) is even.
func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// percentile95 returns the element at index floor(n×0.95), clamped to n−1.
func percentile95(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	i := int(math.Floor(float64(len(s)) * 0.95))
	if i > len(s)-1 {
		i = len(s) - 1
	}
	return s[i]
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func ptr(f float64) *float64 { return &f }
