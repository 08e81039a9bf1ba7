package shipper

import (
	"github.com/linkpulse/linkpulse/agent/internal/analyzer"
	"github.com/linkpulse/linkpulse/agent/internal/paginator"
	"github.com/linkpulse/linkpulse/agent/internal/poller"
	"github.com/linkpulse/linkpulse/pkg/types"
)

// toSnapshot converts a poller Report into the wire snapshot sent to
// linkpulse-server.
func toSnapshot(r *poller.Report, agentID string) *types.Snapshot {
	snap := &types.Snapshot{
		SubscriberID:    r.Subscriber.Username,
		Label:           r.Subscriber.Label,
		AgentID:         agentID,
		TimestampUnix:   r.WindowEnd.Unix(),
		WindowStartUnix: r.WindowStart.Unix(),
		WindowEndUnix:   r.WindowEnd.Unix(),
		State:           analyzer.StateUnknown,
		SourceCert:      r.SourceCert,
	}

	if f := r.Fetch; f != nil {
		snap.Fetch = types.Fetch{
			Outcome:    outcomeName(f.Outcome),
			Pages:      f.Pages,
			Rows:       f.Rows,
			Entries:    len(f.Entries),
			Dropped:    f.Dropped(),
			Total:      f.Total,
			Duration:   r.Duration.Milliseconds(),
			SuccessPct: r.SuccessPct,
		}
		switch f.Outcome {
		case paginator.OutcomeFailed:
			snap.ErrorMessage = "failed to fetch logs"
			if f.Err != nil {
				snap.ErrorMessage += ": " + f.Err.Error()
			}
		case paginator.OutcomeCancelled:
			snap.ErrorMessage = "fetch cancelled"
		}
	}

	if m := r.Metrics; m != nil {
		snap.State = m.State
		snap.Metrics = toMetrics(m)
	}
	return snap
}

func outcomeName(o paginator.Outcome) string {
	switch o {
	case paginator.OutcomeCancelled:
		return types.OutcomeCancelled
	case paginator.OutcomeFailed:
		return types.OutcomeFailed
	default:
		return types.OutcomeComplete
	}
}

func toMetrics(m *analyzer.Metrics) types.Metrics {
	out := types.Metrics{
		SpanDays:               m.SpanDays,
		Ignored:                m.Ignored,
		PercentConnected:       m.PercentConnected,
		ConnectedSeconds:       m.ConnectedSeconds,
		Sessions:               m.Sessions,
		AvgSessionMinutes:      m.AvgSessionMinutes,
		MedianSessionMinutes:   m.MedianSessionMinutes,
		LongestSessionMinutes:  m.LongestSessionMinutes,
		TotalDisconnects:       m.TotalDisconnects,
		DisconnectsPerDay:      m.DisconnectsPerDay,
		Reconnects:             m.Reconnects,
		AvgReconnectSeconds:    m.AvgReconnectSeconds,
		MedianReconnectSeconds: m.MedianReconnectSeconds,
		P95ReconnectSeconds:    m.P95ReconnectSeconds,
		FastReconnects:         m.FastReconnects,
		QuickReconnects:        m.QuickReconnects,
		QuickReconnectRatio:    m.QuickReconnectRatio,
		HourlyDisconnects:      append([]int(nil), m.HourlyDisconnects[:]...),
		WeekdayDisconnects:     append([]int(nil), m.WeekdayDisconnects[:]...),
		PeakHour:               m.PeakHour,
		MeanScore:              m.MeanScore,
		MedianScore:            m.MedianScore,
		MeanBreakdown:          toBreakdown(m.MeanBreakdown),
		MedianBreakdown:        toBreakdown(m.MedianBreakdown),
		LongDisconnects:        make([]types.Outage, 0, len(m.LongDisconnects)),
		DailyDisconnects:       toDayCounts(m.DailyDisconnects),
		Rolling7Day:            toDayCounts(m.Rolling7Day),
		SessionBins:            toBins(m.SessionBins),
		ReconnectBins:          toBins(m.ReconnectBins),
	}
	if m.First != nil {
		v := m.First.Unix()
		out.FirstUnix = &v
	}
	if m.End != nil {
		v := m.End.Unix()
		out.EndUnix = &v
	}
	if m.PeakDay != nil {
		out.PeakDay = m.PeakDay.String()
	}
	for _, g := range m.LongDisconnects {
		out.LongDisconnects = append(out.LongDisconnects, types.Outage{
			StopUnix:  g.Stop.Unix(),
			StartUnix: g.Start.Unix(),
			Seconds:   g.Seconds,
		})
	}
	return out
}

func toBreakdown(b *analyzer.Breakdown) *types.Breakdown {
	if b == nil {
		return nil
	}
	return &types.Breakdown{
		Uptime:       b.Uptime,
		SessionBonus: b.SessionBonus,
		FastBonus:    b.FastBonus,
		Flapping:     b.Flapping,
		LongOutage:   b.LongOutage,
		Raw:          b.Raw,
		Floored:      b.Floored,
		Score:        b.Score,
	}
}

func toDayCounts(in []analyzer.DayCount) []types.DayCount {
	out := make([]types.DayCount, len(in))
	for i, dc := range in {
		out[i] = types.DayCount{Date: dc.Date.String(), Count: dc.Count}
	}
	return out
}

func toBins(in []analyzer.Bin) []types.Bin {
	out := make([]types.Bin, len(in))
	for i, b := range in {
		out[i] = types.Bin{Label: b.Label, Count: b.Count}
	}
	return out
}
