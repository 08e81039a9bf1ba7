package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/linkpulse/linkpulse/pkg/types"
)

// ErrNoData is returned when a snapshot has too little data to chart.
var ErrNoData = errors.New("report: not enough data to chart")

// Chart names accepted by Render.
const (
	ChartHourly   = "hourly"
	ChartRolling  = "rolling"
	ChartSessions = "sessions"
)

var gridStyle = chart.Style{
	StrokeColor: drawing.Color{R: 200, G: 200, B: 200, A: 255},
	StrokeWidth: 1.0,
}

var axisStyle = chart.Style{
	StrokeColor: drawing.ColorBlack,
	FontSize:    10,
}

var padding = chart.Style{
	Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
}

// Renderer draws charts at a fixed size.
type Renderer struct {
	width  int
	height int
}

// New returns a Renderer producing width x height PNGs.
func New(width, height int) *Renderer {
	return &Renderer{width: width, height: height}
}

// Render writes the named chart for snap as PNG to w.
func (r *Renderer) Render(w io.Writer, name string, snap *types.Snapshot) error {
	switch name {
	case ChartHourly:
		return r.Hourly(w, snap)
	case ChartRolling:
		return r.Rolling(w, snap)
	case ChartSessions:
		return r.Sessions(w, snap)
	default:
		return fmt.Errorf("report: unknown chart %q", name)
	}
}

// Hourly renders disconnects per hour of day.
func (r *Renderer) Hourly(w io.Writer, snap *types.Snapshot) error {
	hourly := snap.Metrics.HourlyDisconnects
	if len(hourly) == 0 {
		return ErrNoData
	}
	bars := make([]chart.Value, len(hourly))
	for h, n := range hourly {
		bars[h] = chart.Value{Label: fmt.Sprintf("%02d", h), Value: float64(n)}
	}
	return r.bars(w, "Disconnects by hour - "+title(snap), bars)
}

// Sessions renders the session-length distribution.
func (r *Renderer) Sessions(w io.Writer, snap *types.Snapshot) error {
	bins := snap.Metrics.SessionBins
	if len(bins) == 0 {
		return ErrNoData
	}
	bars := make([]chart.Value, len(bins))
	for i, b := range bins {
		bars[i] = chart.Value{Label: b.Label, Value: float64(b.Count)}
	}
	return r.bars(w, "Session length - "+title(snap), bars)
}

// Rolling renders the rolling 7-day disconnect count per day.
func (r *Renderer) Rolling(w io.Writer, snap *types.Snapshot) error {
	points := snap.Metrics.Rolling7Day
	if len(points) < 2 {
		return ErrNoData
	}

	xs := make([]time.Time, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		d, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			return fmt.Errorf("report: rolling date %q: %w", p.Date, err)
		}
		xs = append(xs, d)
		ys = append(ys, float64(p.Count))
	}

	graph := chart.Chart{
		Title:      "Disconnects, rolling 7 days - " + title(snap),
		TitleStyle: chart.Style{FontSize: 16},
		Background: padding,
		Width:      r.width,
		Height:     r.height,
		XAxis: chart.XAxis{
			Style:          axisStyle,
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Disconnects",
			Style:          axisStyle,
			Range:          &chart.ContinuousRange{Min: 0, Max: ceiling(ys)},
			GridMajorStyle: gridStyle,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name: "rolling 7d",
				Style: chart.Style{
					StrokeColor: chart.GetDefaultColor(0),
					StrokeWidth: 2,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("report: render rolling: %w", err)
	}
	return nil
}

func (r *Renderer) bars(w io.Writer, name string, bars []chart.Value) error {
	ys := make([]float64, len(bars))
	for i, b := range bars {
		ys[i] = b.Value
	}
	graph := chart.BarChart{
		Title:      name,
		TitleStyle: chart.Style{FontSize: 16},
		Background: padding,
		Width:      r.width,
		Height:     r.height,
		YAxis: chart.YAxis{
			Style:          axisStyle,
			Range:          &chart.ContinuousRange{Min: 0, Max: ceiling(ys)},
			GridMajorStyle: gridStyle,
		},
		Bars:     bars,
		BarWidth: 20,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("report: render %s: %w", name, err)
	}
	return nil
}

// ceiling is the y-axis maximum: the largest value, at least 1 so an
// all-zero series still has a drawable range.
func ceiling(ys []float64) float64 {
	top := 1.0
	for _, y := range ys {
		if y > top {
			top = y
		}
	}
	return top
}

func title(snap *types.Snapshot) string {
	if snap.Label != "" {
		return snap.Label
	}
	return snap.SubscriberID
}
