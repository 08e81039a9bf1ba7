package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/linkpulse/linkpulse/pkg/types"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleSnapshot() *types.Snapshot {
	hourly := make([]int, 24)
	hourly[3] = 2
	hourly[17] = 5
	return &types.Snapshot{
		SubscriberID: "alice",
		Label:        "Alice (fibre)",
		Metrics: types.Metrics{
			HourlyDisconnects: hourly,
			SessionBins: []types.Bin{
				{Label: "<1h", Count: 4},
				{Label: "1-6h", Count: 2},
				{Label: "6-24h", Count: 1},
				{Label: ">24h", Count: 0},
			},
			Rolling7Day: []types.DayCount{
				{Date: "2025-03-08", Count: 1},
				{Date: "2025-03-09", Count: 3},
				{Date: "2025-03-10", Count: 2},
			},
		},
	}
}

func TestRender_AllCharts(t *testing.T) {
	r := New(600, 300)
	for _, name := range []string{ChartHourly, ChartRolling, ChartSessions} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := r.Render(&buf, name, sampleSnapshot()); err != nil {
				t.Fatalf("Render: %v", err)
			}
			if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
				t.Errorf("output is not a PNG (%d bytes)", buf.Len())
			}
		})
	}
}

func TestRender_AllZeroHistogram(t *testing.T) {
	snap := sampleSnapshot()
	snap.Metrics.HourlyDisconnects = make([]int, 24)

	var buf bytes.Buffer
	if err := New(600, 300).Hourly(&buf, snap); err != nil {
		t.Fatalf("Hourly: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
		t.Error("output is not a PNG")
	}
}

func TestRender_NoData(t *testing.T) {
	empty := &types.Snapshot{SubscriberID: "bob"}
	oneDay := &types.Snapshot{SubscriberID: "bob", Metrics: types.Metrics{
		Rolling7Day: []types.DayCount{{Date: "2025-03-10", Count: 1}},
	}}

	tests := []struct {
		name  string
		chart string
		snap  *types.Snapshot
	}{
		{"hourly empty", ChartHourly, empty},
		{"sessions empty", ChartSessions, empty},
		{"rolling empty", ChartRolling, empty},
		{"rolling single day", ChartRolling, oneDay},
	}
	r := New(600, 300)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := r.Render(&buf, tc.chart, tc.snap); !errors.Is(err, ErrNoData) {
				t.Errorf("err = %v, want ErrNoData", err)
			}
		})
	}
}

func TestRender_UnknownChart(t *testing.T) {
	var buf bytes.Buffer
	err := New(600, 300).Render(&buf, "pie", sampleSnapshot())
	if err == nil || errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want unknown chart error", err)
	}
}

func TestCeiling(t *testing.T) {
	tests := []struct {
		in   []float64
		want float64
	}{
		{nil, 1},
		{[]float64{0, 0}, 1},
		{[]float64{0.5}, 1},
		{[]float64{3, 7, 2}, 7},
	}
	for _, tc := range tests {
		if got := ceiling(tc.in); got != tc.want {
			t.Errorf("ceiling(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
