// Package export renders tabular report data as xlsx, pdf and png.
package export

import (
	"bytes"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
)

type BarSeries struct {
	Title  string
	Labels []string
	Values []float64
}

// BarChartPNG renders a bar chart. The Y range is fixed from zero so a
// series of all zeros still renders.
func BarChartPNG(s BarSeries) ([]byte, error) {
	if len(s.Labels) != len(s.Values) {
		return nil, fmt.Errorf("export: %d labels for %d values", len(s.Labels), len(s.Values))
	}
	if len(s.Values) == 0 {
		return nil, fmt.Errorf("export: empty series")
	}

	maxV := 0.0
	bars := make([]chart.Value, 0, len(s.Values))
	for i, v := range s.Values {
		maxV = math.Max(maxV, v)
		bars = append(bars, chart.Value{Label: s.Labels[i], Value: v})
	}
	if maxV < 1 {
		maxV = 1
	}

	graph := chart.BarChart{
		Title:      s.Title,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		Width:      960,
		Height:     420,
		BarWidth:   50,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxV * 1.1},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("export: render chart: %w", err)
	}
	return buf.Bytes(), nil
}
