package charts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	chartWidth  = 1024
	chartHeight = 640
)

// Renderer draws analytics results as PNG files in the output directory.
type Renderer struct {
	dir string
}

// NewRenderer creates the output directory if needed.
func NewRenderer(dir string) (*Renderer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("chart: create output dir: %w", err)
	}
	return &Renderer{dir: dir}, nil
}

// Bar draws one labelled bar per value.
func (r *Renderer) Bar(filename, title, yLabel string, labels []string, values []float64) error {
	if err := checkSeries(filename, labels, values); err != nil {
		return err
	}

	bars := make([]chart.Value, 0, len(values))
	for i, v := range values {
		bars = append(bars, chart.Value{Label: labels[i], Value: v})
	}

	graph := chart.BarChart{
		Title:        title,
		Width:        chartWidth,
		Height:       chartHeight,
		BarWidth:     60,
		BarSpacing:   25,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis:        chart.YAxis{Name: yLabel},
		Bars:         bars,
	}
	return r.writePNG(filename, graph.Render)
}

// Line draws the values as a single series with one tick per label.
func (r *Renderer) Line(filename, title, xLabel, yLabel string, labels []string, values []float64) error {
	if err := checkSeries(filename, labels, values); err != nil {
		return err
	}

	xs := make([]float64, len(values))
	ticks := make([]chart.Tick, len(values))
	for i := range values {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: labels[i]}
	}

	graph := chart.Chart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Name: xLabel, Ticks: ticks},
		YAxis:  chart.YAxis{Name: yLabel},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: xs,
				YValues: values,
				Style:   chart.Style{StrokeWidth: 2.5, DotWidth: 4},
			},
		},
	}
	return r.writePNG(filename, graph.Render)
}

// Pie draws each value as a share of the total. The total must be positive;
// a pie of zeros has no defined slices.
func (r *Renderer) Pie(filename, title string, labels []string, values []float64) error {
	if err := checkSeries(filename, labels, values); err != nil {
		return err
	}
	var total float64
	for _, v := range values {
		if v < 0 {
			return fmt.Errorf("chart: %s: negative slice value %g", filename, v)
		}
		total += v
	}
	if total <= 0 {
		return fmt.Errorf("chart: %s: slice values sum to zero", filename)
	}

	slices := make([]chart.Value, 0, len(values))
	for i, v := range values {
		slices = append(slices, chart.Value{Label: labels[i], Value: v})
	}

	graph := chart.PieChart{
		Title:  title,
		Width:  chartHeight, // square canvas keeps the pie round
		Height: chartHeight,
		Values: slices,
	}
	return r.writePNG(filename, graph.Render)
}

// Histogram bins the values and draws the counts as bars. Bin edges run
// linearly from the smallest to the largest value.
func (r *Renderer) Histogram(filename, title, yLabel string, values []float64, bins int) error {
	if len(values) == 0 {
		return fmt.Errorf("chart: %s: no data", filename)
	}
	if bins < 1 {
		return fmt.Errorf("chart: %s: bins must be positive (got %d)", filename, bins)
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if hi == lo {
		// All values identical still gets one visible bin.
		hi = lo + 1
	}

	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)
	counts := stat.Histogram(nil, dividers, sorted, nil)

	// Label a handful of bin edges so the axis stays readable.
	labelEvery := bins / 10
	if labelEvery < 1 {
		labelEvery = 1
	}

	bars := make([]chart.Value, 0, bins)
	for i, c := range counts {
		label := ""
		if i%labelEvery == 0 {
			label = fmt.Sprintf("%.0f", dividers[i])
		}
		bars = append(bars, chart.Value{Label: label, Value: c})
	}

	barWidth := (chartWidth - 150) / bins
	if barWidth < 4 {
		barWidth = 4
	}

	graph := chart.BarChart{
		Title:        title,
		Width:        chartWidth,
		Height:       chartHeight,
		BarWidth:     barWidth,
		BarSpacing:   2,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis:        chart.YAxis{Name: yLabel},
		Bars:         bars,
	}
	return r.writePNG(filename, graph.Render)
}

// Scatter draws one dot per (x, y) pair.
func (r *Renderer) Scatter(filename, title, xLabel, yLabel string, xs, ys []float64) error {
	if len(xs) == 0 || len(xs) != len(ys) {
		return fmt.Errorf("chart: %s: empty or mismatched series (%d x, %d y)", filename, len(xs), len(ys))
	}

	graph := chart.Chart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Name: xLabel},
		YAxis:  chart.YAxis{Name: yLabel},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    4,
				},
			},
		},
	}
	return r.writePNG(filename, graph.Render)
}

func checkSeries(filename string, labels []string, values []float64) error {
	if len(values) == 0 {
		return fmt.Errorf("chart: %s: no data", filename)
	}
	if len(labels) != len(values) {
		return fmt.Errorf("chart: %s: %d labels for %d values", filename, len(labels), len(values))
	}
	return nil
}

// writePNG renders into <dir>/<filename>, removing the file again if the
// render fails so no truncated image is left behind.
func (r *Renderer) writePNG(filename string, render func(chart.RendererProvider, io.Writer) error) error {
	path := filepath.Join(r.dir, filename)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("chart: create %q: %w", path, err)
	}
	if err := render(chart.PNG, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("chart: render %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("chart: close %q: %w", path, err)
	}
	return nil
}
