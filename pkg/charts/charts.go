// Package charts renders count tables as PNG charts.
package charts

import (
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/daftar/daftar/pkg/analysis"
	"github.com/daftar/daftar/pkg/errors"
)

// palette is applied to slices and bars in table order, cycling.
var palette = []drawing.Color{
	drawing.ColorFromHex("4e79a7"),
	drawing.ColorFromHex("f28e2b"),
	drawing.ColorFromHex("e15759"),
	drawing.ColorFromHex("76b7b2"),
	drawing.ColorFromHex("59a14f"),
	drawing.ColorFromHex("edc948"),
	drawing.ColorFromHex("b07aa1"),
	drawing.ColorFromHex("ff9da7"),
	drawing.ColorFromHex("9c755f"),
	drawing.ColorFromHex("bab0ac"),
}

func colorAt(i int) drawing.Color {
	return palette[i%len(palette)]
}

// Renderer renders analysis charts to PNG.
type Renderer struct {
	Width  int
	Height int
}

// NewRenderer returns a renderer with dashboard-sized defaults.
func NewRenderer() Renderer {
	return Renderer{Width: 720, Height: 480}
}

// Render writes one chart as PNG.
func (r Renderer) Render(w io.Writer, c analysis.Chart) error {
	switch c.Kind {
	case analysis.ChartPie:
		return r.renderPie(w, c)
	case analysis.ChartBar:
		return r.renderBar(w, c)
	case analysis.ChartHBar:
		return r.renderHBar(w, c)
	case analysis.ChartGrouped:
		return r.renderGrouped(w, c)
	default:
		return errors.New(errors.CodeUnknownChart, "unknown chart kind").
			WithContext("kind", string(c.Kind))
	}
}

func (r Renderer) renderPie(w io.Writer, c analysis.Chart) error {
	values := make([]chart.Value, 0, len(c.Table.Counts))
	for i, cnt := range c.Table.Counts {
		if cnt.N == 0 {
			continue
		}
		values = append(values, chart.Value{
			Value: float64(cnt.N),
			Label: fmt.Sprintf("%s (%d)", cnt.Value, cnt.N),
			Style: chart.Style{FillColor: colorAt(i)},
		})
	}
	if len(values) == 0 {
		return emptyTableError(c)
	}

	pie := chart.PieChart{
		Title:  c.Title,
		Width:  r.Width,
		Height: r.Height,
		Values: values,
	}
	if err := pie.Render(chart.PNG, w); err != nil {
		return errors.Wrap(err, errors.CodeChartRender, "render pie").
			WithContext("chart", c.ID)
	}
	return nil
}

func (r Renderer) renderBar(w io.Writer, c analysis.Chart) error {
	bars := make([]chart.Value, 0, len(c.Table.Counts))
	for i, cnt := range c.Table.Counts {
		bars = append(bars, chart.Value{
			Value: float64(cnt.N),
			Label: cnt.Value,
			Style: chart.Style{FillColor: colorAt(i), StrokeColor: colorAt(i)},
		})
	}
	if len(bars) == 0 {
		return emptyTableError(c)
	}

	bar := chart.BarChart{
		Title:    c.Title,
		Width:    r.Width,
		Height:   r.Height,
		BarWidth: barWidth(r.Width, len(bars)),
		XAxis:    chart.Style{TextRotationDegrees: 45.0},
		Bars:     bars,
	}
	if err := bar.Render(chart.PNG, w); err != nil {
		return errors.Wrap(err, errors.CodeChartRender, "render bar").
			WithContext("chart", c.ID)
	}
	return nil
}

// renderHBar draws horizontal bars via the stacked renderer with one
// segment per bar.
func (r Renderer) renderHBar(w io.Writer, c analysis.Chart) error {
	bars := make([]chart.StackedBar, 0, len(c.Table.Counts))
	for i, cnt := range c.Table.Counts {
		bars = append(bars, chart.StackedBar{
			Name: fmt.Sprintf("%s (%d)", cnt.Value, cnt.N),
			Values: []chart.Value{{
				Value: float64(cnt.N),
				Style: chart.Style{FillColor: colorAt(i), StrokeColor: colorAt(i)},
			}},
		})
	}
	if len(bars) == 0 {
		return emptyTableError(c)
	}

	hbar := chart.StackedBarChart{
		Title:        c.Title,
		Width:        r.Width,
		Height:       r.Height,
		IsHorizontal: true,
		BarSpacing:   8,
		XAxis:        chart.Style{Hidden: false},
		YAxis:        chart.Style{Hidden: false},
		Bars:         bars,
	}
	if err := hbar.Render(chart.PNG, w); err != nil {
		return errors.Wrap(err, errors.CodeChartRender, "render hbar").
			WithContext("chart", c.ID)
	}
	return nil
}

// renderGrouped interleaves one bar per group for every label on the
// comparison axis. The first group's bar carries the label.
func (r Renderer) renderGrouped(w io.Writer, c analysis.Chart) error {
	if len(c.Groups) == 0 {
		return r.renderBar(w, c)
	}

	bars := make([]chart.Value, 0, len(c.Table.Counts)*len(c.Groups))
	for _, cnt := range c.Table.Counts {
		for gi, g := range c.Groups {
			label := ""
			if gi == 0 {
				label = cnt.Value
			}
			bars = append(bars, chart.Value{
				Value: float64(g.Table.Get(cnt.Value)),
				Label: label,
				Style: chart.Style{FillColor: colorAt(gi), StrokeColor: colorAt(gi)},
			})
		}
	}
	if len(bars) == 0 {
		return emptyTableError(c)
	}

	bar := chart.BarChart{
		Title:    c.Title,
		Width:    r.Width,
		Height:   r.Height,
		BarWidth: barWidth(r.Width, len(bars)),
		XAxis:    chart.Style{TextRotationDegrees: 45.0},
		Bars:     bars,
	}
	if err := bar.Render(chart.PNG, w); err != nil {
		return errors.Wrap(err, errors.CodeChartRender, "render grouped").
			WithContext("chart", c.ID)
	}
	return nil
}

// barWidth fits the bars into the drawable width, clamped to a sane range.
func barWidth(width, bars int) int {
	if bars == 0 {
		return 20
	}
	w := (width - 100) / (bars * 2)
	if w < 8 {
		return 8
	}
	if w > 60 {
		return 60
	}
	return w
}

func emptyTableError(c analysis.Chart) error {
	return errors.New(errors.CodeChartRender, "empty count table").
		WithContext("chart", c.ID)
}
