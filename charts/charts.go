// Package charts renders the dashboard's bar and pie series as SVG images.
package charts

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"html/template"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when a series has nothing to draw.
var ErrNoData = errors.New("charts: no data to draw")

// Palettes used by the dashboard.
var (
	BarColor   = "#3b82f6"
	PiePalette = []string{"#4ade80", "#facc15", "#f87171"}
)

// Point is one labelled value of a series.
type Point struct {
	Label string
	Value float64
}

const (
	barWidth   = 40
	barSpacing = 20
	barHeight  = 360
	pieSize    = 360

	maxLabelLen = 24
)

// Bar renders points as a vertical bar chart and returns it as an SVG data URI.
func Bar(points []Point) (template.URL, error) {
	if len(points) == 0 {
		return "", ErrNoData
	}

	fill := hexColor(BarColor)
	bars := make([]chart.Value, len(points))
	var peak float64
	for i, p := range points {
		bars[i] = chart.Value{
			Label: label(p.Label),
			Value: p.Value,
			Style: chart.Style{FillColor: fill, StrokeColor: fill},
		}
		peak = max(peak, p.Value)
	}

	bc := chart.BarChart{
		Width:      max(480, len(points)*(barWidth+barSpacing)+160),
		Height:     barHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 100}},
		XAxis:      chart.Style{TextRotationDegrees: 45},
		// Bars grow from zero.
		YAxis: chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: max(peak, 1)}},
		Bars:  bars,
	}

	var buf bytes.Buffer
	if err := bc.Render(chart.SVG, &buf); err != nil {
		return "", fmt.Errorf("charts: render bar chart: %w", err)
	}
	return dataURI(buf.Bytes()), nil
}

// Pie renders points as a pie chart, cycling PiePalette by position, and
// returns it as an SVG data URI. A series whose values sum to zero has
// nothing to draw.
func Pie(points []Point) (template.URL, error) {
	var total float64
	for _, p := range points {
		total += p.Value
	}
	if len(points) == 0 || total <= 0 {
		return "", ErrNoData
	}

	values := make([]chart.Value, len(points))
	for i, p := range points {
		fill := hexColor(SliceColor(i))
		values[i] = chart.Value{
			Label: label(p.Label),
			Value: p.Value,
			Style: chart.Style{FillColor: fill, StrokeColor: drawing.ColorWhite},
		}
	}

	pc := chart.PieChart{
		Width:  pieSize,
		Height: pieSize,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pc.Render(chart.SVG, &buf); err != nil {
		return "", fmt.Errorf("charts: render pie chart: %w", err)
	}
	return dataURI(buf.Bytes()), nil
}

// SliceColor returns the palette color for the i-th pie slice.
func SliceColor(i int) string {
	return PiePalette[i%len(PiePalette)]
}

func hexColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

// label shortens s and escapes it for the SVG document; go-chart writes
// text nodes verbatim.
func label(s string) string {
	return html.EscapeString(truncate(s, maxLabelLen))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// dataURI wraps an SVG document so it can be used as an <img> source. Query
// text stays inside the image and never reaches the page's DOM.
func dataURI(svg []byte) template.URL {
	return template.URL("data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(svg))
}
