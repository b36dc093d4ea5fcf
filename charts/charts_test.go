package charts

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"
)

func decodeSVG(t *testing.T, uri string) string {
	t.Helper()
	const prefix = "data:image/svg+xml;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("uri %.40q does not start with %q", uri, prefix)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return string(raw)
}

func TestBarRendersSVG(t *testing.T) {
	uri, err := Bar([]Point{{Label: "cat food", Value: 5}, {Label: "dog food", Value: 3}})
	if err != nil {
		t.Fatalf("Bar: %v", err)
	}
	svg := decodeSVG(t, string(uri))
	if !strings.Contains(svg, "<svg") {
		t.Errorf("output is not an svg document: %.80q", svg)
	}
}

func TestBarHandlesFlatSeries(t *testing.T) {
	for _, points := range [][]Point{
		{{Label: "only", Value: 4}},
		{{Label: "a", Value: 0}, {Label: "b", Value: 0}},
	} {
		if _, err := Bar(points); err != nil {
			t.Errorf("Bar(%v): %v", points, err)
		}
	}
}

func TestPieRendersSVG(t *testing.T) {
	uri, err := Pie([]Point{{Label: "MOBILE", Value: 5}, {Label: "DESKTOP", Value: 3}})
	if err != nil {
		t.Fatalf("Pie: %v", err)
	}
	if svg := decodeSVG(t, string(uri)); !strings.Contains(svg, "<svg") {
		t.Errorf("output is not an svg document: %.80q", svg)
	}
}

func TestNoData(t *testing.T) {
	if _, err := Bar(nil); !errors.Is(err, ErrNoData) {
		t.Errorf("Bar(nil) err = %v, want ErrNoData", err)
	}
	if _, err := Pie(nil); !errors.Is(err, ErrNoData) {
		t.Errorf("Pie(nil) err = %v, want ErrNoData", err)
	}
	if _, err := Pie([]Point{{Label: "MOBILE", Value: 0}}); !errors.Is(err, ErrNoData) {
		t.Errorf("Pie(zero) err = %v, want ErrNoData", err)
	}
}

func TestSliceColorCycles(t *testing.T) {
	want := []string{"#4ade80", "#facc15", "#f87171", "#4ade80", "#facc15"}
	for i, w := range want {
		if got := SliceColor(i); got != w {
			t.Errorf("SliceColor(%d) = %q, want %q", i, got, w)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("a very long search query indeed", 10); got != "a very lo…" {
		t.Errorf("truncate(long) = %q", got)
	}
}

func assertWellFormed(t *testing.T, svg string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(svg))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("svg is not well-formed XML: %v", err)
		}
	}
}

func TestChartsEscapeLabels(t *testing.T) {
	points := []Point{
		{Label: "cats & dogs <3", Value: 5},
		{Label: `"quoted" > 'single'`, Value: 2},
		{Label: "a & b & c & d & e & f & g & h", Value: 1},
	}

	bar, err := Bar(points)
	if err != nil {
		t.Fatalf("Bar: %v", err)
	}
	svg := decodeSVG(t, string(bar))
	assertWellFormed(t, svg)
	if !strings.Contains(svg, "&amp;") || !strings.Contains(svg, "&lt;3") {
		t.Errorf("escaped labels missing from bar chart")
	}

	pie, err := Pie(points)
	if err != nil {
		t.Fatalf("Pie: %v", err)
	}
	assertWellFormed(t, decodeSVG(t, string(pie)))
}

func TestLabelTruncatesBeforeEscaping(t *testing.T) {
	got := label(strings.Repeat("&", 30))
	if want := strings.Repeat("&amp;", maxLabelLen-1) + "…"; got != want {
		t.Errorf("label = %q, want %q", got, want)
	}
}
