package views

import (
	"html/template"

	"github.com/dustin/go-humanize"
)

// FormatCount renders a counter with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// SafeCSSColor marks a palette color as safe for a style attribute.
func SafeCSSColor(c string) template.CSS {
	return template.CSS("background-color: " + c)
}

var funcs = template.FuncMap{
	"count":  FormatCount,
	"swatch": SafeCSSColor,
}
