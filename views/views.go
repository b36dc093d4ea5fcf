// Package views renders the dashboard pages. Pages are html/template files
// embedded in the binary and exposed as templ components.
package views

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/a-h/templ"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var pages = template.Must(template.New("views").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

// Static returns the embedded stylesheet and other assets, rooted so that
// "dashboard.css" is at the top level.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

type pageData struct {
	Site  SiteConfig
	Title string
	VM    DashboardViewModel
}

// page renders the named template into a buffer first, so a failing
// template never leaves half a page on the wire.
func page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
			return fmt.Errorf("render %s: %w", name, err)
		}
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// Dashboard renders the full dashboard page for vm.
func Dashboard(cfg SiteConfig, vm DashboardViewModel) templ.Component {
	return page("dashboard-page", pageData{Site: cfg, Title: cfg.Name, VM: vm})
}

// DashboardState renders only the state section, for htmx swaps.
func DashboardState(vm DashboardViewModel) templ.Component {
	return page("dashboard-state", vm)
}

// NotFound renders the 404 page.
func NotFound(cfg SiteConfig) templ.Component {
	return page("not-found-page", pageData{Site: cfg, Title: "Not found"})
}

// ServerError renders the 500 page.
func ServerError(cfg SiteConfig) templ.Component {
	return page("server-error-page", pageData{Site: cfg, Title: "Something went wrong"})
}
