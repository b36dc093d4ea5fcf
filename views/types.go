package views

import "html/template"

// SiteConfig holds site-wide settings rendered into every page.
type SiteConfig struct {
	Name string // SCDASH_SITE_NAME (default "Search Console Dashboard")
}

// Dashboard states, in render precedence order.
const (
	StateUnauthenticated = "unauthenticated"
	StateLoading         = "loading"
	StateError           = "error"
	StateLoaded          = "loaded"
)

// DashboardViewModel is everything the dashboard state section renders.
type DashboardViewModel struct {
	State     string
	Message   string // StateError only
	MountURL  string // StateLoading only: where the browser fetches the data
	CSRFToken string // StateUnauthenticated only: guards the login form

	QueryChart  template.URL // empty when there is nothing to draw
	DeviceChart template.URL
	TopQueries  []BarViewModel
	Devices     []SliceViewModel
	Table       []TableRowViewModel

	RowCount         int
	TotalClicks      int64
	TotalImpressions int64
}

// BarViewModel is one bar of the top queries chart.
type BarViewModel struct {
	Label  string
	Clicks int64
}

// SliceViewModel is one slice of the device breakdown chart.
type SliceViewModel struct {
	Device string
	Clicks int64
	Color  string
}

// TableRowViewModel is one row of the analytics table.
type TableRowViewModel struct {
	Query       string
	Page        string
	Device      string
	Country     string
	Clicks      int64
	Impressions int64
}
