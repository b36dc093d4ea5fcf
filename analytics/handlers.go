package analytics

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/eringen/scdash/charts"
	"github.com/eringen/scdash/views"
)

// MountTokens issues and redeems the single-use tokens that tie a data
// request to one dashboard mount.
type MountTokens interface {
	Issue(c echo.Context) (string, error)
	Consume(c echo.Context, token string) (bool, error)
}

// DataPath serves the state of a mount.
const DataPath = "/dashboard/data"

// HandlerConfig wires a Handler.
type HandlerConfig struct {
	Client  *Client
	Mounts  MountTokens
	Metrics *Metrics
	Site    views.SiteConfig

	// OwnCookies are the dashboard's own cookies; they are never forwarded
	// to the backend.
	OwnCookies []string

	// FetchLimit backend fetches are allowed per client IP per FetchWindow.
	FetchLimit  int
	FetchWindow time.Duration
}

// Handler serves the dashboard page and its data fragment.
type Handler struct {
	client       *Client
	mounts       MountTokens
	metrics      *Metrics
	site         views.SiteConfig
	ownCookies   map[string]struct{}
	fetchLimiter *rateLimiter
}

// NewHandler creates a dashboard handler. Call Close to stop its limiter.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = 30
	}
	if cfg.FetchWindow <= 0 {
		cfg.FetchWindow = time.Minute
	}
	own := make(map[string]struct{}, len(cfg.OwnCookies))
	for _, name := range cfg.OwnCookies {
		own[name] = struct{}{}
	}
	return &Handler{
		client:       cfg.Client,
		mounts:       cfg.Mounts,
		metrics:      cfg.Metrics,
		site:         cfg.Site,
		ownCookies:   own,
		fetchLimiter: newRateLimiter(cfg.FetchLimit, cfg.FetchWindow),
	}
}

// Close releases background resources.
func (h *Handler) Close() {
	h.fetchLimiter.close()
}

// RegisterRoutes registers the dashboard routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Dashboard)
	e.GET(DataPath, h.Data)
}

// Dashboard mounts a new dashboard: it renders the Loading state together
// with a fresh mount token the browser uses to request the data.
func (h *Handler) Dashboard(c echo.Context) error {
	token, err := h.mounts.Issue(c)
	if err != nil {
		return fmt.Errorf("issue mount token: %w", err)
	}
	vm := views.DashboardViewModel{
		State:    views.StateLoading,
		MountURL: DataPath + "?mount=" + url.QueryEscape(token),
	}
	return views.Render(c, http.StatusOK, views.Dashboard(h.site, vm))
}

// Data resolves a mount: it fetches the analytics once and renders the
// resulting state. A token that was never issued, expired or was already
// used gets no fetch; the browser is sent back to mount afresh so the page
// never stays on Loading.
func (h *Handler) Data(c echo.Context) error {
	ok, err := h.mounts.Consume(c, c.QueryParam("mount"))
	if err != nil {
		return fmt.Errorf("consume mount token: %w", err)
	}
	if !ok {
		if isHTMX(c) {
			c.Response().Header().Set("HX-Redirect", "/")
			return c.NoContent(http.StatusNoContent)
		}
		return c.Redirect(http.StatusSeeOther, "/")
	}

	state, stale := h.fetchState(c)
	if stale {
		c.Logger().Debugf("discarding search analytics for abandoned mount")
		return nil
	}

	vm := h.viewModel(c, state)
	if isHTMX(c) {
		return views.Render(c, http.StatusOK, views.DashboardState(vm))
	}
	return views.Render(c, http.StatusOK, views.Dashboard(h.site, vm))
}

// fetchState performs the mount's single fetch. stale reports that the
// browser went away before the result arrived.
func (h *Handler) fetchState(c echo.Context) (state ViewState, stale bool) {
	if !h.fetchLimiter.allow(c.RealIP()) {
		c.Logger().Warnf("search analytics fetch rate limited for %s", c.RealIP())
		state = Resolve(nil, fmt.Errorf("%w: rate limited", ErrFetchFailed))
		h.metrics.observe(state.Kind, 0)
		return state, false
	}

	ctx := c.Request().Context()
	start := time.Now()
	rows, err := h.client.Fetch(ctx, h.forwardCookies(c.Request()))
	if ctx.Err() != nil {
		h.metrics.discarded()
		return ViewState{}, true
	}

	state = Resolve(rows, err)
	switch state.Kind {
	case StateUnauthenticated:
		c.Logger().Infof("search analytics: backend requires login")
	case StateError:
		c.Logger().Errorf("search analytics: %v", err)
	}
	h.metrics.observe(state.Kind, time.Since(start).Seconds())
	return state, false
}

// forwardCookies returns the browser's cookies minus the dashboard's own.
func (h *Handler) forwardCookies(r *http.Request) []*http.Cookie {
	var out []*http.Cookie
	for _, ck := range r.Cookies() {
		if _, own := h.ownCookies[ck.Name]; own {
			continue
		}
		out = append(out, ck)
	}
	return out
}

// viewModel converts a terminal state into what the templates render.
func (h *Handler) viewModel(c echo.Context, state ViewState) views.DashboardViewModel {
	switch state.Kind {
	case StateUnauthenticated:
		return views.DashboardViewModel{State: views.StateUnauthenticated, CSRFToken: csrfToken(c)}
	case StateLoading:
		return views.DashboardViewModel{State: views.StateLoading}
	case StateError:
		return views.DashboardViewModel{State: views.StateError, Message: state.Message}
	}

	vm := convertRowsToViewModel(state.Rows)
	var err error
	if vm.QueryChart, err = charts.Bar(queryPoints(vm.TopQueries)); err != nil && !errors.Is(err, charts.ErrNoData) {
		c.Logger().Errorf("render query chart: %v", err)
	}
	if vm.DeviceChart, err = charts.Pie(devicePoints(vm.Devices)); err != nil && !errors.Is(err, charts.ErrNoData) {
		c.Logger().Errorf("render device chart: %v", err)
	}
	return vm
}

// convertRowsToViewModel projects rows into the loaded view model, without
// charts.
func convertRowsToViewModel(rows []Row) views.DashboardViewModel {
	vm := views.DashboardViewModel{
		State:    views.StateLoaded,
		RowCount: len(rows),
	}
	vm.TotalClicks, vm.TotalImpressions = Totals(rows)

	top := TopQueries(rows)
	vm.TopQueries = make([]views.BarViewModel, len(top))
	for i, r := range top {
		vm.TopQueries[i] = views.BarViewModel{Label: r.Query(), Clicks: r.Clicks}
	}

	devices := AggregateDevices(rows)
	vm.Devices = make([]views.SliceViewModel, len(devices))
	for i, d := range devices {
		vm.Devices[i] = views.SliceViewModel{Device: d.Device, Clicks: d.Clicks, Color: charts.SliceColor(i)}
	}

	table := TableRows(rows)
	vm.Table = make([]views.TableRowViewModel, len(table))
	for i, r := range table {
		vm.Table[i] = views.TableRowViewModel{
			Query:       r.Query(),
			Page:        r.Page(),
			Device:      r.Device(),
			Country:     r.Country(),
			Clicks:      r.Clicks,
			Impressions: r.Impressions,
		}
	}
	return vm
}

func queryPoints(bars []views.BarViewModel) []charts.Point {
	points := make([]charts.Point, len(bars))
	for i, b := range bars {
		points[i] = charts.Point{Label: b.Label, Value: float64(b.Clicks)}
	}
	return points
}

func devicePoints(slices []views.SliceViewModel) []charts.Point {
	points := make([]charts.Point, len(slices))
	for i, s := range slices {
		points[i] = charts.Point{Label: s.Device, Value: float64(s.Clicks)}
	}
	return points
}

func isHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

func csrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
