// Package scdash serves a Google Search Console dashboard built with Go,
// Echo, and templ. It fetches search analytics from a backend on behalf of
// the browser and renders a top queries chart, a device breakdown and a
// table of rows.
package scdash

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eringen/scdash/analytics"
	"github.com/eringen/scdash/views"
)

// App is the central dashboard application. It wires together the backend
// client, handlers, middleware and templates.
type App struct {
	Config Config
	Echo   *echo.Echo
	Client *analytics.Client

	site         views.SiteConfig
	dashboard    *analytics.Handler
	loginLimiter *LoginLimiter
	mounts       *mountStore
	registry     *prometheus.Registry
	httpClient   *http.Client
	customRoutes []func(*App)
}

// New validates cfg and builds a ready-to-serve App.
func New(cfg Config, opts ...Option) (*App, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		site:   views.SiteConfig{Name: cfg.Name},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
	}

	client, err := analytics.NewClient(cfg.BackendURL, a.httpClient, cfg.FetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("scdash: %w", err)
	}
	a.Client = client

	a.Echo.HideBanner = true
	a.Echo.Logger.SetLevel(logLevels[strings.ToLower(cfg.LogLevel)])

	a.mounts = newMountStore(defaultMountTTL)
	a.loginLimiter = NewLoginLimiter(cfg.LoginLimit, time.Minute)
	a.dashboard = analytics.NewHandler(analytics.HandlerConfig{
		Client:      client,
		Mounts:      a.mounts,
		Metrics:     analytics.NewMetrics(a.registry),
		Site:        a.site,
		OwnCookies:  []string{sessionName, csrfCookieName},
		FetchLimit:  cfg.FetchLimit,
		FetchWindow: time.Minute,
	})

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return a, nil
}

// Start serves HTTP on Config.Addr until the server is shut down.
func (a *App) Start() error {
	a.Echo.Logger.Infof("scdash listening on %s, backend %s", a.Config.Addr, a.Config.BackendURL)
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.StaticFS("/public", views.Static())
	e.GET("/healthz", handleHealth)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: a.registry,
	}))

	a.dashboard.RegisterRoutes(e)
	e.POST("/login/", a.handleLogin)
}

// Close releases background resources. Call this when the app is shutting down.
func (a *App) Close() error {
	a.dashboard.Close()
	a.loginLimiter.Close()
	a.mounts.Close()
	return nil
}
