package scdash

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a dashboard server.
type Config struct {
	Name       string `yaml:"name"`        // Page title (default "Search Console Dashboard")
	Addr       string `yaml:"addr"`        // Listen address (default ":3000")
	BackendURL string `yaml:"backend_url"` // Required: analytics backend serving /search-analytics and /auth

	SessionSecret string `yaml:"session_secret"` // Required: session encryption secret
	CookieSecure  bool   `yaml:"cookie_secure"`  // Set true for HTTPS

	FetchTimeout time.Duration `yaml:"fetch_timeout"` // Backend request timeout (default 15s)
	FetchLimit   int           `yaml:"fetch_limit"`   // Backend fetches per IP per minute (default 30)
	LoginLimit   int           `yaml:"login_limit"`   // Login redirects per IP per minute (default 10)

	LogLevel string `yaml:"log_level"` // debug, info, warn, error (default "info")
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "Search Console Dashboard"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	c.BackendURL = strings.TrimSuffix(c.BackendURL, "/")
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.FetchLimit == 0 {
		c.FetchLimit = 30
	}
	if c.LoginLimit == 0 {
		c.LoginLimit = 10
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("scdash: BackendURL is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("scdash: SessionSecret is required")
	}
	if _, ok := logLevels[strings.ToLower(c.LogLevel)]; !ok {
		return fmt.Errorf("scdash: unknown log level %q", c.LogLevel)
	}
	return nil
}

// Redacted returns a copy of the config that is safe to print.
func (c Config) Redacted() Config {
	if c.SessionSecret != "" {
		c.SessionSecret = "REDACTED"
	}
	return c
}

// LoadConfig reads the YAML file at path, if any, applies SCDASH_*
// environment overrides and fills in defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Name = EnvOr("SCDASH_SITE_NAME", c.Name)
	c.Addr = EnvOr("SCDASH_ADDR", c.Addr)
	c.BackendURL = EnvOr("SCDASH_BACKEND_URL", c.BackendURL)
	c.SessionSecret = EnvOr("SCDASH_SESSION_SECRET", c.SessionSecret)
	c.LogLevel = EnvOr("SCDASH_LOG_LEVEL", c.LogLevel)
	if v := os.Getenv("SCDASH_COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SCDASH_COOKIE_SECURE: %w", err)
		}
		c.CookieSecure = b
	}
	if v := os.Getenv("SCDASH_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SCDASH_FETCH_TIMEOUT: %w", err)
		}
		c.FetchTimeout = d
	}
	return nil
}

var logLevels = map[string]log.Lvl{
	"debug": log.DEBUG,
	"info":  log.INFO,
	"warn":  log.WARN,
	"error": log.ERROR,
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Option configures additional App behavior.
type Option func(*App)

// WithHTTPClient sets the client used to call the backend. Tests use it to
// point the dashboard at a fake backend transport.
func WithHTTPClient(c *http.Client) Option {
	return func(a *App) {
		a.httpClient = c
	}
}

// WithRegistry sets the prometheus registry metrics are recorded in and
// served from (default: a fresh registry per App).
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) {
		a.registry = reg
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
