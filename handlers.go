package scdash

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/scdash/views"
)

// handleLogin sends the browser to the backend's login flow. The backend
// owns the session; the dashboard only redirects.
func (a *App) handleLogin(c echo.Context) error {
	if !a.loginLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	return c.Redirect(http.StatusSeeOther, a.Client.AuthURL())
}

func handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = views.Render(c, http.StatusNotFound, views.NotFound(a.site))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = views.Render(c, code, views.ServerError(a.site))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
