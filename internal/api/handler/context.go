package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/darziflow/console/internal/api/middleware"
	"github.com/darziflow/console/internal/api/views"
	"github.com/darziflow/console/internal/core/service"
	"github.com/darziflow/console/internal/infrastructure/sessions"
)

const flashParam = "flash"

// ctxBundle extracts the console session injected by the ConsoleSession
// middleware. Its absence means the route was wired without it.
func ctxBundle(c echo.Context) (*sessions.Bundle, error) {
	b := middleware.Bundle(c)
	if b == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "console session missing")
	}
	return b, nil
}

// newPage fills the parts of views.Page every screen shares: the viewer,
// the interstitial overlay and any flash message carried by a redirect.
func newPage(c echo.Context, b *sessions.Bundle, ov *service.Interstitial, title string) views.Page {
	snap := b.Session.Snapshot()
	return views.Page{
		Title:     title,
		Path:      c.Request().URL.Path,
		Principal: snap.Principal,
		Overlay:   ov.Overlay(snap),
		Flash:     c.QueryParam(flashParam),
		Form:      map[string]string{},
	}
}

// redirectFlash redirects to target carrying msg as a one-shot flash.
func redirectFlash(c echo.Context, target, msg string) error {
	if msg != "" {
		target += "?" + flashParam + "=" + url.QueryEscape(msg)
	}
	return middleware.Redirect(c, target)
}

// formValues snapshots the named form fields so a failed submission can be
// redrawn with what the user typed.
func formValues(c echo.Context, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = c.FormValue(k)
	}
	return out
}
