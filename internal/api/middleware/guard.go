package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/darziflow/console/internal/api/metrics"
	"github.com/darziflow/console/internal/api/views"
	"github.com/darziflow/console/internal/core/guard"
	"github.com/darziflow/console/internal/core/service"
)

const defaultBootstrapWait = 2 * time.Second

type guardConfig struct {
	bootstrapWait time.Duration
}

// GuardOption customises Guard.
type GuardOption func(*guardConfig)

// WithBootstrapWait bounds how long a request waits for the session's first
// who-am-I call before the loading page is served instead.
func WithBootstrapWait(d time.Duration) GuardOption {
	return func(cfg *guardConfig) { cfg.bootstrapWait = d }
}

// Guard protects the views under route. It starts the console session's
// bootstrap, then lets guard.Decide pick between rendering, the loading page
// and a redirect.
func Guard(route guard.Route, log zerolog.Logger, opts ...GuardOption) echo.MiddlewareFunc {
	cfg := guardConfig{bootstrapWait: defaultBootstrapWait}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			b := Bundle(c)
			if b == nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "console session missing")
			}

			awaitBootstrap(c.Request().Context(), b.Session, cfg.bootstrapWait)
			snap := b.Session.Snapshot()

			d := guard.Decide(guard.Input{
				Loading:      snap.Loading,
				Principal:    snap.Principal,
				AllowedRoles: route.AllowedRoles,
				Path:         route.Path,
			})
			metrics.GuardDecisionsTotal.WithLabelValues(d.Outcome.String(), string(d.Reason)).Inc()

			switch d.Outcome {
			case guard.Render:
				return next(c)
			case guard.Loading:
				c.Response().Header().Set("Refresh", "1")
				return c.Render(http.StatusOK, views.PageLoading, views.Page{Title: "Loading", Path: c.Request().URL.Path})
			default:
				if d.Reason == guard.ReasonRoleDenied {
					b.Session.RecordDenied(c.Request().URL.Path)
					log.Info().
						Str("session_id", b.ID).
						Str("path", c.Request().URL.Path).
						Str("role", snap.Principal.Role.String()).
						Msg("route denied")
				}
				return Redirect(c, d.Target)
			}
		}
	}
}

// awaitBootstrap runs the session's bootstrap detached from the request and
// waits for it at most wait. A slow backend leaves the session
// Bootstrapping; the next request joins the same call.
func awaitBootstrap(ctx context.Context, s *service.Session, wait time.Duration) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.EnsureBootstrapped(context.WithoutCancel(ctx))
	}()

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-done:
	case <-t.C:
	case <-ctx.Done():
	}
}

// Redirect sends the browser to target: 303 See Other for regular requests,
// Hx-Redirect for htmx so the whole page navigates instead of a fragment swap.
func Redirect(c echo.Context, target string) error {
	if views.IsHTMX(c.Request()) {
		c.Response().Header().Set("Hx-Redirect", target)
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, target)
}
