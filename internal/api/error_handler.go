package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/darziflow/console/internal/api/middleware"
	"github.com/darziflow/console/internal/api/views"
	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/guard"
	"github.com/darziflow/console/internal/infrastructure/apiclient"
)

// errorResponse is the canonical error envelope for all JSON errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Sends browsers back to the login screen when the backend ended the session.
//   - Maps domain and backend client errors to HTTP status codes.
//   - Logs unexpected errors without leaking details to the client.
//   - Renders the error page for browsers and {"error": "<message>"} otherwise.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		wantsJSON := isJSONRequest(c.Request())
		if errors.Is(err, domain.ErrSessionExpired) && !wantsJSON {
			_ = middleware.Redirect(c, guard.EntryPath)
			return
		}

		code, msg := resolveError(err, log, c)
		if wantsJSON {
			_ = c.JSON(code, errorResponse{Error: msg})
			return
		}

		page := views.Page{Title: http.StatusText(code), Path: c.Request().URL.Path, Error: msg}
		if b := middleware.Bundle(c); b != nil {
			page.Principal = b.Session.Snapshot().Principal
		}
		if rerr := c.Render(code, views.PageError, page); rerr != nil {
			log.Error().Err(rerr).Msg("render error page")
			_ = c.String(code, msg)
		}
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusUnauthorized, domain.MessageOf(err)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, domain.MessageOf(err)
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, domain.MessageOf(err)
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.MessageOf(err)
	}

	switch apiclient.KindOf(err) {
	case apiclient.KindTransport:
		log.Warn().Err(err).Str("path", c.Path()).Msg("backend unreachable")
		return http.StatusBadGateway, "the DarziFlow service is unreachable, try again shortly"
	case apiclient.KindStatus:
		status := apiclient.StatusOf(err)
		if status >= http.StatusInternalServerError {
			log.Warn().Err(err).Str("path", c.Path()).Msg("backend error")
			return http.StatusBadGateway, domain.MessageOf(err)
		}
		return status, domain.MessageOf(err)
	case apiclient.KindDecode:
		log.Error().Err(err).Str("path", c.Path()).Msg("unreadable backend response")
		return http.StatusBadGateway, "unexpected response from the DarziFlow service"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

// isJSONRequest reports whether the caller expects a JSON error body.
func isJSONRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/metrics" || strings.HasPrefix(r.URL.Path, "/health") {
		return true
	}
	accept := r.Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMEApplicationJSON) && !strings.Contains(accept, echo.MIMETextHTML)
}
