package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/darziflow/console/internal/api/middleware"
	"github.com/darziflow/console/internal/api/views"
	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/guard"
	"github.com/darziflow/console/internal/core/service"
	"github.com/darziflow/console/internal/infrastructure/apiclient"
)

const maxEventsLimit = 200

// AuthHandler serves the login screen, logout, the interstitial
// acknowledgement and the JSON session API.
type AuthHandler struct {
	interstitial *service.Interstitial
	audit        *service.AuditService
	landing      guard.Route
	log          zerolog.Logger
}

// NewAuthHandler wires the handler. landing is where authenticated users are
// sent from the login screen; audit may be nil when the trail is disabled.
func NewAuthHandler(interstitial *service.Interstitial, audit *service.AuditService, landing guard.Route, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{interstitial: interstitial, audit: audit, landing: landing, log: log}
}

// LoginPage handles GET /. Authenticated users go to the landing page when
// their role may see it; everyone else gets the login form.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	b, err := ctxBundle(c)
	if err != nil {
		return err
	}
	b.Session.EnsureBootstrapped(c.Request().Context())

	page := newPage(c, b, h.interstitial, "Sign in")
	if p := page.Principal; p != nil {
		if p.Role.In(h.landing.AllowedRoles) {
			return middleware.Redirect(c, h.landing.Path)
		}
		page.Error = fmt.Sprintf("Your %s account has no access to the console.", strings.ToLower(p.Role.String()))
	}
	return c.Render(http.StatusOK, views.PageLogin, page)
}

// Login handles POST /login. Rejections redraw the form with the backend's
// message; the session is left untouched.
func (h *AuthHandler) Login(c echo.Context) error {
	b, err := ctxBundle(c)
	if err != nil {
		return err
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	page := newPage(c, b, h.interstitial, "Sign in")
	page.Form["email"] = req.Email
	if err := c.Validate(&req); err != nil {
		page.Error = domain.MessageOf(err)
		return c.Render(http.StatusOK, views.PageLogin, page)
	}

	if _, err := b.Session.Login(c.Request().Context(), domain.Credentials{Email: req.Email, Password: req.Password}); err != nil {
		if !isInline(err) {
			return err
		}
		page.Error = domain.MessageOf(err)
		return c.Render(http.StatusOK, views.PageLogin, page)
	}
	return middleware.Redirect(c, h.landing.Path)
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(c echo.Context) error {
	b, err := ctxBundle(c)
	if err != nil {
		return err
	}
	b.Session.Logout(c.Request().Context())
	return middleware.Redirect(c, guard.EntryPath)
}

// Acknowledge handles POST /interstitial/ack: the overlay's only button.
func (h *AuthHandler) Acknowledge(c echo.Context) error {
	b, err := ctxBundle(c)
	if err != nil {
		return err
	}
	return middleware.Redirect(c, h.interstitial.Acknowledge(b.Session))
}

// Session returns the current session snapshot.
//
// @Summary      Current console session
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /api/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	b, err := ctxBundle(c)
	if err != nil {
		return err
	}
	b.Session.EnsureBootstrapped(c.Request().Context())
	snap := b.Session.Snapshot()
	return c.JSON(http.StatusOK, toSessionResponse(snap, h.interstitial.Overlay(snap)))
}

// APILogin authenticates the console session.
//
// @Summary      Login
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /api/login [post]
func (h *AuthHandler) APILogin(c echo.Context) error {
	b, err := ctxBundle(c)
	if err != nil {
		return err
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	p, err := b.Session.Login(c.Request().Context(), domain.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{Principal: p})
}

// APILogout ends the console session.
//
// @Summary      Logout
// @Tags         session
// @Success      204
// @Router       /api/logout [post]
func (h *AuthHandler) APILogout(c echo.Context) error {
	b, err := ctxBundle(c)
	if err != nil {
		return err
	}
	b.Session.Logout(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

// Events lists the audit trail of the console session, newest first.
//
// @Summary      Session audit trail
// @Tags         session
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of events (default 20, max 200)"
// @Success      200    {object}  sessionEventsResponse
// @Failure      400    {object}  errorResponse
// @Router       /api/session/events [get]
func (h *AuthHandler) Events(c echo.Context) error {
	b, err := ctxBundle(c)
	if err != nil {
		return err
	}
	var limit int64
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 1 || limit > maxEventsLimit {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxEventsLimit))
		}
	}

	var events []domain.SessionEvent
	if h.audit != nil {
		events, err = h.audit.History(c.Request().Context(), b.ID, limit)
		if err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, toSessionEventsResponse(events))
}

// isInline reports whether err belongs next to the form that caused it
// rather than on the error page.
func isInline(err error) bool {
	var ve *validationError
	if errors.As(err, &ve) || errors.Is(err, domain.ErrInvalidCredentials) {
		return true
	}
	if apiclient.KindOf(err) != apiclient.KindStatus {
		return false
	}
	status := apiclient.StatusOf(err)
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError &&
		!errors.Is(err, domain.ErrNotFound)
}
