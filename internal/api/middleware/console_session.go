package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/darziflow/console/internal/infrastructure/sessions"
)

const bundleKey = "console.bundle"

// SessionCookie signs (and optionally encrypts) the console session ID.
type SessionCookie struct {
	name   string
	codec  *securecookie.SecureCookie
	ttl    time.Duration
	secure bool
}

// NewSessionCookie builds the cookie codec. blockKey may be nil to sign
// without encrypting.
func NewSessionCookie(name string, hashKey, blockKey []byte, ttl time.Duration, secure bool) *SessionCookie {
	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(ttl.Seconds()))
	return &SessionCookie{name: name, codec: codec, ttl: ttl, secure: secure}
}

// Read returns the session ID carried by r, if the cookie is present and
// authentic.
func (sc *SessionCookie) Read(r *http.Request) (string, bool) {
	ck, err := r.Cookie(sc.name)
	if err != nil {
		return "", false
	}
	var id string
	if err := sc.codec.Decode(sc.name, ck.Value, &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}

// Write sets the cookie for id.
func (sc *SessionCookie) Write(w http.ResponseWriter, id string) error {
	value, err := sc.codec.Encode(sc.name, id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sc.name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(sc.ttl.Seconds()),
		HttpOnly: true,
		Secure:   sc.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ConsoleSession resolves the caller's console session and stores its
// bundle in the echo context. Requests without a valid cookie get a fresh
// session ID.
func ConsoleSession(cookie *SessionCookie, reg *sessions.Registry, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := cookie.Read(c.Request())
			if !ok {
				id = uuid.NewString()
				if err := cookie.Write(c.Response(), id); err != nil {
					log.Error().Err(err).Msg("encode session cookie")
					return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
				}
			}

			b, err := reg.Get(c.Request().Context(), id)
			if err != nil {
				log.Error().Err(err).Str("session_id", id).Msg("load console session")
				return echo.NewHTTPError(http.StatusInternalServerError, "session unavailable")
			}
			c.Set(bundleKey, b)
			return next(c)
		}
	}
}

// Bundle returns the console session bundle set by ConsoleSession, or nil.
func Bundle(c echo.Context) *sessions.Bundle {
	b, _ := c.Get(bundleKey).(*sessions.Bundle)
	return b
}

// SetBundle stores b in the context. Handler tests use it to skip the cookie.
func SetBundle(c echo.Context, b *sessions.Bundle) {
	c.Set(bundleKey, b)
}
