// Package tokenstore holds the persisted bearer token of console sessions
// and of the CLI. Every store keeps one value per slot under ports.TokenKey.
package tokenstore

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ttlFor decides how long a token slot may live. Tokens are opaque to the
// console, but when the backend issues JWTs the exp claim bounds the slot so
// stale tokens age out on their own. The signature is not checked: the
// backend remains the only judge of validity.
func ttlFor(token string, fallback time.Duration, now time.Time) time.Duration {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return fallback
	}
	ttl := claims.ExpiresAt.Sub(now)
	if ttl <= 0 {
		// Already past exp; keep it briefly so the backend can answer 401.
		return time.Minute
	}
	if fallback > 0 && ttl > fallback {
		return fallback
	}
	return ttl
}
