package ports

import "context"

// TokenKey is the fixed key the bearer token is persisted under.
const TokenKey = "accessToken"

// TokenStore persists the bearer token of one client. Load returns
// domain.ErrTokenNotFound when nothing is stored; Clear is idempotent.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// TokenStoreFactory hands out the token slot of a console session.
type TokenStoreFactory interface {
	ForSession(sessionID string) TokenStore
}
