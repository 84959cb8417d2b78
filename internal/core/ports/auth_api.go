package ports

import (
	"context"

	"github.com/darziflow/console/internal/core/domain"
)

// AuthAPI is the slice of the backend client the session store depends on.
// Token persistence stays inside the implementation: Login stores the
// returned token, and only ClearToken is exposed for teardown.
type AuthAPI interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.Principal, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*domain.Principal, error)
	HasToken() bool
	ClearToken(ctx context.Context) error
}
