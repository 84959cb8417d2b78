package domain

import (
	"strings"
	"time"
)

// Role is the closed set of console roles understood by the route guard.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RoleWorker    Role = "WORKER"
	RoleUnknown   Role = ""
)

// ParseRole maps a raw backend role string onto a Role. Anything outside the
// known set becomes RoleUnknown, which no allow-list contains.
func ParseRole(s string) Role {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(RoleAdmin):
		return RoleAdmin
	case string(RoleModerator):
		return RoleModerator
	case string(RoleWorker):
		return RoleWorker
	default:
		return RoleUnknown
	}
}

func (r Role) String() string {
	if r == RoleUnknown {
		return "UNKNOWN"
	}
	return string(r)
}

// UnmarshalText normalises backend role strings on decode.
func (r *Role) UnmarshalText(b []byte) error {
	*r = ParseRole(string(b))
	return nil
}

// In reports whether r is a member of roles.
func (r Role) In(roles []Role) bool {
	if r == RoleUnknown {
		return false
	}
	for _, allowed := range roles {
		if allowed == r {
			return true
		}
	}
	return false
}

// Principal is the authenticated user as known to the console.
type Principal struct {
	ID                 string `json:"id,omitempty"`
	Name               string `json:"name,omitempty"`
	Email              string `json:"email"`
	Role               Role   `json:"role"`
	MustChangePassword bool   `json:"mustChangePassword"`
}

// Clone returns a copy so callers never share the session's principal.
func (p *Principal) Clone() *Principal {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// DisplayName prefers the name and falls back to the email.
func (p *Principal) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}

// Credentials are what the login form collects.
type Credentials struct {
	Email    string
	Password string
	Platform string
}

// User is a backend account as listed on the users screen.
type User struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Role               Role      `json:"role"`
	Department         string    `json:"department,omitempty"`
	MustChangePassword bool      `json:"mustChangePassword"`
	CreatedAt          time.Time `json:"createdAt"`
}
