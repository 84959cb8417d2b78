// Package guard decides whether a protected view may render. Decide is a
// pure function of its input: no I/O, no clock, no shared state.
package guard

import (
	"strings"

	"github.com/darziflow/console/internal/core/domain"
)

const (
	// EntryPath is the public entry route (the login screen).
	EntryPath = "/"
	// ProfilePath is the only protected route reachable while a password
	// change is pending.
	ProfilePath = "/profile"
)

// Outcome is the guard's verdict.
type Outcome int

const (
	Render Outcome = iota
	Loading
	RedirectLogin
	RedirectInterstitial
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Loading:
		return "loading"
	case RedirectLogin:
		return "redirect_login"
	case RedirectInterstitial:
		return "redirect_interstitial"
	default:
		return "unknown"
	}
}

// Reason records which rule produced the outcome. Role violations redirect
// exactly like anonymous access; the reason only feeds logs and metrics.
type Reason string

const (
	ReasonBootstrapping Reason = "bootstrapping"
	ReasonAnonymous     Reason = "anonymous"
	ReasonMustChange    Reason = "must_change_password"
	ReasonRoleDenied    Reason = "role_denied"
	ReasonAllowed       Reason = "allowed"
)

// Route is a protected view and the roles allowed to see it. An empty
// AllowedRoles admits any authenticated role.
type Route struct {
	Path         string
	AllowedRoles []domain.Role
}

// Input is everything a decision depends on.
type Input struct {
	Loading      bool
	Principal    *domain.Principal
	AllowedRoles []domain.Role
	Path         string
}

// Decision is the guard's answer. Target is set for redirects.
type Decision struct {
	Outcome Outcome
	Target  string
	Reason  Reason
}

// Decide applies the rules in order; the first that matches wins.
//  1. loading              -> Loading
//  2. no principal         -> redirect to EntryPath
//  3. must change password -> redirect to ProfilePath, unless already there
//  4. role not allowed     -> redirect to EntryPath
//  5. otherwise            -> Render
func Decide(in Input) Decision {
	if in.Loading {
		return Decision{Outcome: Loading, Reason: ReasonBootstrapping}
	}
	if in.Principal == nil {
		return Decision{Outcome: RedirectLogin, Target: EntryPath, Reason: ReasonAnonymous}
	}
	if in.Principal.MustChangePassword && !samePath(in.Path, ProfilePath) {
		return Decision{Outcome: RedirectInterstitial, Target: ProfilePath, Reason: ReasonMustChange}
	}
	if len(in.AllowedRoles) > 0 && !in.Principal.Role.In(in.AllowedRoles) {
		return Decision{Outcome: RedirectLogin, Target: EntryPath, Reason: ReasonRoleDenied}
	}
	return Decision{Outcome: Render, Reason: ReasonAllowed}
}

// samePath compares request paths ignoring a trailing slash.
func samePath(a, b string) bool {
	return trimSlash(a) == trimSlash(b)
}

func trimSlash(p string) string {
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			return "/"
		}
	}
	return p
}
