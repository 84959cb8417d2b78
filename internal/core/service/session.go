package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/darziflow/console/internal/api/metrics"
	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/ports"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateBootstrapping State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateBootstrapping:
		return "bootstrapping"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent, caller-owned view of a Session.
type Snapshot struct {
	State     State
	Principal *domain.Principal
	Loading   bool
}

// Session holds the current principal of one client and drives its
// lifecycle: Bootstrapping -> Anonymous | Authenticated. The bearer token is
// never touched here except through the AuthAPI's own login and teardown.
type Session struct {
	id   string
	api  ports.AuthAPI
	sink ports.EventSink
	log  zerolog.Logger
	now  func() time.Time

	mu           sync.RWMutex
	state        State
	principal    *domain.Principal
	bootstrapped bool

	flight singleflight.Group
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithSessionID tags events and logs with the console session ID.
func WithSessionID(id string) SessionOption {
	return func(s *Session) { s.id = id }
}

// WithEventSink routes lifecycle events to sink.
func WithEventSink(sink ports.EventSink) SessionOption {
	return func(s *Session) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithSessionLogger sets the session's logger.
func WithSessionLogger(log zerolog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// NewSession returns a Session in the Bootstrapping state.
func NewSession(api ports.AuthAPI, opts ...SessionOption) *Session {
	s := &Session{
		api:   api,
		sink:  ports.NopSink{},
		log:   zerolog.Nop(),
		now:   time.Now,
		state: StateBootstrapping,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the console session ID, if any.
func (s *Session) ID() string { return s.id }

// Snapshot returns the current state with a copy of the principal.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		State:     s.state,
		Principal: s.principal.Clone(),
		Loading:   s.state == StateBootstrapping,
	}
}

// EnsureBootstrapped bootstraps the session the first time it is called and
// returns the current state afterwards.
func (s *Session) EnsureBootstrapped(ctx context.Context) State {
	s.mu.RLock()
	done := s.bootstrapped
	state := s.state
	s.mu.RUnlock()
	if done {
		return state
	}
	v, _, _ := s.flight.Do("bootstrap", func() (any, error) {
		s.mu.RLock()
		done, state := s.bootstrapped, s.state
		s.mu.RUnlock()
		if done {
			return state, nil
		}
		return s.bootstrap(ctx), nil
	})
	return v.(State)
}

// Bootstrap resolves the persisted token to a principal. Without a token the
// session goes straight to Anonymous; with one, a who-am-I call decides.
// Any failure clears the token and lands in Anonymous without surfacing an
// error. Concurrent callers share a single who-am-I call.
func (s *Session) Bootstrap(ctx context.Context) State {
	v, _, _ := s.flight.Do("bootstrap", func() (any, error) {
		return s.bootstrap(ctx), nil
	})
	return v.(State)
}

func (s *Session) bootstrap(ctx context.Context) State {
	s.mu.Lock()
	s.state = StateBootstrapping
	s.principal = nil
	s.mu.Unlock()

	var principal *domain.Principal
	if s.api.HasToken() {
		p, err := s.api.Me(ctx)
		if err != nil {
			s.log.Debug().Err(err).Str("session_id", s.id).Msg("bootstrap: stored token rejected")
			if clearErr := s.api.ClearToken(ctx); clearErr != nil {
				s.log.Warn().Err(clearErr).Str("session_id", s.id).Msg("bootstrap: clear token")
			}
		} else {
			principal = p
		}
	}

	s.mu.Lock()
	s.bootstrapped = true
	if principal != nil {
		s.state = StateAuthenticated
		s.principal = principal
	} else {
		s.state = StateAnonymous
		s.principal = nil
	}
	state := s.state
	s.mu.Unlock()

	metrics.BootstrapsTotal.WithLabelValues(state.String()).Inc()
	s.emit(domain.EventBootstrap, principal, "", state.String())
	return state
}

// Login authenticates and, on success, replaces the principal wholesale.
// The error is returned as is; rejected credentials match
// domain.ErrInvalidCredentials. A failed login never sets a principal, but a
// 401 from the backend still runs the client's teardown, so a session that
// was already authenticated is logged out by it.
func (s *Session) Login(ctx context.Context, creds domain.Credentials) (*domain.Principal, error) {
	p, err := s.api.Login(ctx, creds)
	if err != nil {
		result := "error"
		if errors.Is(err, domain.ErrInvalidCredentials) {
			result = "rejected"
		}
		metrics.LoginsTotal.WithLabelValues(result).Inc()
		s.emit(domain.EventLoginFailed, &domain.Principal{Email: creds.Email}, "", domain.MessageOf(err))
		return nil, err
	}

	s.mu.Lock()
	s.bootstrapped = true
	s.state = StateAuthenticated
	s.principal = p.Clone()
	s.mu.Unlock()

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.emit(domain.EventLogin, p, "", "")
	s.log.Info().Str("session_id", s.id).Str("email", p.Email).Str("role", p.Role.String()).Msg("login")
	return p, nil
}

// Logout tells the backend (best effort), drops the token and goes
// Anonymous regardless of what the backend said.
func (s *Session) Logout(ctx context.Context) {
	prev := s.Snapshot().Principal

	if err := s.api.Logout(ctx); err != nil {
		s.log.Warn().Err(err).Str("session_id", s.id).Msg("logout: backend call failed")
	}
	if err := s.api.ClearToken(ctx); err != nil {
		s.log.Warn().Err(err).Str("session_id", s.id).Msg("logout: clear token")
	}

	s.toAnonymous()
	s.emit(domain.EventLogout, prev, "", "")
}

// Expire is called once the client has cleared the token after a 401.
func (s *Session) Expire() {
	prev := s.Snapshot().Principal
	s.toAnonymous()
	s.emit(domain.EventExpired, prev, "", "")
}

// TokenRotated records that the backend replaced the bearer token.
func (s *Session) TokenRotated() {
	s.emit(domain.EventRotated, s.Snapshot().Principal, "", "")
}

// ClearMustChangePassword drops the forced-rotation flag for the rest of this
// session. It is not persisted; the next bootstrap asks the backend again.
func (s *Session) ClearMustChangePassword() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal != nil {
		s.principal.MustChangePassword = false
	}
}

// RecordDenied audits a guard rejection.
func (s *Session) RecordDenied(path string) {
	s.emit(domain.EventDenied, s.Snapshot().Principal, path, "role not allowed")
}

func (s *Session) toAnonymous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bootstrapped = true
	s.state = StateAnonymous
	s.principal = nil
}

func (s *Session) emit(kind domain.SessionEventKind, p *domain.Principal, path, detail string) {
	ev := domain.SessionEvent{
		SessionID: s.id,
		Kind:      kind,
		Path:      path,
		Detail:    detail,
		At:        s.now().UTC(),
	}
	if p != nil {
		ev.Email = p.Email
		ev.Role = p.Role
	}
	s.sink.Record(ev)
}
