package domain

import "time"

// SessionEventKind names a session lifecycle transition.
type SessionEventKind string

const (
	EventLogin           SessionEventKind = "login"
	EventLoginFailed     SessionEventKind = "login_failed"
	EventLogout          SessionEventKind = "logout"
	EventExpired         SessionEventKind = "expired"
	EventRotated         SessionEventKind = "rotated"
	EventBootstrap       SessionEventKind = "bootstrap"
	EventDenied          SessionEventKind = "denied"
	EventInterstitialAck SessionEventKind = "interstitial_ack"
)

// SessionEvent is one entry of the console's session audit trail.
type SessionEvent struct {
	ID        string
	SessionID string
	Kind      SessionEventKind
	Email     string
	Role      Role
	Path      string
	Detail    string
	At        time.Time
}
