package service

import (
	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/guard"
)

// OverlayView is what the layout needs to draw the forced-password-change
// overlay.
type OverlayView struct {
	Visible bool
	Target  string
	Name    string
}

// Interstitial is the session-wide blocking overlay shown while the
// principal must rotate their password. It only routes the user to the
// profile screen; the password change itself happens there.
type Interstitial struct{}

// NewInterstitial returns the interstitial component.
func NewInterstitial() *Interstitial { return &Interstitial{} }

// Overlay renders nothing unless the principal carries the flag.
func (Interstitial) Overlay(snap Snapshot) OverlayView {
	if snap.Principal == nil || !snap.Principal.MustChangePassword {
		return OverlayView{}
	}
	return OverlayView{
		Visible: true,
		Target:  guard.ProfilePath,
		Name:    snap.Principal.DisplayName(),
	}
}

// Acknowledge clears the flag on the session and returns where to navigate.
func (Interstitial) Acknowledge(s *Session) string {
	prev := s.Snapshot().Principal
	s.ClearMustChangePassword()
	if prev != nil && prev.MustChangePassword {
		s.emit(domain.EventInterstitialAck, prev, guard.ProfilePath, "")
	}
	return guard.ProfilePath
}
