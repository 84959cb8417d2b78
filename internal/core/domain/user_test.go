package domain

import (
	"encoding/json"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"ADMIN":       RoleAdmin,
		"admin":       RoleAdmin,
		" Moderator ": RoleModerator,
		"WORKER":      RoleWorker,
		"SUPERVISOR":  RoleUnknown,
		"":            RoleUnknown,
	}
	for in, want := range cases {
		if got := ParseRole(in); got != want {
			t.Fatalf("ParseRole(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRoleIn(t *testing.T) {
	allowed := []Role{RoleAdmin, RoleModerator}
	if !RoleAdmin.In(allowed) {
		t.Fatalf("admin should be allowed")
	}
	if RoleWorker.In(allowed) {
		t.Fatalf("worker should not be allowed")
	}
	if RoleUnknown.In([]Role{RoleUnknown}) {
		t.Fatalf("unknown role must never match an allow-list")
	}
	if RoleAdmin.In(nil) {
		t.Fatalf("empty list has no members")
	}
}

func TestRoleUnmarshalNormalises(t *testing.T) {
	var u User
	if err := json.Unmarshal([]byte(`{"email":"a@b.c","role":"moderator"}`), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.Role != RoleModerator {
		t.Fatalf("expected MODERATOR, got %q", u.Role)
	}
}

func TestPrincipalCloneIsIndependent(t *testing.T) {
	p := &Principal{Email: "a@b.c", Role: RoleAdmin, MustChangePassword: true}
	c := p.Clone()
	c.MustChangePassword = false
	if !p.MustChangePassword {
		t.Fatalf("clone mutated original")
	}
	var nilP *Principal
	if nilP.Clone() != nil {
		t.Fatalf("clone of nil should be nil")
	}
}

func TestMessageOf(t *testing.T) {
	if MessageOf(nil) != "" {
		t.Fatalf("nil error has no message")
	}
	if got := MessageOf(ErrForbidden); got != "access forbidden" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := MessageOf(userMsgErr{"Wrong password"}); got != "Wrong password" {
		t.Fatalf("unexpected message %q", got)
	}
}

type userMsgErr struct{ msg string }

func (e userMsgErr) Error() string       { return "wrapped: " + e.msg }
func (e userMsgErr) UserMessage() string { return e.msg }
