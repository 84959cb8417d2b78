package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/darziflow/console/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubAuditRepo struct {
	insertErr error
	inserted  []domain.SessionEvent
}

func (r *stubAuditRepo) InsertEvent(_ context.Context, e *domain.SessionEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, *e)
	return nil
}

func (r *stubAuditRepo) ListBySession(_ context.Context, sessionID string, limit int64) ([]domain.SessionEvent, error) {
	var out []domain.SessionEvent
	for i := len(r.inserted) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if r.inserted[i].SessionID == sessionID {
			out = append(out, r.inserted[i])
		}
	}
	return out, nil
}

type stubDedup struct {
	dupErr error
	seen   map[string]bool
}

func (d *stubDedup) key(ev domain.SessionEvent) string { return ev.SessionID + ":" + ev.Path }

func (d *stubDedup) IsDuplicate(_ context.Context, ev domain.SessionEvent) (bool, error) {
	if d.dupErr != nil {
		return false, d.dupErr
	}
	return d.seen[d.key(ev)], nil
}

func (d *stubDedup) Mark(_ context.Context, ev domain.SessionEvent) error {
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	d.seen[d.key(ev)] = true
	return nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestAuditService_Process_AssignsIDAndTime(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, nil, zerolog.Nop())

	if err := svc.Process(context.Background(), domain.SessionEvent{SessionID: "s1", Kind: domain.EventLogin}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 event stored, got %d", len(repo.inserted))
	}
	if repo.inserted[0].ID == "" || repo.inserted[0].At.IsZero() {
		t.Errorf("expected ID and timestamp to be set: %+v", repo.inserted[0])
	}
}

func TestAuditService_Process_DeniedCollapsed(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, &stubDedup{}, zerolog.Nop())
	ev := domain.SessionEvent{SessionID: "s1", Kind: domain.EventDenied, Path: "/users"}

	for i := 0; i < 3; i++ {
		if err := svc.Process(context.Background(), ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(repo.inserted) != 1 {
		t.Errorf("expected repeated denials collapsed to 1, got %d", len(repo.inserted))
	}
}

func TestAuditService_Process_OnlyDeniedIsDeduplicated(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, &stubDedup{}, zerolog.Nop())
	ev := domain.SessionEvent{SessionID: "s1", Kind: domain.EventRotated}

	_ = svc.Process(context.Background(), ev)
	_ = svc.Process(context.Background(), ev)
	if len(repo.inserted) != 2 {
		t.Errorf("expected both rotations stored, got %d", len(repo.inserted))
	}
}

func TestAuditService_Process_DedupErrorRecordsAnyway(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, &stubDedup{dupErr: errors.New("redis timeout")}, zerolog.Nop())

	err := svc.Process(context.Background(), domain.SessionEvent{SessionID: "s1", Kind: domain.EventDenied, Path: "/users"})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(repo.inserted) != 1 {
		t.Errorf("expected event stored when dedup check errors")
	}
}

func TestAuditService_Process_RepoErrorWrapped(t *testing.T) {
	cause := errors.New("mongo unavailable")
	svc := NewAuditService(&stubAuditRepo{insertErr: cause}, nil, zerolog.Nop())

	err := svc.Process(context.Background(), domain.SessionEvent{SessionID: "s1", Kind: domain.EventLogout})
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped repo error, got: %v", err)
	}
}

func TestAuditService_NoRepoOnlyLogs(t *testing.T) {
	svc := NewAuditService(nil, nil, zerolog.Nop())
	if err := svc.Process(context.Background(), domain.SessionEvent{Kind: domain.EventLogin}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events, err := svc.History(context.Background(), "s1", 10)
	if err != nil || events != nil {
		t.Fatalf("expected empty history, got %v %v", events, err)
	}
}

func TestAuditService_History(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, nil, zerolog.Nop())
	for _, k := range []domain.SessionEventKind{domain.EventBootstrap, domain.EventLogin, domain.EventLogout} {
		_ = svc.Process(context.Background(), domain.SessionEvent{SessionID: "s1", Kind: k})
	}
	_ = svc.Process(context.Background(), domain.SessionEvent{SessionID: "other", Kind: domain.EventLogin})

	events, err := svc.History(context.Background(), "s1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 || events[0].Kind != domain.EventLogout || events[1].Kind != domain.EventLogin {
		t.Fatalf("expected newest-first [logout login], got %+v", events)
	}
}
