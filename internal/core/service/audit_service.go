package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/darziflow/console/internal/api/metrics"
	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/ports"
)

// DedupChecker abstracts the idempotency store (Redis).
type DedupChecker interface {
	IsDuplicate(ctx context.Context, ev domain.SessionEvent) (bool, error)
	Mark(ctx context.Context, ev domain.SessionEvent) error
}

// AuditService persists session events to the audit trail.
type AuditService struct {
	repo  ports.AuditRepository
	dedup DedupChecker
	log   zerolog.Logger
}

// NewAuditService returns an AuditService. repo may be nil, in which case
// events are only logged; dedup may be nil to keep every event.
func NewAuditService(repo ports.AuditRepository, dedup DedupChecker, log zerolog.Logger) *AuditService {
	return &AuditService{repo: repo, dedup: dedup, log: log}
}

// Process deduplicates and stores a single session event.
func (s *AuditService) Process(ctx context.Context, ev domain.SessionEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	// Repeated denials of the same page are collapsed.
	if s.dedup != nil && ev.Kind == domain.EventDenied {
		isDup, err := s.dedup.IsDuplicate(ctx, ev)
		if err != nil {
			s.log.Warn().Err(err).Str("session_id", ev.SessionID).Msg("dedup check failed, recording anyway")
		} else if isDup {
			metrics.AuditEventsTotal.WithLabelValues("duplicate").Inc()
			return nil
		}
		if err := s.dedup.Mark(ctx, ev); err != nil {
			s.log.Warn().Err(err).Str("session_id", ev.SessionID).Msg("failed to set dedup key")
		}
	}

	s.log.Info().
		Str("session_id", ev.SessionID).
		Str("kind", string(ev.Kind)).
		Str("email", ev.Email).
		Str("role", ev.Role.String()).
		Str("path", ev.Path).
		Str("detail", ev.Detail).
		Msg("session event")

	if s.repo == nil {
		metrics.AuditEventsTotal.WithLabelValues("logged").Inc()
		return nil
	}
	if err := s.repo.InsertEvent(ctx, &ev); err != nil {
		metrics.AuditEventsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("audit event: %w", err)
	}
	metrics.AuditEventsTotal.WithLabelValues("stored").Inc()
	return nil
}

// History returns the latest events of one console session, newest first.
func (s *AuditService) History(ctx context.Context, sessionID string, limit int64) ([]domain.SessionEvent, error) {
	if s.repo == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	events, err := s.repo.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit history: %w", err)
	}
	return events, nil
}
