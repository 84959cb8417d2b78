package ports

import (
	"context"

	"github.com/darziflow/console/internal/core/domain"
)

// AuditRepository persists session events.
type AuditRepository interface {
	// InsertEvent appends an event to the session_events audit collection.
	InsertEvent(ctx context.Context, event *domain.SessionEvent) error
	// ListBySession returns the most recent events of one console session,
	// newest first.
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]domain.SessionEvent, error)
}
