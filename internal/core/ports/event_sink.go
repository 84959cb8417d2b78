package ports

import "github.com/darziflow/console/internal/core/domain"

// EventSink receives session events. Implementations must not block the
// caller on I/O.
type EventSink interface {
	Record(event domain.SessionEvent)
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Record(domain.SessionEvent) {}
