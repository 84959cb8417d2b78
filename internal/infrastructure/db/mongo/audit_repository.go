package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/ports"
)

const sessionEventsCollection = "session_events"

type sessionEventDoc struct {
	ID          string    `bson:"_id"`
	SessionID   string    `bson:"session_id"`
	Kind        string    `bson:"kind"`
	Email       string    `bson:"email,omitempty"`
	Role        string    `bson:"role,omitempty"`
	Path        string    `bson:"path,omitempty"`
	Detail      string    `bson:"detail,omitempty"`
	At          time.Time `bson:"at"`
	ProcessedAt time.Time `bson:"processed_at"`
}

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	db *mongo.Database
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{db: db}
}

var _ ports.AuditRepository = (*AuditRepository)(nil)

// EnsureIndexes creates the lookup index used by ListBySession.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(sessionEventsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("session_events index: %w", err)
	}
	return nil
}

// InsertEvent persists a session event to the session_events audit collection.
func (r *AuditRepository) InsertEvent(ctx context.Context, event *domain.SessionEvent) error {
	doc := sessionEventDoc{
		ID:          event.ID,
		SessionID:   event.SessionID,
		Kind:        string(event.Kind),
		Email:       event.Email,
		Path:        event.Path,
		Detail:      event.Detail,
		At:          event.At.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	if event.Role != domain.RoleUnknown {
		doc.Role = string(event.Role)
	}

	_, err := r.db.Collection(sessionEventsCollection).InsertOne(ctx, doc)
	return err
}

// ListBySession returns the most recent events of a console session, newest first.
func (r *AuditRepository) ListBySession(ctx context.Context, sessionID string, limit int64) ([]domain.SessionEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}}).SetLimit(limit)
	cur, err := r.db.Collection(sessionEventsCollection).Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find session events: %w", err)
	}
	defer cur.Close(ctx)

	var docs []sessionEventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode session events: %w", err)
	}

	events := make([]domain.SessionEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, domain.SessionEvent{
			ID:        d.ID,
			SessionID: d.SessionID,
			Kind:      domain.SessionEventKind(d.Kind),
			Email:     d.Email,
			Role:      domain.ParseRole(d.Role),
			Path:      d.Path,
			Detail:    d.Detail,
			At:        d.At,
		})
	}
	return events, nil
}
