package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/ports"
)

const tokenCollection = "console_tokens"

// Mongo keeps console session tokens in MongoDB. A TTL index on expires_at
// removes slots whose token can no longer be valid.
type Mongo struct {
	coll   *mongo.Collection
	maxTTL time.Duration
	now    func() time.Time
}

var _ ports.TokenStoreFactory = (*Mongo)(nil)

type tokenDoc struct {
	SessionID string    `bson:"_id"`
	Key       string    `bson:"key"`
	Token     string    `bson:"token"`
	UpdatedAt time.Time `bson:"updated_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// NewMongo creates a Mongo-backed store on db.
func NewMongo(db *mongo.Database, maxTTL time.Duration) *Mongo {
	return &Mongo{coll: db.Collection(tokenCollection), maxTTL: maxTTL, now: time.Now}
}

// EnsureIndexes creates the TTL index. Safe to call on every start.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
	})
	if err != nil {
		return fmt.Errorf("create token ttl index: %w", err)
	}
	return nil
}

func (m *Mongo) ForSession(sessionID string) ports.TokenStore {
	return &mongoSlot{m: m, id: sessionID}
}

type mongoSlot struct {
	m  *Mongo
	id string
}

func (s *mongoSlot) Load(ctx context.Context) (string, error) {
	var doc tokenDoc
	err := s.m.coll.FindOne(ctx, bson.M{"_id": s.id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", domain.ErrTokenNotFound
		}
		return "", fmt.Errorf("find token: %w", err)
	}
	if doc.expired(s.m.now()) {
		return "", domain.ErrTokenNotFound
	}
	return doc.Token, nil
}

// expired reports whether the slot is past expires_at. The TTL monitor runs
// about once a minute, so a slot it has not reached yet is still expired.
func (d tokenDoc) expired(now time.Time) bool {
	return !d.ExpiresAt.IsZero() && now.After(d.ExpiresAt)
}

// slotUpdate is the upsert applied by Save. Without a usable TTL the slot
// never expires.
func slotUpdate(token string, maxTTL time.Duration, now time.Time) bson.M {
	set := bson.M{
		"key":        ports.TokenKey,
		"token":      token,
		"updated_at": now,
	}
	update := bson.M{"$set": set}
	if ttl := ttlFor(token, maxTTL, now); ttl > 0 {
		set["expires_at"] = now.Add(ttl)
	} else {
		update["$unset"] = bson.M{"expires_at": ""}
	}
	return update
}

func (s *mongoSlot) Save(ctx context.Context, token string) error {
	update := slotUpdate(token, s.m.maxTTL, s.m.now().UTC())
	_, err := s.m.coll.UpdateOne(ctx, bson.M{"_id": s.id}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

func (s *mongoSlot) Clear(ctx context.Context) error {
	if _, err := s.m.coll.DeleteOne(ctx, bson.M{"_id": s.id}); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
