package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/ports"
)

const defaultRedisPrefix = "darziflow:session:"

// Redis keeps console session tokens in Redis so every console replica sees
// the same token for a session.
// Key format: <prefix><session_id>:accessToken
type Redis struct {
	client redis.UniversalClient
	prefix string
	maxTTL time.Duration
	now    func() time.Time
}

var _ ports.TokenStoreFactory = (*Redis)(nil)

// NewRedis creates a Redis-backed store. maxTTL bounds how long a slot lives
// without being rewritten; tokens that carry an earlier exp expire sooner.
func NewRedis(client redis.UniversalClient, prefix string, maxTTL time.Duration) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix, maxTTL: maxTTL, now: time.Now}
}

func (r *Redis) ForSession(sessionID string) ports.TokenStore {
	return &redisSlot{r: r, key: r.prefix + sessionID + ":" + ports.TokenKey}
}

type redisSlot struct {
	r   *Redis
	key string
}

func (s *redisSlot) Load(ctx context.Context) (string, error) {
	tok, err := s.r.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrTokenNotFound
		}
		return "", fmt.Errorf("redis get token: %w", err)
	}
	return tok, nil
}

func (s *redisSlot) Save(ctx context.Context, token string) error {
	ttl := ttlFor(token, s.r.maxTTL, s.r.now())
	if err := s.r.client.Set(ctx, s.key, token, ttl).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

func (s *redisSlot) Clear(ctx context.Context) error {
	if err := s.r.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del token: %w", err)
	}
	return nil
}
