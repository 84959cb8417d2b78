package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/darziflow/console/internal/core/domain"
)

const dedupWindow = time.Minute

// DedupChecker provides idempotency checks for audit events backed by Redis.
// Key format: dedup:<session_id>:<kind>:<path>:<unix_minute>
type DedupChecker struct {
	client redis.UniversalClient
}

// NewDedupChecker creates a DedupChecker wrapping the given Redis client.
func NewDedupChecker(client redis.UniversalClient) *DedupChecker {
	return &DedupChecker{client: client}
}

// IsDuplicate reports whether an equivalent event was recorded in the current window.
func (d *DedupChecker) IsDuplicate(ctx context.Context, ev domain.SessionEvent) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(ev)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records that this event has been processed (expires after dedupWindow).
func (d *DedupChecker) Mark(ctx context.Context, ev domain.SessionEvent) error {
	return d.client.Set(ctx, d.key(ev), "1", dedupWindow).Err()
}

func (d *DedupChecker) key(ev domain.SessionEvent) string {
	return fmt.Sprintf("dedup:%s:%s:%s:%d", ev.SessionID, ev.Kind, ev.Path, ev.At.Truncate(dedupWindow).Unix())
}
