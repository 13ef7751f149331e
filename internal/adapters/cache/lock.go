package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockPrefix = "stride:lock"

// RunLock is a SetNX-based lock guarding jobs that must not overlap,
// like a scheduler pass racing a delayed cron retrigger. It is a soft
// guard: expiry frees the lock even if the holder died mid-run, and
// the storage-level cycle invariants stay the real safety net.
type RunLock struct {
	rdb *redis.Client
}

func NewRunLock(rdb *redis.Client) *RunLock {
	return &RunLock{rdb: rdb}
}

func (l *RunLock) key(name string) string {
	return fmt.Sprintf("%s:%s", lockPrefix, name)
}

// TryAcquire returns true when this caller now holds the lock.
func (l *RunLock) TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key(name), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return ok, nil
}

func (l *RunLock) Release(ctx context.Context, name string) error {
	return l.rdb.Del(ctx, l.key(name)).Err()
}
