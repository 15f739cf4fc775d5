package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SyncLockRepository serializes program syncs through Redis. Two syncs for
// the same program must never run concurrently; different programs may.
type SyncLockRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSyncLockRepository constructs the repository.
func NewSyncLockRepository(client *redis.Client, ttl time.Duration) *SyncLockRepository {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SyncLockRepository{client: client, ttl: ttl}
}

func lockKey(programID string) string {
	return "sync:lock:" + programID
}

// Acquire attempts to take the per-program lock. It returns false when a sync
// for the program already holds it.
func (r *SyncLockRepository) Acquire(ctx context.Context, programID string) (bool, error) {
	if r.client == nil {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, lockKey(programID), time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sync lock: %w", err)
	}
	return ok, nil
}

// Release frees the per-program lock.
func (r *SyncLockRepository) Release(ctx context.Context, programID string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, lockKey(programID)).Err(); err != nil {
		return fmt.Errorf("release sync lock: %w", err)
	}
	return nil
}
