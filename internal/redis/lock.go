package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

func riderLockKey(riderID string) string {
	return fmt.Sprintf("lock:rider:%s", riderID)
}

// AcquireRiderLock attempts to take the active-ride lock for a rider.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireRiderLock(ctx context.Context, riderID string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, riderLockKey(riderID), "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// RefreshRiderLock extends the TTL of a held lock. Returns false if the lock had expired.
func (s *LockStore) RefreshRiderLock(ctx context.Context, riderID string, ttl time.Duration) (bool, error) {
	return s.client.Expire(ctx, riderLockKey(riderID), ttl).Result()
}

// ReleaseRiderLock releases the lock for the given rider.
func (s *LockStore) ReleaseRiderLock(ctx context.Context, riderID string) error {
	return s.client.Del(ctx, riderLockKey(riderID)).Err()
}
