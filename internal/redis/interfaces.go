package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for rider location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, riderID string, lat, lng float64) error
	FindNearbyRiders(ctx context.Context, lat, lng, radiusKm float64) ([]RiderLocation, error)
	RemoveLocation(ctx context.Context, riderID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireRiderLock(ctx context.Context, riderID string, ttl time.Duration) (bool, error)
	RefreshRiderLock(ctx context.Context, riderID string, ttl time.Duration) (bool, error)
	ReleaseRiderLock(ctx context.Context, riderID string) error
}

// CacheStoreInterface defines the interface for ride and achievement caching.
type CacheStoreInterface interface {
	GetRide(ctx context.Context, rideID string) (*CachedRide, error)
	SetRide(ctx context.Context, ride *CachedRide) error
	InvalidateRide(ctx context.Context, rideID string) error
	GetAchievements(ctx context.Context, riderID string) ([]CachedAchievement, error)
	SetAchievements(ctx context.Context, riderID string, achievements []CachedAchievement) error
	InvalidateAchievements(ctx context.Context, riderID string) error
}

// Broadcaster publishes live ride snapshots.
type Broadcaster interface {
	Broadcast(riderID string, payload []byte)
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ CacheStoreInterface    = (*CacheStore)(nil)
	_ Broadcaster            = (*StreamHub)(nil)
)
