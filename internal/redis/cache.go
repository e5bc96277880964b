package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"biketrail/internal/domain"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	RideCacheTTL        = 10 * time.Minute // Saved rides never change
	AchievementCacheTTL = 5 * time.Minute
)

// Key prefixes
const (
	rideCachePrefix        = "cache:ride:"
	achievementCachePrefix = "cache:achievements:"
)

// CachedFix is a route point inside a cached ride.
type CachedFix struct {
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Timestamp int64    `json:"ts"`
	Speed     *float64 `json:"spd,omitempty"`
}

// CachedRide represents a cached saved ride.
type CachedRide struct {
	ID              string      `json:"id"`
	RiderID         string      `json:"rider_id"`
	Route           []CachedFix `json:"route"`
	DistanceKm      float64     `json:"distance_km"`
	AverageSpeedKmh float64     `json:"average_speed_kmh"`
	ActiveTimeHours float64     `json:"active_time_hours"`
	PausedSeconds   int64       `json:"paused_seconds"`
	StartedAt       time.Time   `json:"started_at"`
	EndedAt         time.Time   `json:"ended_at"`
	CreatedAt       time.Time   `json:"created_at"`
}

// CachedAchievement represents a cached achievement evaluation.
type CachedAchievement struct {
	ID       string `json:"id"`
	Unlocked bool   `json:"unlocked"`
	Progress int    `json:"progress"`
}

// NewCachedRide converts a domain ride for caching.
func NewCachedRide(r *domain.Ride) *CachedRide {
	route := make([]CachedFix, len(r.Route))
	for i, f := range r.Route {
		route[i] = CachedFix{Lat: f.Latitude, Lng: f.Longitude, Timestamp: f.TimestampMillis, Speed: f.SpeedMps}
	}
	return &CachedRide{
		ID:              r.ID,
		RiderID:         r.RiderID,
		Route:           route,
		DistanceKm:      r.Statistics.DistanceKm,
		AverageSpeedKmh: r.Statistics.AverageSpeedKmh,
		ActiveTimeHours: r.Statistics.ActiveTimeHours,
		PausedSeconds:   r.Statistics.PausedSeconds,
		StartedAt:       r.StartedAt,
		EndedAt:         r.EndedAt,
		CreatedAt:       r.CreatedAt,
	}
}

// ToDomain converts a cached ride back into a domain ride.
func (c *CachedRide) ToDomain() *domain.Ride {
	route := make([]domain.LocationFix, len(c.Route))
	for i, f := range c.Route {
		route[i] = domain.LocationFix{Latitude: f.Lat, Longitude: f.Lng, TimestampMillis: f.Timestamp, SpeedMps: f.Speed}
	}
	return &domain.Ride{
		ID:      c.ID,
		RiderID: c.RiderID,
		Route:   route,
		Statistics: domain.RideStatistics{
			DistanceKm:      c.DistanceKm,
			AverageSpeedKmh: c.AverageSpeedKmh,
			ActiveTimeHours: c.ActiveTimeHours,
			PausedSeconds:   c.PausedSeconds,
		},
		StartedAt: c.StartedAt,
		EndedAt:   c.EndedAt,
		CreatedAt: c.CreatedAt,
	}
}

// GetRide retrieves a ride from cache. A miss returns nil, nil.
func (s *CacheStore) GetRide(ctx context.Context, rideID string) (*CachedRide, error) {
	data, err := s.client.Get(ctx, rideCachePrefix+rideID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var ride CachedRide
	if err := json.Unmarshal(data, &ride); err != nil {
		return nil, err
	}
	return &ride, nil
}

// SetRide stores a ride in cache.
func (s *CacheStore) SetRide(ctx context.Context, ride *CachedRide) error {
	data, err := json.Marshal(ride)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, rideCachePrefix+ride.ID, data, RideCacheTTL).Err()
}

// InvalidateRide removes a ride from cache.
func (s *CacheStore) InvalidateRide(ctx context.Context, rideID string) error {
	return s.client.Del(ctx, rideCachePrefix+rideID).Err()
}

// GetAchievements retrieves a rider's evaluated achievements. A miss returns nil, nil.
func (s *CacheStore) GetAchievements(ctx context.Context, riderID string) ([]CachedAchievement, error) {
	data, err := s.client.Get(ctx, achievementCachePrefix+riderID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var achievements []CachedAchievement
	if err := json.Unmarshal(data, &achievements); err != nil {
		return nil, err
	}
	return achievements, nil
}

// SetAchievements stores a rider's evaluated achievements.
func (s *CacheStore) SetAchievements(ctx context.Context, riderID string, achievements []CachedAchievement) error {
	data, err := json.Marshal(achievements)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, achievementCachePrefix+riderID, data, AchievementCacheTTL).Err()
}

// InvalidateAchievements removes a rider's achievements from cache.
func (s *CacheStore) InvalidateAchievements(ctx context.Context, riderID string) error {
	return s.client.Del(ctx, achievementCachePrefix+riderID).Err()
}
