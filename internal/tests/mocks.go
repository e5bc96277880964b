package tests

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"biketrail/internal/domain"
	"biketrail/internal/redis"
	"biketrail/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride

	// Counters for verification
	CreateCallCount  int32
	GetByIDCallCount int32
	ListCallCount    int32
	TotalsCallCount  int32

	// Error injection
	CreateError error
	ListError   error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
	}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
}

// SetCreateError changes the injected Create error.
func (m *MockRideRepository) SetCreateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateError = err
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	copy := *ride
	m.rides[ride.ID] = &copy
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	atomic.AddInt32(&m.GetByIDCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *ride
	return &copy, nil
}

func (m *MockRideRepository) ListByRider(ctx context.Context, riderID string, limit int) ([]*domain.Ride, error) {
	atomic.AddInt32(&m.ListCallCount, 1)
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Ride
	for _, r := range m.rides {
		if r.RiderID == riderID {
			copy := *r
			copy.Route = nil
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartedAt.After(result[j].StartedAt) })
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockRideRepository) TotalsByRider(ctx context.Context, riderID string) (*domain.RideTotals, error) {
	atomic.AddInt32(&m.TotalsCallCount, 1)
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	totals := &domain.RideTotals{}
	for _, r := range m.rides {
		if r.RiderID != riderID {
			continue
		}
		totals.RideCount++
		totals.DistanceKm += r.Statistics.DistanceKm
		totals.ActiveTimeHours += r.Statistics.ActiveTimeHours
		totals.PausedSeconds += r.Statistics.PausedSeconds
		totals.LongestRideKm = math.Max(totals.LongestRideKm, r.Statistics.DistanceKm)
		totals.FastestAverageKmh = math.Max(totals.FastestAverageKmh, r.Statistics.AverageSpeedKmh)
	}
	return totals, nil
}

// CountRides returns the number of rides.
func (m *MockRideRepository) CountRides() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rides)
}

// RidesFor returns the stored rides of a rider (for test assertions).
func (m *MockRideRepository) RidesFor(riderID string) []*domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Ride
	for _, r := range m.rides {
		if r.RiderID == riderID {
			result = append(result, r)
		}
	}
	return result
}

// ──────────────────────────────────────────────
// MOCK PROFILE REPOSITORY
// ──────────────────────────────────────────────

// MockProfileRepository is a mock implementation of ProfileRepository.
type MockProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*domain.Profile

	UpsertCallCount int32
	UpsertError     error
}

// NewMockProfileRepository creates a new mock profile repository.
func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{
		profiles: make(map[string]*domain.Profile),
	}
}

func (m *MockProfileRepository) GetByRiderID(ctx context.Context, riderID string) (*domain.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[riderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

func (m *MockProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	atomic.AddInt32(&m.UpsertCallCount, 1)
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *profile
	m.profiles[profile.RiderID] = &copy
	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStore.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations []redis.RiderLocation

	// Counters
	UpdateLocationCallCount int32
	RemoveLocationCallCount int32

	// Error injection
	UpdateLocationError   error
	FindNearbyRidersError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make([]redis.RiderLocation, 0),
	}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, riderID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.RiderID == riderID {
			m.locations[i].Lat = lat
			m.locations[i].Lng = lng
			return nil
		}
	}
	m.locations = append(m.locations, redis.RiderLocation{RiderID: riderID, Lat: lat, Lng: lng})
	return nil
}

func (m *MockLocationStore) FindNearbyRiders(ctx context.Context, lat, lng, radiusKm float64) ([]redis.RiderLocation, error) {
	if m.FindNearbyRidersError != nil {
		return nil, m.FindNearbyRidersError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Return all locations (mock doesn't do real geo filtering).
	result := make([]redis.RiderLocation, len(m.locations))
	copy(result, m.locations)
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, riderID string) error {
	atomic.AddInt32(&m.RemoveLocationCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.RiderID == riderID {
			m.locations = append(m.locations[:i], m.locations[i+1:]...)
			return nil
		}
	}
	return nil
}

// HasLocation checks if a rider location exists.
func (m *MockLocationStore) HasLocation(riderID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, loc := range m.locations {
		if loc.RiderID == riderID {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	RefreshCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireRiderLock(ctx context.Context, riderID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:rider:" + riderID
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) RefreshRiderLock(ctx context.Context, riderID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.RefreshCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	key := "lock:rider:" + riderID
	if _, exists := m.locks[key]; !exists {
		return false, nil
	}
	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseRiderLock(ctx context.Context, riderID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:rider:"+riderID)
	return nil
}

// HoldLock simulates a lock taken by another instance.
func (m *MockLockStore) HoldLock(riderID string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks["lock:rider:"+riderID] = time.Now().Add(ttl)
}

// IsLocked checks if a rider is locked (for test assertions).
func (m *MockLockStore) IsLocked(riderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:rider:"+riderID]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of CacheStore.
type MockCacheStore struct {
	mu           sync.Mutex
	rides        map[string]*redis.CachedRide
	achievements map[string][]redis.CachedAchievement

	// Counters
	GetRideCallCount                int32
	SetRideCallCount                int32
	InvalidateAchievementsCallCount int32

	// Error injection
	GetError error
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		rides:        make(map[string]*redis.CachedRide),
		achievements: make(map[string][]redis.CachedAchievement),
	}
}

func (m *MockCacheStore) GetRide(ctx context.Context, rideID string) (*redis.CachedRide, error) {
	atomic.AddInt32(&m.GetRideCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rides[rideID], nil
}

func (m *MockCacheStore) SetRide(ctx context.Context, ride *redis.CachedRide) error {
	atomic.AddInt32(&m.SetRideCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
	return nil
}

func (m *MockCacheStore) InvalidateRide(ctx context.Context, rideID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rides, rideID)
	return nil
}

func (m *MockCacheStore) GetAchievements(ctx context.Context, riderID string) ([]redis.CachedAchievement, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.achievements[riderID], nil
}

func (m *MockCacheStore) SetAchievements(ctx context.Context, riderID string, achievements []redis.CachedAchievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.achievements[riderID] = achievements
	return nil
}

func (m *MockCacheStore) InvalidateAchievements(ctx context.Context, riderID string) error {
	atomic.AddInt32(&m.InvalidateAchievementsCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.achievements, riderID)
	return nil
}

// HasAchievements reports whether a rider's achievements are cached.
func (m *MockCacheStore) HasAchievements(riderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.achievements[riderID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK BROADCASTER
// ──────────────────────────────────────────────

// MockBroadcaster records every broadcast payload.
type MockBroadcaster struct {
	mu       sync.Mutex
	payloads map[string][][]byte
}

// NewMockBroadcaster creates a new mock broadcaster.
func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{payloads: make(map[string][][]byte)}
}

func (m *MockBroadcaster) Broadcast(riderID string, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads[riderID] = append(m.payloads[riderID], payload)
}

// Payloads returns the payloads broadcast for a rider.
func (m *MockBroadcaster) Payloads(riderID string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.payloads[riderID]))
	copy(out, m.payloads[riderID])
	return out
}

// ──────────────────────────────────────────────
// MOCK LOCATION SOURCE
// ──────────────────────────────────────────────

// MockLocationSource is a location source driven by the test.
type MockLocationSource struct {
	Granted         bool
	PermissionError error
	SubscribeError  error

	mu      sync.Mutex
	out     chan domain.LocationFix
	stopped bool

	StopCallCount int32
}

// NewMockLocationSource creates a source with the given permission answer.
func NewMockLocationSource(granted bool) *MockLocationSource {
	return &MockLocationSource{Granted: granted}
}

func (m *MockLocationSource) Name() string { return "mock" }

func (m *MockLocationSource) RequestPermission(ctx context.Context) (bool, error) {
	if m.PermissionError != nil {
		return false, m.PermissionError
	}
	return m.Granted, nil
}

func (m *MockLocationSource) Subscribe(ctx context.Context) (<-chan domain.LocationFix, error) {
	if m.SubscribeError != nil {
		return nil, m.SubscribeError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out = make(chan domain.LocationFix)
	return m.out, nil
}

// Emit delivers a fix to the subscriber and waits until it is taken.
func (m *MockLocationSource) Emit(fix domain.LocationFix) bool {
	m.mu.Lock()
	out, stopped := m.out, m.stopped
	m.mu.Unlock()
	if out == nil || stopped {
		return false
	}
	select {
	case out <- fix:
		return true
	case <-time.After(time.Second):
		return false
	}
}

func (m *MockLocationSource) Stop() error {
	atomic.AddInt32(&m.StopCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

// IsStopped reports whether Stop was called.
func (m *MockLocationSource) IsStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// ──────────────────────────────────────────────
// TEST CLOCK
// ──────────────────────────────────────────────

// baseMillis is the wall clock origin used by scenario tests.
const baseMillis int64 = 1_700_000_000_000

// TestClock is a manually advanced clock safe for concurrent reads.
type TestClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewTestClock returns a clock set to baseMillis.
func NewTestClock() *TestClock {
	return &TestClock{now: time.UnixMilli(baseMillis)}
}

// Now returns the current test time.
func (c *TestClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to baseMillis plus the given seconds.
func (c *TestClock) Set(seconds int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.UnixMilli(baseMillis + seconds*1000)
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
