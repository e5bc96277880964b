package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"biketrail/internal/domain"
	"biketrail/internal/geo"
	"biketrail/internal/location"
	"biketrail/internal/redis"
	"biketrail/internal/repository"
	"biketrail/internal/tracking"
)

// DefaultRideLockTTL is how long a rider lock survives without fixes.
const DefaultRideLockTTL = 12 * time.Hour

// MaxNearbyRadiusKm bounds nearby rider searches.
const MaxNearbyRadiusKm = 50.0

// TrackingOptions configures a TrackingService.
type TrackingOptions struct {
	LockTTL time.Duration
	Clock   func() time.Time
}

// rideController owns one rider's session. Fixes and commands for the
// rider are applied one at a time under mu.
type rideController struct {
	mu      sync.Mutex
	riderID string
	session *tracking.Session
	source  location.Source
	cancel  context.CancelFunc
	done    chan struct{} // closed when the fix pump exits
	removed bool

	locked          bool
	lockRefreshedAt time.Time
}

// TrackingService runs live ride sessions, one per rider.
type TrackingService struct {
	rideRepo            repository.RideRepository
	locations           redis.LocationStoreInterface
	locks               redis.LockStoreInterface
	broadcaster         redis.Broadcaster
	notificationService *NotificationService
	achievementService  *AchievementService
	lockTTL             time.Duration
	clock               func() time.Time

	mu    sync.Mutex
	rides map[string]*rideController
}

// NewTrackingService creates a new TrackingService. Every collaborator
// except rideRepo may be nil.
func NewTrackingService(
	rideRepo repository.RideRepository,
	locations redis.LocationStoreInterface,
	locks redis.LockStoreInterface,
	broadcaster redis.Broadcaster,
	notificationService *NotificationService,
	achievementService *AchievementService,
	opts TrackingOptions,
) *TrackingService {
	if opts.LockTTL <= 0 {
		opts.LockTTL = DefaultRideLockTTL
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &TrackingService{
		rideRepo:            rideRepo,
		locations:           locations,
		locks:               locks,
		broadcaster:         broadcaster,
		notificationService: notificationService,
		achievementService:  achievementService,
		lockTTL:             opts.LockTTL,
		clock:               opts.Clock,
		rides:               make(map[string]*rideController),
	}
}

// StartRideRequest contains the parameters for starting a ride.
type StartRideRequest struct {
	RiderID string
	Source  location.Source
}

// StartRide begins tracking for a rider. An unsaved stopped ride is discarded.
func (s *TrackingService) StartRide(ctx context.Context, req StartRideRequest) (*tracking.Snapshot, error) {
	if req.RiderID == "" {
		return nil, ErrInvalidRiderID
	}
	if req.Source == nil {
		return nil, ErrInvalidSource
	}

	c := s.lockController(req.RiderID, true)
	defer c.mu.Unlock()

	prev := c.session.State()
	if prev == domain.SessionStateTracking || prev == domain.SessionStatePaused {
		return nil, tracking.ErrAlreadyActive
	}

	if !c.locked {
		ok, err := s.acquireLock(ctx, req.RiderID)
		if err != nil {
			s.abandonStart(ctx, c)
			return nil, err
		}
		if !ok {
			s.abandonStart(ctx, c)
			return nil, ErrRideLocked
		}
		c.locked = true
		c.lockRefreshedAt = s.clock()
	}

	granted, err := req.Source.RequestPermission(ctx)
	if err != nil {
		s.abandonStart(ctx, c)
		return nil, err
	}
	if !granted {
		s.abandonStart(ctx, c)
		return nil, ErrPermissionDenied
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	fixes, err := req.Source.Subscribe(pumpCtx)
	if err != nil {
		cancel()
		_ = req.Source.Stop()
		s.abandonStart(ctx, c)
		return nil, err
	}

	if prev == domain.SessionStateStopped {
		log.Printf("[tracking] rider %s started a new ride, discarding the unsaved one", req.RiderID)
	}
	if err := c.session.Start(); err != nil {
		cancel()
		_ = req.Source.Stop()
		return nil, err
	}

	c.source = req.Source
	c.cancel = cancel
	c.done = make(chan struct{})
	go s.pump(pumpCtx, c, fixes, c.done)

	log.Printf("[tracking] rider %s started a ride using %s source", req.RiderID, req.Source.Name())

	snap := c.session.Snapshot()
	s.broadcast(c.riderID, c.session.Progress())
	if s.notificationService != nil {
		_ = s.notificationService.NotifyRideStarted(ctx, req.RiderID, snap.StartedAt)
	}
	return &snap, nil
}

// PauseRide pauses the rider's ride.
func (s *TrackingService) PauseRide(ctx context.Context, riderID string) (*tracking.Snapshot, error) {
	c, err := s.activeController(riderID)
	if err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	if err := c.session.Pause(); err != nil {
		return nil, err
	}

	snap := c.session.Snapshot()
	s.broadcast(riderID, c.session.Progress())
	if s.notificationService != nil {
		_ = s.notificationService.NotifyRidePaused(ctx, riderID)
	}
	return &snap, nil
}

// ResumeRide resumes the rider's paused ride.
func (s *TrackingService) ResumeRide(ctx context.Context, riderID string) (*tracking.Snapshot, error) {
	c, err := s.activeController(riderID)
	if err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	if err := c.session.Resume(); err != nil {
		return nil, err
	}

	snap := c.session.Snapshot()
	s.broadcast(riderID, c.session.Progress())
	if s.notificationService != nil {
		_ = s.notificationService.NotifyRideResumed(ctx, riderID, snap.PausedSeconds)
	}
	return &snap, nil
}

// StopRide ends the ride, stops the location source and computes the
// final statistics. The ride stays in memory until saved or discarded.
func (s *TrackingService) StopRide(ctx context.Context, riderID string) (*tracking.Snapshot, error) {
	c, err := s.activeController(riderID)
	if err != nil {
		return nil, err
	}

	stats, err := c.session.Stop()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	source, cancel, done := c.detachSource()
	snap := c.session.Snapshot()
	progress := c.session.Progress()
	c.mu.Unlock()

	// The pump must be gone before the rider leaves the geo index,
	// otherwise a late fix could put them back.
	s.stopSource(source, cancel, done)
	s.removeLocation(ctx, riderID)

	s.broadcast(riderID, progress)
	if s.notificationService != nil {
		_ = s.notificationService.NotifyRideStopped(ctx, riderID, stats)
	}
	return &snap, nil
}

// PushFix hands a fix posted by the client to the rider's push source.
// The fix is recorded asynchronously. A fix arriving while the session is
// not tracking is dropped right away, so a later Resume cannot record it.
func (s *TrackingService) PushFix(ctx context.Context, riderID string, fix domain.LocationFix) error {
	if riderID == "" {
		return ErrInvalidRiderID
	}
	if !geo.ValidLatitude(fix.Latitude) || !geo.ValidLongitude(fix.Longitude) {
		return ErrInvalidLocation
	}

	c, err := s.activeController(riderID)
	if err != nil {
		return err
	}
	if c.source == nil {
		c.mu.Unlock()
		return tracking.ErrNotTracking
	}
	push, ok := c.source.(*location.PushSource)
	if !ok {
		c.mu.Unlock()
		return ErrNotPushSource
	}
	if c.session.State() != domain.SessionStateTracking {
		c.session.OnFixReceived(fix)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	// Push may block on a full inbox; the pump needs c.mu to drain it.
	if err := push.Push(ctx, fix); err != nil {
		if errors.Is(err, location.ErrSourceStopped) {
			return tracking.ErrNotTracking
		}
		return err
	}
	return nil
}

// Snapshot returns the rider's current session view.
func (s *TrackingService) Snapshot(ctx context.Context, riderID string) (*tracking.Snapshot, error) {
	c, err := s.activeController(riderID)
	if err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	snap := c.session.Snapshot()
	return &snap, nil
}

// Progress returns the rider's live progress in stream form.
func (s *TrackingService) Progress(ctx context.Context, riderID string) (*ProgressMessage, error) {
	c, err := s.activeController(riderID)
	if err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	msg := NewProgressMessage(riderID, c.session.Progress())
	return &msg, nil
}

// SaveRide persists the rider's stopped ride. On success the session is
// dropped. On failure the session is kept so the save can be retried.
func (s *TrackingService) SaveRide(ctx context.Context, riderID string) (*domain.Ride, error) {
	c, err := s.activeController(riderID)
	if err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	if c.session.State() != domain.SessionStateStopped {
		return nil, ErrRideNotStopped
	}

	snap := c.session.Snapshot()
	ride := &domain.Ride{
		ID:         uuid.New().String(),
		RiderID:    riderID,
		Route:      snap.Route,
		Statistics: snap.Statistics,
		StartedAt:  snap.StartedAt,
		EndedAt:    snap.StoppedAt,
		CreatedAt:  s.clock(),
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		log.Printf("[tracking] failed to save ride for rider %s: %v", riderID, err)
		return nil, err
	}

	s.remove(c)
	s.releaseLock(ctx, c)

	if s.notificationService != nil {
		_ = s.notificationService.NotifyRideSaved(ctx, ride)
	}
	if s.achievementService != nil {
		if _, err := s.achievementService.Refresh(ctx, riderID); err != nil {
			log.Printf("[tracking] failed to refresh achievements for rider %s: %v", riderID, err)
		}
	}
	return ride, nil
}

// DiscardRide drops the rider's session without saving it.
func (s *TrackingService) DiscardRide(ctx context.Context, riderID string) error {
	c, err := s.activeController(riderID)
	if err != nil {
		return err
	}

	source, cancel, done := c.detachSource()
	s.remove(c)
	s.releaseLock(ctx, c)
	c.mu.Unlock()

	s.stopSource(source, cancel, done)
	s.removeLocation(ctx, riderID)
	log.Printf("[tracking] rider %s discarded their ride", riderID)
	return nil
}

// NearbyRiders lists riders currently tracking within radiusKm of a point.
func (s *TrackingService) NearbyRiders(ctx context.Context, lat, lng, radiusKm float64) ([]redis.RiderLocation, error) {
	if !geo.ValidLatitude(lat) || !geo.ValidLongitude(lng) {
		return nil, ErrInvalidLocation
	}
	if radiusKm <= 0 || radiusKm > MaxNearbyRadiusKm {
		return nil, ErrInvalidRadius
	}
	if s.locations == nil {
		return []redis.RiderLocation{}, nil
	}
	return s.locations.FindNearbyRiders(ctx, lat, lng, radiusKm)
}

// Shutdown stops every live location source. Sessions stay in memory.
func (s *TrackingService) Shutdown() {
	s.mu.Lock()
	controllers := make([]*rideController, 0, len(s.rides))
	for _, c := range s.rides {
		controllers = append(controllers, c)
	}
	s.mu.Unlock()

	for _, c := range controllers {
		c.mu.Lock()
		source, cancel, done := c.detachSource()
		c.mu.Unlock()
		s.stopSource(source, cancel, done)
	}
}

// pump feeds fixes from the subscription into the session until the
// subscription ends.
func (s *TrackingService) pump(ctx context.Context, c *rideController, fixes <-chan domain.LocationFix, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-fixes:
			if !ok {
				return
			}

			c.mu.Lock()
			accepted := c.session.OnFixReceived(fix)
			var progress tracking.Progress
			refresh := false
			if accepted {
				progress = c.session.Progress()
				now := s.clock()
				if c.locked && now.Sub(c.lockRefreshedAt) > s.lockTTL/2 {
					c.lockRefreshedAt = now
					refresh = true
				}
			}
			c.mu.Unlock()

			if !accepted {
				continue
			}
			if s.locations != nil {
				if err := s.locations.UpdateLocation(ctx, c.riderID, fix.Latitude, fix.Longitude); err != nil && ctx.Err() == nil {
					log.Printf("[tracking] failed to update location for rider %s: %v", c.riderID, err)
				}
			}
			if refresh && s.locks != nil {
				if _, err := s.locks.RefreshRiderLock(ctx, c.riderID, s.lockTTL); err != nil && ctx.Err() == nil {
					log.Printf("[tracking] failed to refresh lock for rider %s: %v", c.riderID, err)
				}
			}
			s.broadcast(c.riderID, progress)
		}
	}
}

// lockController returns the rider's controller with its mutex held.
// With create set, a missing controller is created in the Idle state.
func (s *TrackingService) lockController(riderID string, create bool) *rideController {
	for {
		s.mu.Lock()
		c, ok := s.rides[riderID]
		if !ok {
			if !create {
				s.mu.Unlock()
				return nil
			}
			c = &rideController{riderID: riderID, session: tracking.NewSession(s.clock)}
			s.rides[riderID] = c
		}
		s.mu.Unlock()

		c.mu.Lock()
		if !c.removed {
			return c
		}
		// Dropped while we waited; look again.
		c.mu.Unlock()
	}
}

// activeController returns the rider's locked controller or ErrNoActiveRide.
func (s *TrackingService) activeController(riderID string) (*rideController, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}
	c := s.lockController(riderID, false)
	if c == nil {
		return nil, ErrNoActiveRide
	}
	return c, nil
}

// remove drops a controller from the map. c.mu must be held.
func (s *TrackingService) remove(c *rideController) {
	c.removed = true
	s.mu.Lock()
	if s.rides[c.riderID] == c {
		delete(s.rides, c.riderID)
	}
	s.mu.Unlock()
}

// abandonStart undoes a failed start. A fresh controller is dropped along
// with its lock. A stopped, unsaved ride is left as it was.
func (s *TrackingService) abandonStart(ctx context.Context, c *rideController) {
	if c.session.State() != domain.SessionStateIdle {
		return
	}
	s.releaseLock(ctx, c)
	s.remove(c)
}

func (s *TrackingService) acquireLock(ctx context.Context, riderID string) (bool, error) {
	if s.locks == nil {
		return true, nil
	}
	return s.locks.AcquireRiderLock(ctx, riderID, s.lockTTL)
}

// releaseLock releases the rider lock if the controller holds it. c.mu must be held.
func (s *TrackingService) releaseLock(ctx context.Context, c *rideController) {
	if !c.locked {
		return
	}
	c.locked = false
	if s.locks == nil {
		return
	}
	if err := s.locks.ReleaseRiderLock(ctx, c.riderID); err != nil {
		log.Printf("[tracking] failed to release lock for rider %s: %v", c.riderID, err)
	}
}

// detachSource clears the controller's source. c.mu must be held.
func (c *rideController) detachSource() (location.Source, context.CancelFunc, chan struct{}) {
	source, cancel, done := c.source, c.cancel, c.done
	c.source, c.cancel, c.done = nil, nil, nil
	return source, cancel, done
}

// stopSource stops a detached source and waits for its pump to exit.
func (s *TrackingService) stopSource(source location.Source, cancel context.CancelFunc, done chan struct{}) {
	if source != nil {
		if err := source.Stop(); err != nil {
			log.Printf("[tracking] failed to stop %s source: %v", source.Name(), err)
		}
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *TrackingService) removeLocation(ctx context.Context, riderID string) {
	if s.locations == nil {
		return
	}
	if err := s.locations.RemoveLocation(ctx, riderID); err != nil {
		log.Printf("[tracking] failed to remove location for rider %s: %v", riderID, err)
	}
}

// ProgressMessage is the live stream payload.
type ProgressMessage struct {
	RiderID         string              `json:"rider_id"`
	State           domain.SessionState `json:"state"`
	Points          int                 `json:"points"`
	Latitude        *float64            `json:"latitude,omitempty"`
	Longitude       *float64            `json:"longitude,omitempty"`
	DistanceKm      float64             `json:"distance_km"`
	CurrentSpeedKmh float64             `json:"current_speed_kmh"`
	PausedSeconds   int64               `json:"paused_seconds"`
	Paused          bool                `json:"paused"`
	StartedAt       time.Time           `json:"started_at"`
}

// NewProgressMessage builds the stream payload for a rider's progress.
func NewProgressMessage(riderID string, p tracking.Progress) ProgressMessage {
	msg := ProgressMessage{
		RiderID:         riderID,
		State:           p.State,
		Points:          p.Points,
		DistanceKm:      p.DistanceKm,
		CurrentSpeedKmh: p.CurrentSpeedKmh,
		PausedSeconds:   p.PausedSeconds,
		Paused:          p.PauseOpen,
		StartedAt:       p.StartedAt,
	}
	if p.LastFix != nil {
		lat, lng := p.LastFix.Latitude, p.LastFix.Longitude
		msg.Latitude = &lat
		msg.Longitude = &lng
	}
	return msg
}

func (s *TrackingService) broadcast(riderID string, p tracking.Progress) {
	if s.broadcaster == nil {
		return
	}
	payload, err := json.Marshal(NewProgressMessage(riderID, p))
	if err != nil {
		log.Printf("[tracking] failed to encode progress for rider %s: %v", riderID, err)
		return
	}
	s.broadcaster.Broadcast(riderID, payload)
}
