package service

import (
	"context"
	"log"
	"math"
	"time"

	"biketrail/internal/domain"
	"biketrail/internal/redis"
	"biketrail/internal/repository"
)

// Achievement thresholds.
const (
	centuryRiderKm      = 100.0
	speedDemonKmh       = 30.0
	speedDemonMinKm     = 20.0
	earlyBirdRides      = 5
	earlyBirdBeforeHour = 7
	ironButtActiveHours = 6.0
	fullProgress        = 100
)

type achievementInfo struct {
	ID          domain.AchievementID
	Title       string
	Description string
}

// achievementCatalog lists achievements in display order.
var achievementCatalog = []achievementInfo{
	{domain.AchievementCenturyRider, "Century Rider", "Complete a 100 km ride"},
	{domain.AchievementSpeedDemon, "Speed Demon", "Achieve an average speed of 30 km/h on a 20 km ride"},
	{domain.AchievementEarlyBird, "Early Bird", "Complete 5 rides before 7 AM"},
	{domain.AchievementIronButt, "Iron Butt", "Ride for 6 hours in a single session"},
}

// AchievementService evaluates achievements over a rider's saved rides.
type AchievementService struct {
	rideRepo            repository.RideRepository
	cache               redis.CacheStoreInterface
	notificationService *NotificationService
	location            *time.Location
}

// NewAchievementService creates a new AchievementService. cache and
// notificationService may be nil. A nil location means UTC.
func NewAchievementService(
	rideRepo repository.RideRepository,
	cache redis.CacheStoreInterface,
	notificationService *NotificationService,
	location *time.Location,
) *AchievementService {
	if location == nil {
		location = time.UTC
	}
	return &AchievementService{
		rideRepo:            rideRepo,
		cache:               cache,
		notificationService: notificationService,
		location:            location,
	}
}

// ListAchievements returns the rider's achievements, from cache when possible.
func (s *AchievementService) ListAchievements(ctx context.Context, riderID string) ([]domain.Achievement, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}

	if cached := s.cached(ctx, riderID); cached != nil {
		return cached, nil
	}

	achievements, err := s.evaluate(ctx, riderID)
	if err != nil {
		return nil, err
	}
	s.store(ctx, riderID, achievements)
	return achievements, nil
}

// Refresh re-evaluates after the rider's history changed and notifies
// the rider of achievements that became unlocked.
func (s *AchievementService) Refresh(ctx context.Context, riderID string) ([]domain.Achievement, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}

	previous := s.cached(ctx, riderID)
	if s.cache != nil {
		if err := s.cache.InvalidateAchievements(ctx, riderID); err != nil {
			log.Printf("[achievements] cache invalidation failed for rider %s: %v", riderID, err)
		}
	}

	achievements, err := s.evaluate(ctx, riderID)
	if err != nil {
		return nil, err
	}
	s.store(ctx, riderID, achievements)

	if s.notificationService != nil && previous != nil {
		wasUnlocked := make(map[domain.AchievementID]bool, len(previous))
		for _, a := range previous {
			wasUnlocked[a.ID] = a.Unlocked
		}
		for _, a := range achievements {
			if a.Unlocked && !wasUnlocked[a.ID] {
				_ = s.notificationService.NotifyAchievementUnlocked(ctx, riderID, a)
			}
		}
	}

	return achievements, nil
}

func (s *AchievementService) evaluate(ctx context.Context, riderID string) ([]domain.Achievement, error) {
	rides, err := s.rideRepo.ListByRider(ctx, riderID, maxRidesEvaluated)
	if err != nil {
		return nil, err
	}
	return EvaluateAchievements(rides, s.location), nil
}

func (s *AchievementService) cached(ctx context.Context, riderID string) []domain.Achievement {
	if s.cache == nil {
		return nil
	}
	entries, err := s.cache.GetAchievements(ctx, riderID)
	if err != nil {
		log.Printf("[achievements] cache read failed for rider %s: %v", riderID, err)
		return nil
	}
	if entries == nil {
		return nil
	}

	byID := make(map[domain.AchievementID]redis.CachedAchievement, len(entries))
	for _, e := range entries {
		byID[domain.AchievementID(e.ID)] = e
	}
	achievements := make([]domain.Achievement, 0, len(achievementCatalog))
	for _, info := range achievementCatalog {
		e := byID[info.ID]
		achievements = append(achievements, domain.Achievement{
			ID:          info.ID,
			Title:       info.Title,
			Description: info.Description,
			Unlocked:    e.Unlocked,
			Progress:    e.Progress,
		})
	}
	return achievements
}

func (s *AchievementService) store(ctx context.Context, riderID string, achievements []domain.Achievement) {
	if s.cache == nil {
		return
	}
	entries := make([]redis.CachedAchievement, len(achievements))
	for i, a := range achievements {
		entries[i] = redis.CachedAchievement{ID: string(a.ID), Unlocked: a.Unlocked, Progress: a.Progress}
	}
	if err := s.cache.SetAchievements(ctx, riderID, entries); err != nil {
		log.Printf("[achievements] cache write failed for rider %s: %v", riderID, err)
	}
}

// EvaluateAchievements computes every achievement from a set of rides.
// Ride start hours are read in loc.
func EvaluateAchievements(rides []*domain.Ride, loc *time.Location) []domain.Achievement {
	var (
		longestKm      float64
		longestActiveH float64
		speedDemon     float64 // best fraction of the Speed Demon target
		earlyRides     int
	)

	for _, r := range rides {
		st := r.Statistics
		longestKm = math.Max(longestKm, st.DistanceKm)
		longestActiveH = math.Max(longestActiveH, st.ActiveTimeHours)
		speedDemon = math.Max(speedDemon, ratio(st.DistanceKm, speedDemonMinKm)*ratio(st.AverageSpeedKmh, speedDemonKmh))
		if !r.StartedAt.IsZero() && r.StartedAt.In(loc).Hour() < earlyBirdBeforeHour {
			earlyRides++
		}
	}

	fractions := map[domain.AchievementID]float64{
		domain.AchievementCenturyRider: ratio(longestKm, centuryRiderKm),
		domain.AchievementSpeedDemon:   speedDemon,
		domain.AchievementEarlyBird:    ratio(float64(earlyRides), earlyBirdRides),
		domain.AchievementIronButt:     ratio(longestActiveH, ironButtActiveHours),
	}

	achievements := make([]domain.Achievement, 0, len(achievementCatalog))
	for _, info := range achievementCatalog {
		f := fractions[info.ID]
		a := domain.Achievement{
			ID:          info.ID,
			Title:       info.Title,
			Description: info.Description,
			Unlocked:    f >= 1,
			Progress:    int(math.Floor(f * fullProgress)),
		}
		if a.Unlocked {
			a.Progress = fullProgress
		}
		achievements = append(achievements, a)
	}
	return achievements
}

// ratio returns v/target capped to [0, 1].
func ratio(v, target float64) float64 {
	if target <= 0 || v <= 0 {
		return 0
	}
	return math.Min(v/target, 1)
}
