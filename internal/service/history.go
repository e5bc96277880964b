package service

import (
	"context"
	"log"

	"biketrail/internal/domain"
	"biketrail/internal/redis"
	"biketrail/internal/repository"
)

const (
	// DefaultHistoryLimit is the number of rides listed when no limit is given.
	DefaultHistoryLimit = 100

	// maxRidesEvaluated bounds how many recent rides achievements look at.
	maxRidesEvaluated = 1000
)

// HistoryService handles read access to saved rides.
type HistoryService struct {
	rideRepo repository.RideRepository
	cache    redis.CacheStoreInterface
}

// NewHistoryService creates a new HistoryService. cache may be nil.
func NewHistoryService(rideRepo repository.RideRepository, cache redis.CacheStoreInterface) *HistoryService {
	return &HistoryService{
		rideRepo: rideRepo,
		cache:    cache,
	}
}

// ListRides returns a rider's rides, newest first. Routes are not included.
func (s *HistoryService) ListRides(ctx context.Context, riderID string, limit int) ([]*domain.Ride, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}

	rides, err := s.rideRepo.ListByRider(ctx, riderID, limit)
	if err != nil {
		return nil, err
	}
	if rides == nil {
		rides = []*domain.Ride{}
	}
	return rides, nil
}

// GetRide returns one of the rider's rides with its route.
// Rides belonging to another rider are reported as not found.
func (s *HistoryService) GetRide(ctx context.Context, riderID, rideID string) (*domain.Ride, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.getRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.RiderID != riderID {
		return nil, repository.ErrNotFound
	}
	return ride, nil
}

func (s *HistoryService) getRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if s.cache != nil {
		cached, err := s.cache.GetRide(ctx, rideID)
		if err != nil {
			log.Printf("[history] cache read failed for ride %s: %v", rideID, err)
		} else if cached != nil {
			return cached.ToDomain(), nil
		}
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetRide(ctx, redis.NewCachedRide(ride)); err != nil {
			log.Printf("[history] cache write failed for ride %s: %v", rideID, err)
		}
	}
	return ride, nil
}

// Totals sums the rider's whole history.
func (s *HistoryService) Totals(ctx context.Context, riderID string) (*domain.RideTotals, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}
	return s.rideRepo.TotalsByRider(ctx, riderID)
}
