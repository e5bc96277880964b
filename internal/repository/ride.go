package repository

import (
	"context"

	"biketrail/internal/domain"
)

// RideRepository defines the persistence operations for saved rides.
type RideRepository interface {
	// Create persists a completed ride with its route and statistics.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// ListByRider retrieves a rider's rides, newest first.
	// Routes are not loaded.
	ListByRider(ctx context.Context, riderID string, limit int) ([]*domain.Ride, error)

	// TotalsByRider aggregates all of a rider's rides. A rider without
	// rides gets zero totals, not ErrNotFound.
	TotalsByRider(ctx context.Context, riderID string) (*domain.RideTotals, error)
}
