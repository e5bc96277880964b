package repository

import (
	"context"

	"biketrail/internal/domain"
)

// ProfileRepository defines the persistence operations for rider profiles.
type ProfileRepository interface {
	// GetByRiderID retrieves the profile of a rider.
	GetByRiderID(ctx context.Context, riderID string) (*domain.Profile, error)

	// Upsert creates the profile or replaces the existing one.
	Upsert(ctx context.Context, profile *domain.Profile) error
}
