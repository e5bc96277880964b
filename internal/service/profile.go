package service

import (
	"context"
	"strings"
	"time"

	"biketrail/internal/domain"
	"biketrail/internal/repository"
)

// ProfileService handles rider profiles.
type ProfileService struct {
	profileRepo repository.ProfileRepository
	clock       func() time.Time
}

// NewProfileService creates a new ProfileService.
func NewProfileService(profileRepo repository.ProfileRepository) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		clock:       time.Now,
	}
}

// UpdateProfileRequest contains the editable profile fields.
type UpdateProfileRequest struct {
	RiderID          string
	Name             string
	Age              int
	WeightKg         float64
	HeightCm         float64
	BloodType        string
	EmergencyContact string
	EmergencyPhone   string
	PictureURL       string
}

// GetProfile returns the rider's profile.
func (s *ProfileService) GetProfile(ctx context.Context, riderID string) (*domain.Profile, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}
	return s.profileRepo.GetByRiderID(ctx, riderID)
}

// UpdateProfile creates or replaces the rider's profile.
func (s *ProfileService) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*domain.Profile, error) {
	if req.RiderID == "" {
		return nil, ErrInvalidRiderID
	}
	if req.Age < 0 || req.Age > 150 || req.WeightKg < 0 || req.WeightKg > 500 || req.HeightCm < 0 || req.HeightCm > 300 {
		return nil, ErrInvalidProfile
	}

	profile := &domain.Profile{
		RiderID:          req.RiderID,
		Name:             strings.TrimSpace(req.Name),
		Age:              req.Age,
		WeightKg:         req.WeightKg,
		HeightCm:         req.HeightCm,
		BloodType:        strings.ToUpper(strings.TrimSpace(req.BloodType)),
		EmergencyContact: strings.TrimSpace(req.EmergencyContact),
		EmergencyPhone:   strings.TrimSpace(req.EmergencyPhone),
		PictureURL:       strings.TrimSpace(req.PictureURL),
		UpdatedAt:        s.clock(),
	}

	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
