package postgres

import (
	"context"
	"database/sql"
	"errors"

	"biketrail/internal/domain"
	"biketrail/internal/repository"
)

// ProfileRepository implements repository.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	q Querier
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{q: db}
}

// GetByRiderID retrieves the profile of a rider.
func (r *ProfileRepository) GetByRiderID(ctx context.Context, riderID string) (*domain.Profile, error) {
	query := `
		SELECT rider_id, name, age, weight_kg, height_cm, blood_type, emergency_contact, emergency_phone, picture_url, updated_at
		FROM profiles WHERE rider_id = $1
	`

	var p domain.Profile
	err := r.q.QueryRowContext(ctx, query, riderID).Scan(
		&p.RiderID,
		&p.Name,
		&p.Age,
		&p.WeightKg,
		&p.HeightCm,
		&p.BloodType,
		&p.EmergencyContact,
		&p.EmergencyPhone,
		&p.PictureURL,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert creates the profile or replaces the existing one.
func (r *ProfileRepository) Upsert(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles (rider_id, name, age, weight_kg, height_cm, blood_type, emergency_contact, emergency_phone, picture_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (rider_id) DO UPDATE
		SET name = EXCLUDED.name,
		    age = EXCLUDED.age,
		    weight_kg = EXCLUDED.weight_kg,
		    height_cm = EXCLUDED.height_cm,
		    blood_type = EXCLUDED.blood_type,
		    emergency_contact = EXCLUDED.emergency_contact,
		    emergency_phone = EXCLUDED.emergency_phone,
		    picture_url = EXCLUDED.picture_url,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.q.ExecContext(ctx, query,
		p.RiderID,
		p.Name,
		p.Age,
		p.WeightKg,
		p.HeightCm,
		p.BloodType,
		p.EmergencyContact,
		p.EmergencyPhone,
		p.PictureURL,
		p.UpdatedAt,
	)
	return err
}

// Ensure ProfileRepository implements repository.ProfileRepository.
var _ repository.ProfileRepository = (*ProfileRepository)(nil)
