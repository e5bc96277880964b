package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"biketrail/internal/domain"
	"biketrail/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

// Create persists a completed ride. The route is stored as a JSON array.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (id, rider_id, route_data, distance_km, average_speed_kmh, active_time_hours, paused_seconds, started_at, ended_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	route := ride.Route
	if route == nil {
		route = []domain.LocationFix{}
	}
	routeData, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("failed to encode route: %w", err)
	}

	_, err = r.q.ExecContext(ctx, query,
		ride.ID,
		ride.RiderID,
		routeData,
		ride.Statistics.DistanceKm,
		ride.Statistics.AverageSpeedKmh,
		ride.Statistics.ActiveTimeHours,
		ride.Statistics.PausedSeconds,
		ride.StartedAt,
		ride.EndedAt,
		ride.CreatedAt,
	)

	return err
}

// GetByID retrieves a ride, including its route, by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `
		SELECT id, rider_id, route_data, distance_km, average_speed_kmh, active_time_hours, paused_seconds, started_at, ended_at, created_at
		FROM rides WHERE id = $1
	`

	var ride domain.Ride
	var routeData []byte

	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&ride.ID,
		&ride.RiderID,
		&routeData,
		&ride.Statistics.DistanceKm,
		&ride.Statistics.AverageSpeedKmh,
		&ride.Statistics.ActiveTimeHours,
		&ride.Statistics.PausedSeconds,
		&ride.StartedAt,
		&ride.EndedAt,
		&ride.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if len(routeData) > 0 {
		if err := json.Unmarshal(routeData, &ride.Route); err != nil {
			return nil, fmt.Errorf("failed to decode route for ride %s: %w", id, err)
		}
	}

	return &ride, nil
}

// ListByRider retrieves a rider's rides without their routes, newest first.
func (r *RideRepository) ListByRider(ctx context.Context, riderID string, limit int) ([]*domain.Ride, error) {
	query := `
		SELECT id, rider_id, distance_km, average_speed_kmh, active_time_hours, paused_seconds, started_at, ended_at, created_at
		FROM rides
		WHERE rider_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.q.QueryContext(ctx, query, riderID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		var ride domain.Ride
		if err := rows.Scan(
			&ride.ID,
			&ride.RiderID,
			&ride.Statistics.DistanceKm,
			&ride.Statistics.AverageSpeedKmh,
			&ride.Statistics.ActiveTimeHours,
			&ride.Statistics.PausedSeconds,
			&ride.StartedAt,
			&ride.EndedAt,
			&ride.CreatedAt,
		); err != nil {
			return nil, err
		}
		rides = append(rides, &ride)
	}

	return rides, rows.Err()
}

// TotalsByRider aggregates every ride of a rider in one query.
func (r *RideRepository) TotalsByRider(ctx context.Context, riderID string) (*domain.RideTotals, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(distance_km), 0),
			COALESCE(SUM(active_time_hours), 0),
			COALESCE(SUM(paused_seconds), 0),
			COALESCE(MAX(distance_km), 0),
			COALESCE(MAX(average_speed_kmh), 0)
		FROM rides
		WHERE rider_id = $1
	`

	var totals domain.RideTotals
	err := r.q.QueryRowContext(ctx, query, riderID).Scan(
		&totals.RideCount,
		&totals.DistanceKm,
		&totals.ActiveTimeHours,
		&totals.PausedSeconds,
		&totals.LongestRideKm,
		&totals.FastestAverageKmh,
	)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

// Ensure RideRepository implements repository.RideRepository.
var _ repository.RideRepository = (*RideRepository)(nil)
