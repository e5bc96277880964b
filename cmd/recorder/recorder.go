package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"biketrail/internal/domain"
	"biketrail/internal/location"
	"biketrail/internal/repository/postgres"
	"biketrail/internal/tracking"
)

const progressInterval = 30 * time.Second

var errPermissionDenied = errors.New("access to the GPS receiver was denied")

// recorder drives one local ride session from a location source.
// All session calls happen on the Run goroutine.
type recorder struct {
	riderID  string
	clock    func() time.Time
	session  *tracking.Session
	interval time.Duration
}

func newRecorder(riderID string, clock func() time.Time) *recorder {
	return &recorder{
		riderID:  riderID,
		clock:    clock,
		session:  tracking.NewSession(clock),
		interval: progressInterval,
	}
}

// Run records until ctx is cancelled or the source ends, then stops the
// session and returns the finished ride. A value on toggles pauses a
// tracking ride or resumes a paused one.
func (r *recorder) Run(ctx context.Context, source location.Source, toggles <-chan struct{}) (*domain.Ride, error) {
	granted, err := source.RequestPermission(ctx)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, errPermissionDenied
	}

	if err := r.session.Start(); err != nil {
		return nil, err
	}

	fixes, err := source.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", source.Name(), err)
	}
	log.Printf("[recorder] tracking from %s", source.Name())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case fix, ok := <-fixes:
			if !ok {
				log.Printf("[recorder] %s closed", source.Name())
				break loop
			}
			r.session.OnFixReceived(fix)
		case <-toggles:
			r.toggle()
		case <-ticker.C:
			p := r.session.Progress()
			log.Printf("[recorder] %s: %d points, %.2f km, %.1f km/h",
				p.State, p.Points, p.DistanceKm, p.CurrentSpeedKmh)
		}
	}

	if _, err := r.session.Stop(); err != nil {
		return nil, err
	}
	return r.ride(), nil
}

func (r *recorder) toggle() {
	switch r.session.State() {
	case domain.SessionStateTracking:
		if err := r.session.Pause(); err == nil {
			log.Println("[recorder] paused")
		}
	case domain.SessionStatePaused:
		if err := r.session.Resume(); err == nil {
			log.Println("[recorder] resumed")
		}
	}
}

func (r *recorder) ride() *domain.Ride {
	snap := r.session.Snapshot()
	return &domain.Ride{
		ID:         uuid.New().String(),
		RiderID:    r.riderID,
		Route:      snap.Route,
		Statistics: snap.Statistics,
		StartedAt:  snap.StartedAt,
		EndedAt:    snap.StoppedAt,
		CreatedAt:  r.clock(),
	}
}

// saveRide stores the ride in one transaction.
func saveRide(ctx context.Context, db *sql.DB, ride *domain.Ride) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := postgres.NewRideRepositoryWithTx(tx).Create(ctx, ride); err != nil {
		return fmt.Errorf("failed to save ride: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ride: %w", err)
	}
	return nil
}
