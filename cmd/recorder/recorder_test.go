package main

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"biketrail/internal/domain"
)

const startMillis int64 = 1_700_000_000_000

type fakeSource struct {
	granted bool
	fixes   chan domain.LocationFix
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) RequestPermission(ctx context.Context) (bool, error) {
	return f.granted, nil
}

func (f *fakeSource) Subscribe(ctx context.Context) (<-chan domain.LocationFix, error) {
	return f.fixes, nil
}

func (f *fakeSource) Stop() error { return nil }

type stepClock struct{ millis atomic.Int64 }

func (c *stepClock) Now() time.Time { return time.UnixMilli(c.millis.Load()) }
func (c *stepClock) at(seconds int64) { c.millis.Store(startMillis + seconds*1000) }

func fix(lat, lng float64, seconds int64) domain.LocationFix {
	return domain.LocationFix{Latitude: lat, Longitude: lng, TimestampMillis: startMillis + seconds*1000}
}

func TestRecorder_PauseAndStop(t *testing.T) {
	t.Parallel()

	clock := &stepClock{}
	clock.at(0)
	source := &fakeSource{granted: true, fixes: make(chan domain.LocationFix)}
	toggles := make(chan struct{})
	rec := newRecorder("rider-1", clock.Now)

	type result struct {
		ride *domain.Ride
		err  error
	}
	done := make(chan result, 1)
	go func() {
		ride, err := rec.Run(context.Background(), source, toggles)
		done <- result{ride, err}
	}()

	// Unbuffered sends return only once the loop has taken the previous event.
	source.fixes <- fix(37.0, -122.0, 0)
	clock.at(1800)
	toggles <- struct{}{}
	source.fixes <- fix(37.0, -121.995, 2000) // paused, dropped
	clock.at(2400)
	toggles <- struct{}{}
	clock.at(3600)
	source.fixes <- fix(37.0, -121.991, 3600)
	close(source.fixes)

	res := <-done
	if res.err != nil {
		t.Fatalf("Run: %v", res.err)
	}
	ride := res.ride
	if len(ride.Route) != 2 {
		t.Fatalf("expected 2 route points, got %d", len(ride.Route))
	}
	stats := ride.Statistics
	if stats.PausedSeconds != 600 {
		t.Errorf("PausedSeconds = %d, want 600", stats.PausedSeconds)
	}
	if math.Abs(stats.DistanceKm-0.80) > 0.01 {
		t.Errorf("DistanceKm = %f, want ~0.80", stats.DistanceKm)
	}
	if math.Abs(stats.ActiveTimeHours-0.8333) > 0.001 {
		t.Errorf("ActiveTimeHours = %f, want ~0.833", stats.ActiveTimeHours)
	}
	if math.Abs(stats.AverageSpeedKmh-0.96) > 0.01 {
		t.Errorf("AverageSpeedKmh = %f, want ~0.96", stats.AverageSpeedKmh)
	}
	if ride.RiderID != "rider-1" || ride.ID == "" {
		t.Errorf("unexpected ride identity: %q %q", ride.ID, ride.RiderID)
	}
}

func TestRecorder_CancelStopsRide(t *testing.T) {
	t.Parallel()

	clock := &stepClock{}
	clock.at(0)
	source := &fakeSource{granted: true, fixes: make(chan domain.LocationFix)}
	rec := newRecorder("", clock.Now)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *domain.Ride, 1)
	go func() {
		ride, err := rec.Run(ctx, source, nil)
		if err != nil {
			t.Errorf("Run: %v", err)
		}
		done <- ride
	}()

	source.fixes <- fix(37.0, -122.0, 0)
	cancel()

	select {
	case ride := <-done:
		if ride == nil || len(ride.Route) != 1 {
			t.Fatalf("expected a stopped ride with 1 point, got %+v", ride)
		}
		if ride.Statistics.DistanceKm != 0 {
			t.Errorf("single point ride should have zero distance, got %f", ride.Statistics.DistanceKm)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not stop after cancel")
	}
}

func TestRecorder_PermissionDenied(t *testing.T) {
	t.Parallel()

	rec := newRecorder("rider-1", time.Now)
	_, err := rec.Run(context.Background(), &fakeSource{granted: false}, nil)
	if !errors.Is(err, errPermissionDenied) {
		t.Fatalf("expected errPermissionDenied, got %v", err)
	}
}

func TestSaveRide_CommitsTransaction(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	ride := &domain.Ride{ID: "ride-1", RiderID: "rider-1"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO rides").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := saveRide(context.Background(), db, ride); err != nil {
		t.Fatalf("saveRide: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSaveRide_RollsBackOnError(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	insertErr := errors.New("duplicate key")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO rides").WillReturnError(insertErr)
	mock.ExpectRollback()

	err = saveRide(context.Background(), db, &domain.Ride{ID: "ride-1"})
	if !errors.Is(err, insertErr) {
		t.Fatalf("expected wrapped insert error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
