package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"biketrail/internal/domain"
	"biketrail/internal/repository"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var rideColumns = []string{
	"id", "rider_id", "route_data", "distance_km", "average_speed_kmh",
	"active_time_hours", "paused_seconds", "started_at", "ended_at", "created_at",
}

func TestRideRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRideRepository(db)

	started := time.Date(2024, 5, 1, 6, 30, 0, 0, time.UTC)
	ride := &domain.Ride{
		ID:      "ride-1",
		RiderID: "rider-1",
		Route: []domain.LocationFix{
			{Latitude: -6.2, Longitude: 106.8, TimestampMillis: started.UnixMilli()},
		},
		Statistics: domain.RideStatistics{DistanceKm: 12.5, AverageSpeedKmh: 20, ActiveTimeHours: 0.625, PausedSeconds: 60},
		StartedAt:  started,
		EndedAt:    started.Add(40 * time.Minute),
		CreatedAt:  started.Add(41 * time.Minute),
	}

	mock.ExpectExec("INSERT INTO rides").
		WithArgs("ride-1", "rider-1", sqlmock.AnyArg(), 12.5, 20.0, 0.625, int64(60),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), ride); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRideRepository_Create_PropagatesError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRideRepository(db)

	dbErr := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO rides").WillReturnError(dbErr)

	err := repo.Create(context.Background(), &domain.Ride{ID: "ride-1", RiderID: "rider-1"})
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected %v, got %v", dbErr, err)
	}
}

func TestRideRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRideRepository(db)

	started := time.Date(2024, 5, 1, 6, 30, 0, 0, time.UTC)
	route := []byte(`[{"latitude":-6.2,"longitude":106.8,"timestamp":1714545000000,"speed":5.5},{"latitude":-6.21,"longitude":106.81,"timestamp":1714545060000}]`)

	mock.ExpectQuery("SELECT (.+) FROM rides WHERE id").
		WithArgs("ride-1").
		WillReturnRows(sqlmock.NewRows(rideColumns).AddRow(
			"ride-1", "rider-1", route, 12.5, 20.0, 0.625, int64(60),
			started, started.Add(40*time.Minute), started.Add(41*time.Minute),
		))

	ride, err := repo.GetByID(context.Background(), "ride-1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if ride.RiderID != "rider-1" {
		t.Errorf("RiderID = %q, want rider-1", ride.RiderID)
	}
	if len(ride.Route) != 2 {
		t.Fatalf("expected 2 route points, got %d", len(ride.Route))
	}
	if ride.Route[0].SpeedMps == nil || *ride.Route[0].SpeedMps != 5.5 {
		t.Errorf("first fix speed not decoded: %+v", ride.Route[0])
	}
	if ride.Route[1].SpeedMps != nil {
		t.Errorf("second fix should have no speed, got %v", *ride.Route[1].SpeedMps)
	}
	if ride.Statistics.PausedSeconds != 60 {
		t.Errorf("PausedSeconds = %d, want 60", ride.Statistics.PausedSeconds)
	}
}

func TestRideRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRideRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM rides WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRideRepository_ListByRider(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRideRepository(db)

	newer := time.Date(2024, 5, 2, 7, 0, 0, 0, time.UTC)
	older := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	cols := []string{
		"id", "rider_id", "distance_km", "average_speed_kmh", "active_time_hours",
		"paused_seconds", "started_at", "ended_at", "created_at",
	}

	mock.ExpectQuery("SELECT (.+) FROM rides (.+) ORDER BY started_at DESC").
		WithArgs("rider-1", 100).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("ride-2", "rider-1", 30.0, 25.0, 1.2, int64(0), newer, newer.Add(time.Hour), newer.Add(time.Hour)).
			AddRow("ride-1", "rider-1", 10.0, 15.0, 0.66, int64(120), older, older.Add(time.Hour), older.Add(time.Hour)))

	rides, err := repo.ListByRider(context.Background(), "rider-1", 100)
	if err != nil {
		t.Fatalf("ListByRider returned error: %v", err)
	}
	if len(rides) != 2 {
		t.Fatalf("expected 2 rides, got %d", len(rides))
	}
	if rides[0].ID != "ride-2" || rides[1].ID != "ride-1" {
		t.Errorf("unexpected order: %s, %s", rides[0].ID, rides[1].ID)
	}
	if rides[0].Route != nil {
		t.Error("list should not load routes")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRideRepository_TotalsByRider(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRideRepository(db)

	cols := []string{"count", "distance", "active", "paused", "longest", "fastest"}
	mock.ExpectQuery("SELECT COUNT(.+) FROM rides WHERE rider_id = \\$1").
		WithArgs("rider-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(1500), 4200.5, 310.25, int64(90000), 120.0, 31.5))

	totals, err := repo.TotalsByRider(context.Background(), "rider-1")
	if err != nil {
		t.Fatalf("TotalsByRider returned error: %v", err)
	}
	want := domain.RideTotals{
		RideCount:         1500,
		DistanceKm:        4200.5,
		ActiveTimeHours:   310.25,
		PausedSeconds:     90000,
		LongestRideKm:     120,
		FastestAverageKmh: 31.5,
	}
	if *totals != want {
		t.Errorf("TotalsByRider = %+v, want %+v", *totals, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
