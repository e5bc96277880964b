package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"biketrail/internal/domain"
	"biketrail/internal/repository"
	"biketrail/internal/service"
)

func findAchievement(t *testing.T, achievements []domain.Achievement, id domain.AchievementID) domain.Achievement {
	t.Helper()
	for _, a := range achievements {
		if a.ID == id {
			return a
		}
	}
	t.Fatalf("achievement %s not found", id)
	return domain.Achievement{}
}

// ──────────────────────────────────────────────
// 1. EVALUATION RULES
// ──────────────────────────────────────────────

func TestAchievements_NoRides(t *testing.T) {
	t.Parallel()

	achievements := service.EvaluateAchievements(nil, time.UTC)
	if len(achievements) != 4 {
		t.Fatalf("expected 4 achievements, got %d", len(achievements))
	}
	for _, a := range achievements {
		if a.Unlocked || a.Progress != 0 {
			t.Errorf("%s: expected locked with 0 progress, got %+v", a.ID, a)
		}
		if a.Title == "" || a.Description == "" {
			t.Errorf("%s: missing title or description", a.ID)
		}
	}
}

func TestAchievements_Thresholds(t *testing.T) {
	t.Parallel()

	noon := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		stats        domain.RideStatistics
		id           domain.AchievementID
		wantUnlocked bool
		wantProgress int
	}{
		{"century exactly", domain.RideStatistics{DistanceKm: 100}, domain.AchievementCenturyRider, true, 100},
		{"century partial", domain.RideStatistics{DistanceKm: 64.9}, domain.AchievementCenturyRider, false, 64},
		{"speed demon", domain.RideStatistics{DistanceKm: 20, AverageSpeedKmh: 30}, domain.AchievementSpeedDemon, true, 100},
		{"fast but short", domain.RideStatistics{DistanceKm: 10, AverageSpeedKmh: 35}, domain.AchievementSpeedDemon, false, 50},
		{"long but slow", domain.RideStatistics{DistanceKm: 40, AverageSpeedKmh: 15}, domain.AchievementSpeedDemon, false, 50},
		{"iron butt", domain.RideStatistics{ActiveTimeHours: 6.2}, domain.AchievementIronButt, true, 100},
		{"iron butt partial", domain.RideStatistics{ActiveTimeHours: 3}, domain.AchievementIronButt, false, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rides := []*domain.Ride{{ID: "r", StartedAt: noon, Statistics: tt.stats}}
			a := findAchievement(t, service.EvaluateAchievements(rides, time.UTC), tt.id)
			if a.Unlocked != tt.wantUnlocked || a.Progress != tt.wantProgress {
				t.Errorf("got unlocked=%v progress=%d, want unlocked=%v progress=%d",
					a.Unlocked, a.Progress, tt.wantUnlocked, tt.wantProgress)
			}
		})
	}
}

func TestAchievements_EarlyBirdUsesLocation(t *testing.T) {
	t.Parallel()

	jakarta := time.FixedZone("WIB", 7*60*60)
	var rides []*domain.Ride
	for i := 0; i < 5; i++ {
		// 23:30 UTC is 06:30 in Jakarta.
		start := time.Date(2024, 5, 1+i, 23, 30, 0, 0, time.UTC)
		rides = append(rides, &domain.Ride{ID: "r", StartedAt: start})
	}

	utc := findAchievement(t, service.EvaluateAchievements(rides, time.UTC), domain.AchievementEarlyBird)
	if utc.Unlocked || utc.Progress != 0 {
		t.Errorf("in UTC these are late rides, got %+v", utc)
	}

	local := findAchievement(t, service.EvaluateAchievements(rides, jakarta), domain.AchievementEarlyBird)
	if !local.Unlocked || local.Progress != 100 {
		t.Errorf("in Jakarta these are early rides, got %+v", local)
	}

	partial := findAchievement(t, service.EvaluateAchievements(rides[:3], jakarta), domain.AchievementEarlyBird)
	if partial.Unlocked || partial.Progress != 60 {
		t.Errorf("3 of 5 early rides: got %+v, want 60%%", partial)
	}
}

// ──────────────────────────────────────────────
// 2. CACHING AND REFRESH
// ──────────────────────────────────────────────

func TestAchievements_ListIsCached(t *testing.T) {
	t.Parallel()

	repo := NewMockRideRepository()
	cache := NewMockCacheStore()
	repo.AddRide(savedRide("r1", "rider-1", time.Now(), domain.RideStatistics{DistanceKm: 120}))

	svc := service.NewAchievementService(repo, cache, nil, time.UTC)
	ctx := context.Background()

	first, err := svc.ListAchievements(ctx, "rider-1")
	if err != nil {
		t.Fatalf("ListAchievements: %v", err)
	}
	second, err := svc.ListAchievements(ctx, "rider-1")
	if err != nil {
		t.Fatalf("ListAchievements (cached): %v", err)
	}

	if got := atomic32(&repo.ListCallCount); got != 1 {
		t.Errorf("repository listed %d times, want 1", got)
	}
	if len(first) != len(second) {
		t.Fatalf("cached list has %d entries, want %d", len(second), len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("entry %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
	if !findAchievement(t, second, domain.AchievementCenturyRider).Unlocked {
		t.Error("expected Century Rider unlocked")
	}
}

func TestAchievements_RefreshAfterNewRide(t *testing.T) {
	t.Parallel()

	repo := NewMockRideRepository()
	cache := NewMockCacheStore()
	svc := service.NewAchievementService(repo, cache, service.NewNotificationService(), time.UTC)
	ctx := context.Background()

	before, err := svc.ListAchievements(ctx, "rider-1")
	if err != nil {
		t.Fatalf("ListAchievements: %v", err)
	}
	if findAchievement(t, before, domain.AchievementIronButt).Unlocked {
		t.Fatal("nothing should be unlocked yet")
	}

	repo.AddRide(savedRide("r1", "rider-1", time.Now(), domain.RideStatistics{ActiveTimeHours: 7}))

	after, err := svc.Refresh(ctx, "rider-1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !findAchievement(t, after, domain.AchievementIronButt).Unlocked {
		t.Error("expected Iron Butt unlocked after refresh")
	}
	if got := atomic32(&cache.InvalidateAchievementsCallCount); got != 1 {
		t.Errorf("InvalidateAchievementsCallCount = %d, want 1", got)
	}
	if !cache.HasAchievements("rider-1") {
		t.Error("expected refreshed achievements to be cached")
	}
}

func TestAchievements_Errors(t *testing.T) {
	t.Parallel()

	repo := NewMockRideRepository()
	repo.ListError = repository.ErrNotFound
	svc := service.NewAchievementService(repo, nil, nil, nil)

	if _, err := svc.ListAchievements(context.Background(), ""); !errors.Is(err, service.ErrInvalidRiderID) {
		t.Errorf("expected ErrInvalidRiderID, got %v", err)
	}
	if _, err := svc.ListAchievements(context.Background(), "rider-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected repository error, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 3. PROFILES
// ──────────────────────────────────────────────

func TestProfile_UpdateAndGet(t *testing.T) {
	t.Parallel()

	repo := NewMockProfileRepository()
	svc := service.NewProfileService(repo)
	ctx := context.Background()

	if _, err := svc.GetProfile(ctx, "rider-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first update, got %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, service.UpdateProfileRequest{
		RiderID:          "rider-1",
		Name:             "  Sari  ",
		Age:              31,
		WeightKg:         58.5,
		HeightCm:         163,
		BloodType:        "o+",
		EmergencyContact: "Budi",
		EmergencyPhone:   "+62811000000",
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "Sari" || updated.BloodType != "O+" {
		t.Errorf("expected trimmed name and upper-case blood type, got %+v", updated)
	}
	if updated.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}

	got, err := svc.GetProfile(ctx, "rider-1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.EmergencyPhone != "+62811000000" || got.Age != 31 {
		t.Errorf("unexpected stored profile: %+v", got)
	}
}

func TestProfile_Validation(t *testing.T) {
	t.Parallel()

	repo := NewMockProfileRepository()
	svc := service.NewProfileService(repo)

	tests := []struct {
		name    string
		req     service.UpdateProfileRequest
		wantErr error
	}{
		{"no rider", service.UpdateProfileRequest{}, service.ErrInvalidRiderID},
		{"negative age", service.UpdateProfileRequest{RiderID: "r", Age: -1}, service.ErrInvalidProfile},
		{"absurd weight", service.UpdateProfileRequest{RiderID: "r", WeightKg: 900}, service.ErrInvalidProfile},
		{"absurd height", service.UpdateProfileRequest{RiderID: "r", HeightCm: 400}, service.ErrInvalidProfile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.UpdateProfile(context.Background(), tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
	if got := atomic32(&repo.UpsertCallCount); got != 0 {
		t.Errorf("invalid profiles must not be stored, Upsert called %d times", got)
	}
}

func TestProfile_RepositoryErrorIsReturned(t *testing.T) {
	t.Parallel()

	repo := NewMockProfileRepository()
	repo.UpsertError = ErrMockDBConstraint
	svc := service.NewProfileService(repo)

	_, err := svc.UpdateProfile(context.Background(), service.UpdateProfileRequest{RiderID: "rider-1"})
	if !errors.Is(err, ErrMockDBConstraint) {
		t.Fatalf("expected ErrMockDBConstraint, got %v", err)
	}
}
