package tracking

import (
	"errors"
	"math"
	"testing"
	"time"

	"biketrail/internal/domain"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Set(seconds int64) { c.now = time.UnixMilli(baseMillis + seconds*1000) }

const baseMillis = int64(1_700_000_000_000)

func rideFix(lat, lng float64, seconds int64) domain.LocationFix {
	return domain.LocationFix{Latitude: lat, Longitude: lng, TimestampMillis: baseMillis + seconds*1000}
}

func newTestSession() (*Session, *fakeClock) {
	clock := &fakeClock{}
	clock.Set(0)
	return NewSession(clock.Now), clock
}

func TestSession_InitialStateIsIdle(t *testing.T) {
	t.Parallel()

	s := NewSession(nil)
	if s.State() != domain.SessionStateIdle {
		t.Errorf("expected IDLE, got %s", s.State())
	}
}

func TestSession_Transitions(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		prepare func(s *Session)
		action  func(s *Session) error
		wantErr error
		want    domain.SessionState
	}{
		{"start from idle", func(*Session) {}, (*Session).Start, nil, domain.SessionStateTracking},
		{"start while tracking", func(s *Session) { _ = s.Start() }, (*Session).Start, ErrAlreadyActive, domain.SessionStateTracking},
		{"start while paused", func(s *Session) { _ = s.Start(); _ = s.Pause() }, (*Session).Start, ErrAlreadyActive, domain.SessionStatePaused},
		{"start from stopped", func(s *Session) { _ = s.Start(); _, _ = s.Stop() }, (*Session).Start, nil, domain.SessionStateTracking},
		{"pause from idle", func(*Session) {}, (*Session).Pause, ErrNotTracking, domain.SessionStateIdle},
		{"pause while paused", func(s *Session) { _ = s.Start(); _ = s.Pause() }, (*Session).Pause, ErrNotTracking, domain.SessionStatePaused},
		{"resume while tracking", func(s *Session) { _ = s.Start() }, (*Session).Resume, ErrNotPaused, domain.SessionStateTracking},
		{"resume from paused", func(s *Session) { _ = s.Start(); _ = s.Pause() }, (*Session).Resume, nil, domain.SessionStateTracking},
		{"stop from idle", func(*Session) {}, func(s *Session) error { _, err := s.Stop(); return err }, ErrNotActive, domain.SessionStateIdle},
		{"stop twice", func(s *Session) { _ = s.Start(); _, _ = s.Stop() }, func(s *Session) error { _, err := s.Stop(); return err }, ErrNotActive, domain.SessionStateStopped},
		{"stop from paused", func(s *Session) { _ = s.Start(); _ = s.Pause() }, func(s *Session) error { _, err := s.Stop(); return err }, nil, domain.SessionStateStopped},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s, _ := newTestSession()
			tc.prepare(s)

			err := tc.action(s)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected error %v, got %v", tc.wantErr, err)
			}
			if s.State() != tc.want {
				t.Errorf("expected state %s, got %s", tc.want, s.State())
			}
		})
	}
}

func TestSession_EndToEndWithoutPauses(t *testing.T) {
	t.Parallel()

	s, clock := newTestSession()
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	s.OnFixReceived(rideFix(37.0, -122.0, 0))
	clock.Set(3600)
	s.OnFixReceived(rideFix(37.0, -121.991, 3600))

	stats, err := s.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}

	rounded := stats.Rounded()
	if rounded.DistanceKm != 0.80 {
		t.Errorf("DistanceKm = %f, want 0.80", rounded.DistanceKm)
	}
	if rounded.ActiveTimeHours != 1.00 {
		t.Errorf("ActiveTimeHours = %f, want 1.00", rounded.ActiveTimeHours)
	}
	if rounded.AverageSpeedKmh != 0.80 {
		t.Errorf("AverageSpeedKmh = %f, want 0.80", rounded.AverageSpeedKmh)
	}
	if s.Statistics() != stats {
		t.Error("expected statistics to be stored on the session")
	}
}

func TestSession_EndToEndWithPause(t *testing.T) {
	t.Parallel()

	s, clock := newTestSession()
	_ = s.Start()
	s.OnFixReceived(rideFix(37.0, -122.0, 0))

	clock.Set(1800)
	if err := s.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}

	// Delivered while paused: must never reach the route.
	clock.Set(2000)
	if s.OnFixReceived(rideFix(37.5, -121.5, 2000)) {
		t.Error("expected fix to be dropped while paused")
	}

	clock.Set(2400)
	if err := s.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}

	clock.Set(3600)
	s.OnFixReceived(rideFix(37.0, -121.991, 3600))

	stats, err := s.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}

	if stats.PausedSeconds != 600 {
		t.Errorf("PausedSeconds = %d, want 600", stats.PausedSeconds)
	}
	if math.Abs(stats.ActiveTimeHours-0.8333) > 0.001 {
		t.Errorf("ActiveTimeHours = %f, want 0.833", stats.ActiveTimeHours)
	}
	if stats.Rounded().AverageSpeedKmh != 0.96 {
		t.Errorf("AverageSpeedKmh = %f, want ~0.96", stats.AverageSpeedKmh)
	}

	route := s.Snapshot().Route
	if len(route) != 2 {
		t.Fatalf("expected 2 fixes in route, got %d", len(route))
	}
	for _, f := range route {
		if f.Latitude == 37.5 {
			t.Error("paused fix found in route")
		}
	}
}

func TestSession_StopWhilePausedClosesPause(t *testing.T) {
	t.Parallel()

	s, clock := newTestSession()
	_ = s.Start()
	s.OnFixReceived(rideFix(37.0, -122.0, 0))
	clock.Set(1200)
	s.OnFixReceived(rideFix(37.0, -121.991, 1200))

	clock.Set(1500)
	_ = s.Pause()
	clock.Set(1800)

	stats, err := s.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stats.PausedSeconds != 300 {
		t.Errorf("PausedSeconds = %d, want 300", stats.PausedSeconds)
	}

	snap := s.Snapshot()
	if snap.PauseOpen {
		t.Error("expected pause to be closed after stop")
	}
	// 1200s between fixes minus 300s paused.
	if math.Abs(stats.ActiveTimeHours-900.0/3600.0) > 1e-9 {
		t.Errorf("ActiveTimeHours = %f, want 0.25", stats.ActiveTimeHours)
	}
}

func TestSession_StartResetsPreviousRide(t *testing.T) {
	t.Parallel()

	s, clock := newTestSession()
	_ = s.Start()
	s.OnFixReceived(rideFix(37.0, -122.0, 0))
	clock.Set(10)
	_ = s.Pause()
	clock.Set(70)
	_ = s.Resume()
	s.OnFixReceived(rideFix(37.0, -121.9, 70))
	_, _ = s.Stop()

	if err := s.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Route) != 0 {
		t.Errorf("expected empty route, got %d fixes", len(snap.Route))
	}
	if snap.PausedSeconds != 0 || snap.PauseOpen {
		t.Errorf("expected zeroed pause ledger, got %d open=%v", snap.PausedSeconds, snap.PauseOpen)
	}
	if snap.Statistics != (domain.RideStatistics{}) {
		t.Errorf("expected zeroed statistics, got %+v", snap.Statistics)
	}
}

func TestSession_FixesOutsideTrackingAreDropped(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession()
	if s.OnFixReceived(rideFix(1, 1, 0)) {
		t.Error("expected fix to be dropped while idle")
	}

	_ = s.Start()
	_, _ = s.Stop()
	if s.OnFixReceived(rideFix(1, 1, 1)) {
		t.Error("expected fix to be dropped while stopped")
	}
	if len(s.Snapshot().Route) != 0 {
		t.Error("expected empty route")
	}
}

func TestSession_CurrentSpeedFromFix(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession()
	_ = s.Start()

	speed := 5.0
	s.OnFixReceived(domain.LocationFix{Latitude: 1, Longitude: 1, TimestampMillis: 1, SpeedMps: &speed})
	if got := s.Snapshot().CurrentSpeedKmh; got != 18.0 {
		t.Errorf("CurrentSpeedKmh = %f, want 18", got)
	}

	s.OnFixReceived(domain.LocationFix{Latitude: 1, Longitude: 1, TimestampMillis: 2})
	if got := s.Snapshot().CurrentSpeedKmh; got != 0 {
		t.Errorf("CurrentSpeedKmh without reported speed = %f, want 0", got)
	}

	// Statistics are only computed on stop.
	if s.Statistics() != (domain.RideStatistics{}) {
		t.Error("expected statistics to stay untouched until stop")
	}
}

func TestSession_ProgressTracksLiveDistance(t *testing.T) {
	t.Parallel()

	s, _ := newTestSession()
	if p := s.Progress(); p.State != domain.SessionStateIdle || p.LastFix != nil || p.Points != 0 {
		t.Fatalf("unexpected idle progress: %+v", p)
	}

	_ = s.Start()
	s.OnFixReceived(rideFix(37.0, -122.0, 0))
	s.OnFixReceived(rideFix(37.0, -121.991, 3600))

	p := s.Progress()
	if p.Points != 2 {
		t.Errorf("Points = %d, want 2", p.Points)
	}
	if p.LastFix == nil || p.LastFix.Longitude != -121.991 {
		t.Errorf("LastFix = %+v, want the second fix", p.LastFix)
	}
	if math.Abs(p.DistanceKm-0.7993) > 0.001 {
		t.Errorf("DistanceKm = %f, want ~0.7993", p.DistanceKm)
	}
	if p.DistanceKm != s.Snapshot().DistanceKm {
		t.Error("progress and snapshot disagree on distance")
	}
}
