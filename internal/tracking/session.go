package tracking

import (
	"time"

	"biketrail/internal/domain"
)

const mpsToKmh = 3.6

// Session is the state machine for one ride: Idle, Tracking, Paused and
// Stopped. Statistics are recomputed when the ride stops.
//
// A Session is not safe for concurrent use. Callers deliver fixes and
// commands one at a time.
type Session struct {
	state        domain.SessionState
	route        Route
	ledger       PauseLedger
	stats        domain.RideStatistics
	currentSpeed float64 // km/h, from the most recent fix
	dropped      int     // fixes received outside Tracking
	startedAt    time.Time
	stoppedAt    time.Time
	now          func() time.Time
}

// NewSession returns an idle session. A nil clock means time.Now.
func NewSession(clock func() time.Time) *Session {
	if clock == nil {
		clock = time.Now
	}
	return &Session{state: domain.SessionStateIdle, now: clock}
}

// Start begins a fresh ride, discarding the previous route and pause total.
func (s *Session) Start() error {
	if s.state != domain.SessionStateIdle && s.state != domain.SessionStateStopped {
		return ErrAlreadyActive
	}

	s.route.Reset()
	s.ledger.Reset()
	s.stats = domain.RideStatistics{}
	s.currentSpeed = 0
	s.dropped = 0
	s.startedAt = s.now()
	s.stoppedAt = time.Time{}
	s.state = domain.SessionStateTracking
	return nil
}

// Stop ends the ride. An open pause is closed first so the final pause
// total is used. The computed statistics are returned and kept.
func (s *Session) Stop() (domain.RideStatistics, error) {
	if s.state != domain.SessionStateTracking && s.state != domain.SessionStatePaused {
		return domain.RideStatistics{}, ErrNotActive
	}

	now := s.now()
	if s.state == domain.SessionStatePaused {
		s.ledger.EndPause(now.UnixMilli())
	}

	s.state = domain.SessionStateStopped
	s.stoppedAt = now
	s.currentSpeed = 0
	s.stats = Compute(s.route.fixes, s.ledger.PausedSeconds())
	return s.stats, nil
}

// Pause suspends fix recording.
func (s *Session) Pause() error {
	if s.state != domain.SessionStateTracking {
		return ErrNotTracking
	}
	s.ledger.BeginPause(s.now().UnixMilli())
	s.state = domain.SessionStatePaused
	return nil
}

// Resume continues a paused ride.
func (s *Session) Resume() error {
	if s.state != domain.SessionStatePaused {
		return ErrNotPaused
	}
	s.ledger.EndPause(s.now().UnixMilli())
	s.state = domain.SessionStateTracking
	return nil
}

// OnFixReceived records a fix if the session is tracking and reports
// whether it was recorded. Fixes arriving in any other state are dropped.
func (s *Session) OnFixReceived(fix domain.LocationFix) bool {
	if s.state != domain.SessionStateTracking {
		s.dropped++
		return false
	}

	s.route.Append(fix)
	if fix.SpeedMps != nil {
		s.currentSpeed = *fix.SpeedMps * mpsToKmh
	} else {
		s.currentSpeed = 0
	}
	return true
}

// State returns the current state.
func (s *Session) State() domain.SessionState {
	return s.state
}

// Statistics returns the statistics computed at the last Stop.
func (s *Session) Statistics() domain.RideStatistics {
	return s.stats
}

// Progress is the lightweight live view sent with every recorded fix.
type Progress struct {
	State           domain.SessionState
	Points          int
	LastFix         *domain.LocationFix
	DistanceKm      float64
	CurrentSpeedKmh float64
	PausedSeconds   int64
	PauseOpen       bool
	StartedAt       time.Time
}

// Progress returns the live view without copying the route.
func (s *Session) Progress() Progress {
	p := Progress{
		State:           s.state,
		Points:          s.route.Len(),
		DistanceKm:      s.route.TotalDistanceKm(),
		CurrentSpeedKmh: s.currentSpeed,
		PausedSeconds:   s.ledger.PausedSeconds(),
		PauseOpen:       s.ledger.Open(),
		StartedAt:       s.startedAt,
	}
	if last, ok := s.route.Last(); ok {
		p.LastFix = &last
	}
	return p
}

// Snapshot is a read-only view of a session for display.
type Snapshot struct {
	State           domain.SessionState
	Route           []domain.LocationFix
	Statistics      domain.RideStatistics
	DistanceKm      float64 // Route distance so far, updated with every fix
	CurrentSpeedKmh float64
	PausedSeconds   int64
	PauseOpen       bool
	DroppedFixes    int
	StartedAt       time.Time
	StoppedAt       time.Time
}

// Snapshot copies the session's current view.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		State:           s.state,
		Route:           s.route.Fixes(),
		Statistics:      s.stats,
		DistanceKm:      s.route.TotalDistanceKm(),
		CurrentSpeedKmh: s.currentSpeed,
		PausedSeconds:   s.ledger.PausedSeconds(),
		PauseOpen:       s.ledger.Open(),
		DroppedFixes:    s.dropped,
		StartedAt:       s.startedAt,
		StoppedAt:       s.stoppedAt,
	}
}
