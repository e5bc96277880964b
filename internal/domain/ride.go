package domain

import (
	"math"
	"time"
)

// SessionState represents the current state of a ride session.
type SessionState string

const (
	SessionStateIdle     SessionState = "IDLE"
	SessionStateTracking SessionState = "TRACKING"
	SessionStatePaused   SessionState = "PAUSED"
	SessionStateStopped  SessionState = "STOPPED"
)

// LocationFix is one GPS sample. It is never modified after it is recorded.
type LocationFix struct {
	Latitude        float64  `json:"latitude"`
	Longitude       float64  `json:"longitude"`
	TimestampMillis int64    `json:"timestamp"`
	SpeedMps        *float64 `json:"speed,omitempty"` // Instantaneous speed reported by the source, if any
}

// Time returns the fix timestamp as a time.Time.
func (f LocationFix) Time() time.Time {
	return time.UnixMilli(f.TimestampMillis)
}

// RideStatistics is derived from a route and its pause total.
type RideStatistics struct {
	DistanceKm      float64
	AverageSpeedKmh float64
	ActiveTimeHours float64
	PausedSeconds   int64
}

// Rounded returns a copy with every float rounded to 2 decimal places.
func (s RideStatistics) Rounded() RideStatistics {
	return RideStatistics{
		DistanceKm:      round2(s.DistanceKm),
		AverageSpeedKmh: round2(s.AverageSpeedKmh),
		ActiveTimeHours: round2(s.ActiveTimeHours),
		PausedSeconds:   s.PausedSeconds,
	}
}

// ActiveDuration returns the active time as a time.Duration.
func (s RideStatistics) ActiveDuration() time.Duration {
	return time.Duration(s.ActiveTimeHours * float64(time.Hour))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RideTotals aggregates every saved ride of a rider.
type RideTotals struct {
	RideCount         int
	DistanceKm        float64
	ActiveTimeHours   float64
	PausedSeconds     int64
	LongestRideKm     float64
	FastestAverageKmh float64
}

// Ride is a completed ride as stored in ride history.
type Ride struct {
	ID         string
	RiderID    string
	Route      []LocationFix
	Statistics RideStatistics
	StartedAt  time.Time
	EndedAt    time.Time
	CreatedAt  time.Time
}
