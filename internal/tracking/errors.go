package tracking

import "errors"

var (
	// ErrAlreadyActive is returned when starting a session that is tracking or paused.
	ErrAlreadyActive = errors.New("ride already in progress")

	// ErrNotActive is returned when stopping a session that is idle or stopped.
	ErrNotActive = errors.New("ride not in progress")

	// ErrNotTracking is returned when pausing a session that is not tracking.
	ErrNotTracking = errors.New("ride not tracking")

	// ErrNotPaused is returned when resuming a session that is not paused.
	ErrNotPaused = errors.New("ride not paused")
)
