package service

import "errors"

var (
	// ErrInvalidRiderID is returned when rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidLocation is returned when location coordinates are invalid.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidRadius is returned when a nearby search radius is out of range.
	ErrInvalidRadius = errors.New("invalid search radius")

	// ErrInvalidSource is returned when no location source is given.
	ErrInvalidSource = errors.New("invalid location source")

	// ErrPermissionDenied is returned when the location source refuses access.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrRideLocked is returned when the rider already has a ride open on another instance.
	ErrRideLocked = errors.New("rider has a ride in progress elsewhere")

	// ErrNoActiveRide is returned when the rider has no ride session.
	ErrNoActiveRide = errors.New("no active ride")

	// ErrRideNotStopped is returned when saving a ride that is still running.
	ErrRideNotStopped = errors.New("ride not stopped")

	// ErrNotPushSource is returned when fixes are posted for a ride fed by another source.
	ErrNotPushSource = errors.New("ride does not accept pushed fixes")

	// ErrInvalidProfile is returned when profile fields are out of range.
	ErrInvalidProfile = errors.New("invalid profile")
)
