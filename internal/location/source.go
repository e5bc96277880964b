// Package location provides the sources that feed GPS fixes into a ride.
package location

import (
	"context"
	"errors"

	"biketrail/internal/domain"
)

var (
	// ErrNotSubscribed is returned when pushing to a source nobody subscribed to.
	ErrNotSubscribed = errors.New("location source not subscribed")

	// ErrSourceStopped is returned when using a source after Stop.
	ErrSourceStopped = errors.New("location source stopped")
)

// Source delivers location fixes for a ride.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// RequestPermission asks for access to the device location.
	// A false result with a nil error means the request was denied.
	RequestPermission(ctx context.Context) (bool, error)

	// Subscribe starts delivery. The returned channel is closed when the
	// source stops or ctx is cancelled.
	Subscribe(ctx context.Context) (<-chan domain.LocationFix, error)

	// Stop ends the subscription.
	Stop() error
}
