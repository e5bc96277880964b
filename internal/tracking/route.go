// Package tracking implements the ride session state machine and the
// statistics derived from a recorded route.
package tracking

import (
	"biketrail/internal/domain"
	"biketrail/internal/geo"
)

// Route is the ordered list of fixes recorded for one ride.
// Insertion order is chronological order.
type Route struct {
	fixes      []domain.LocationFix
	distanceKm float64 // running sum, kept in step with fixes
}

// Reset empties the route. Previously recorded fixes are gone.
func (r *Route) Reset() {
	r.fixes = r.fixes[:0]
	r.distanceKm = 0
}

// Append adds a fix to the end of the route.
func (r *Route) Append(fix domain.LocationFix) {
	if last, ok := r.Last(); ok {
		r.distanceKm += geo.HaversineKm(last.Latitude, last.Longitude, fix.Latitude, fix.Longitude)
	}
	r.fixes = append(r.fixes, fix)
}

// Len returns the number of recorded fixes.
func (r *Route) Len() int {
	return len(r.fixes)
}

// Fixes returns a copy of the recorded fixes.
func (r *Route) Fixes() []domain.LocationFix {
	out := make([]domain.LocationFix, len(r.fixes))
	copy(out, r.fixes)
	return out
}

// First returns the earliest fix, if any.
func (r *Route) First() (domain.LocationFix, bool) {
	if len(r.fixes) == 0 {
		return domain.LocationFix{}, false
	}
	return r.fixes[0], true
}

// Last returns the most recent fix, if any.
func (r *Route) Last() (domain.LocationFix, bool) {
	if len(r.fixes) == 0 {
		return domain.LocationFix{}, false
	}
	return r.fixes[len(r.fixes)-1], true
}

// TotalDistanceKm sums the great-circle distance between consecutive fixes.
func (r *Route) TotalDistanceKm() float64 {
	return r.distanceKm
}

func totalDistanceKm(fixes []domain.LocationFix) float64 {
	total := 0.0
	for i := 1; i < len(fixes); i++ {
		prev, cur := fixes[i-1], fixes[i]
		total += geo.HaversineKm(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
	}
	return total
}
