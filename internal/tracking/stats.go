package tracking

import "biketrail/internal/domain"

const millisPerHour = 3_600_000

// Compute derives ride statistics from a route and the seconds spent paused.
//
// With fewer than two fixes nothing but the pause total is reported. When
// the pause total covers the whole wall-clock span of the route, distance is
// still reported but speed and active time are zero.
func Compute(fixes []domain.LocationFix, pausedSeconds int64) domain.RideStatistics {
	stats := domain.RideStatistics{PausedSeconds: pausedSeconds}
	if len(fixes) < 2 {
		return stats
	}

	stats.DistanceKm = totalDistanceKm(fixes)

	wallClockMs := fixes[len(fixes)-1].TimestampMillis - fixes[0].TimestampMillis
	activeMs := wallClockMs - pausedSeconds*1000
	if activeMs <= 0 {
		return stats
	}

	stats.ActiveTimeHours = float64(activeMs) / millisPerHour
	stats.AverageSpeedKmh = stats.DistanceKm / stats.ActiveTimeHours
	return stats
}
