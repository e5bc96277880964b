package service

import (
	"fmt"
	"time"

	"biketrail/internal/domain"
)

// ShareService formats saved rides for sharing outside the app.
type ShareService struct{}

// NewShareService creates a new ShareService.
func NewShareService() *ShareService {
	return &ShareService{}
}

// FormatShareMessage returns the short message posted to the share sheet.
func (s *ShareService) FormatShareMessage(ride *domain.Ride) string {
	stats := ride.Statistics.Rounded()
	return "🚴‍♂️ Check out my ride on BikeTrail!\n" +
		"  - Distance: " + formatFloat(stats.DistanceKm) + " km\n" +
		"  - Time: " + formatFloat(stats.ActiveTimeHours) + " hours\n" +
		"  - Average Speed: " + formatFloat(stats.AverageSpeedKmh) + " km/h\n" +
		"  - Halts: " + fmt.Sprintf("%d", stats.PausedSeconds) + " seconds\n" +
		"  Join me on BikeTrail!"
}

// FormatRideSummary formats the ride as a printable card (for email/print).
func (s *ShareService) FormatRideSummary(ride *domain.Ride) string {
	stats := ride.Statistics.Rounded()
	return `
=====================================
        BIKETRAIL RIDE SUMMARY
=====================================
Ride ID: ` + ride.ID + `
Date: ` + ride.StartedAt.Format("Jan 02, 2006 3:04 PM") + `

ROUTE
-------------------------------------
Start:       ` + formatPoint(ride.Route, 0) + `
Finish:      ` + formatPoint(ride.Route, len(ride.Route)-1) + `
Points:      ` + fmt.Sprintf("%d", len(ride.Route)) + `

STATISTICS
-------------------------------------
Distance:      ` + formatFloat(stats.DistanceKm) + ` km
Riding time:   ` + formatDuration(stats.ActiveDuration()) + `
Average speed: ` + formatFloat(stats.AverageSpeedKmh) + ` km/h
Halts:         ` + formatDuration(time.Duration(stats.PausedSeconds)*time.Second) + `

=====================================
         Keep on riding!
=====================================
`
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	return fmt.Sprintf("%d min", minutes)
}

func formatPoint(route []domain.LocationFix, i int) string {
	if i < 0 || i >= len(route) {
		return "-"
	}
	return "(" + fmt.Sprintf("%.5f", route[i].Latitude) + ", " + fmt.Sprintf("%.5f", route[i].Longitude) + ")"
}
