package domain

import "time"

// Profile holds the personal details a rider keeps with their account.
type Profile struct {
	RiderID          string
	Name             string
	Age              int
	WeightKg         float64
	HeightCm         float64
	BloodType        string
	EmergencyContact string
	EmergencyPhone   string
	PictureURL       string
	UpdatedAt        time.Time
}
