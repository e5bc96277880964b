package geo

import (
	"math"
	"testing"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		want       float64
		tolerance  float64
	}{
		{"identical points", 37.0, -122.0, 37.0, -122.0, 0, 0},
		{"short hop east", 37.0, -122.0, 37.0, -121.991, 0.7993, 0.001},
		{"one degree of latitude", 0, 0, 1, 0, 111.195, 0.01},
		{"jakarta to bandung", -6.2, 106.816, -6.9175, 107.6191, 119.3, 2},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := HaversineKm(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			if math.Abs(got-tc.want) > tc.tolerance {
				t.Errorf("HaversineKm = %f, want %f ± %f", got, tc.want, tc.tolerance)
			}
		})
	}
}

func TestHaversineKm_SymmetricAndNonNegative(t *testing.T) {
	t.Parallel()

	points := [][2]float64{
		{37.0, -122.0},
		{-33.8688, 151.2093},
		{51.5074, -0.1278},
		{0, 179.9},
		{0, -179.9},
	}

	for i := range points {
		for j := range points {
			a, b := points[i], points[j]
			ab := HaversineKm(a[0], a[1], b[0], b[1])
			ba := HaversineKm(b[0], b[1], a[0], a[1])
			if ab < 0 {
				t.Errorf("distance(%v, %v) is negative: %f", a, b, ab)
			}
			if math.Abs(ab-ba) > 1e-9 {
				t.Errorf("distance not symmetric for %v, %v: %f vs %f", a, b, ab, ba)
			}
		}
	}
}

func TestValidCoordinates(t *testing.T) {
	t.Parallel()

	if !ValidLatitude(90) || !ValidLatitude(-90) || ValidLatitude(90.1) {
		t.Error("latitude bounds are wrong")
	}
	if !ValidLongitude(180) || !ValidLongitude(-180) || ValidLongitude(-180.5) {
		t.Error("longitude bounds are wrong")
	}
}
