package location

import (
	"math"
	"strconv"
	"strings"
	"time"

	"biketrail/internal/domain"
)

const knotsToMps = 0.514444

// ParseRMC converts a $GPRMC or $GNRMC sentence into a fix. It returns false
// for other sentences, bad checksums and sentences without a valid fix.
func ParseRMC(line string) (domain.LocationFix, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$GPRMC") && !strings.HasPrefix(line, "$GNRMC") {
		return domain.LocationFix{}, false
	}
	if !validateNMEAChecksum(line) {
		return domain.LocationFix{}, false
	}

	// $GPRMC,hhmmss.ss,A,llll.ll,a,yyyyy.yy,a,x.x,x.x,ddmmyy,x.x,a*hh
	parts := splitNMEA(line)
	if len(parts) < 10 || parts[2] != "A" {
		return domain.LocationFix{}, false
	}

	ts, ok := parseNMEATime(parts[1], parts[9])
	if !ok {
		return domain.LocationFix{}, false
	}

	lat, ok := parseNMEACoord(parts[3], parts[4], "N", "S")
	if !ok || lat > 90 {
		return domain.LocationFix{}, false
	}
	lng, ok := parseNMEACoord(parts[5], parts[6], "E", "W")
	if !ok || lng > 180 {
		return domain.LocationFix{}, false
	}

	fix := domain.LocationFix{
		Latitude:        lat,
		Longitude:       lng,
		TimestampMillis: ts.UnixMilli(),
	}
	if knots, err := strconv.ParseFloat(parts[7], 64); err == nil {
		speed := knots * knotsToMps
		fix.SpeedMps = &speed
	}
	return fix, true
}

// splitNMEA splits a sentence and strips the checksum suffix.
func splitNMEA(line string) []string {
	if idx := strings.Index(line, "*"); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimPrefix(line, "$")
	return strings.Split(line, ",")
}

// parseNMEACoord converts NMEA ddmm.mmmm format to decimal degrees.
// dir must be pos or neg; an empty or malformed field is rejected.
func parseNMEACoord(raw, dir, pos, neg string) (float64, bool) {
	if dir != pos && dir != neg {
		return 0, false
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil || val < 0 || math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, false
	}
	deg := math.Floor(val / 100)
	minutes := val - deg*100
	if minutes >= 60 {
		return 0, false
	}
	result := deg + minutes/60

	if dir == neg {
		result = -result
	}
	return result, true
}

// parseNMEATime combines hhmmss.ss and ddmmyy into a UTC time.
func parseNMEATime(clock, date string) (time.Time, bool) {
	if len(clock) < 6 || len(date) != 6 {
		return time.Time{}, false
	}
	t, err := time.Parse("020106 150405", date+" "+clock[:6])
	if err != nil {
		return time.Time{}, false
	}
	if len(clock) > 7 && clock[6] == '.' {
		if frac, err := strconv.ParseFloat("0"+clock[6:], 64); err == nil {
			t = t.Add(time.Duration(frac * float64(time.Second)))
		}
	}
	return t.UTC(), true
}

// validateNMEAChecksum checks the XOR checksum after *.
func validateNMEAChecksum(line string) bool {
	idx := strings.Index(line, "*")
	if idx < 0 || idx+3 > len(line) {
		return false
	}
	body := line[1:idx]
	var calc byte
	for i := 0; i < len(body); i++ {
		calc ^= body[i]
	}
	expected, err := strconv.ParseUint(line[idx+1:idx+3], 16, 8)
	if err != nil {
		return false
	}
	return byte(expected) == calc
}
