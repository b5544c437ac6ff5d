// Package geo computes the derived geometry shown between two paired points.
package geo

import (
	"fmt"
	"math"
	"time"

	"github.com/sxk/signal-link/internal/model"
)

const (
	EarthRadiusKm  = 6371.0
	DriveSpeedKmph = 40.0
)

var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

func deg2rad(deg float64) float64 {
	return deg * (math.Pi / 180)
}

// Distance returns the haversine great-circle distance in kilometers.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLng := deg2rad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Bearing returns the initial forward azimuth from point 1 to point 2 in
// degrees within [0, 360). Identical points yield 0.
func Bearing(lat1, lng1, lat2, lng2 float64) float64 {
	if lat1 == lat2 && lng1 == lng2 {
		return 0
	}
	y := math.Sin(deg2rad(lng2-lng1)) * math.Cos(deg2rad(lat2))
	x := math.Cos(deg2rad(lat1))*math.Sin(deg2rad(lat2)) -
		math.Sin(deg2rad(lat1))*math.Cos(deg2rad(lat2))*math.Cos(deg2rad(lng2-lng1))

	bearing := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(bearing+360, 360)
}

// Compass rounds a bearing to the nearest of the eight compass points.
func Compass(bearing float64) string {
	if math.IsNaN(bearing) {
		return compassPoints[0]
	}
	normalized := math.Mod(math.Mod(bearing, 360)+360, 360)
	index := int(math.Round(normalized/45)) % 8
	return compassPoints[index]
}

// DriveMinutes estimates driving time at DriveSpeedKmph, never less than one minute.
func DriveMinutes(distanceKm float64) int {
	minutes := int(math.Round(distanceKm / DriveSpeedKmph * 60))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Between computes the geometry from mine to partner.
func Between(mine, partner model.LocationPoint) model.Geometry {
	distance := Distance(mine.Lat, mine.Lng, partner.Lat, partner.Lng)
	bearing := Bearing(mine.Lat, mine.Lng, partner.Lat, partner.Lng)
	return model.Geometry{
		DistanceKm:   distance,
		BearingDeg:   bearing,
		Compass:      Compass(bearing),
		DriveMinutes: DriveMinutes(distance),
	}
}

// FormatKm renders a distance as meters below one kilometer, else with one decimal.
func FormatKm(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%.0fm", km*1000)
	}
	return fmt.Sprintf("%.1fkm", km)
}

// FormatAgo renders how long ago t was relative to now.
func FormatAgo(t, now time.Time) string {
	mins := int(now.Sub(t) / time.Minute)
	switch {
	case mins < 1:
		return "Just now"
	case mins == 1:
		return "1 min ago"
	case mins < 60:
		return fmt.Sprintf("%d mins ago", mins)
	}
	hrs := mins / 60
	if hrs == 1 {
		return "1 hr ago"
	}
	return fmt.Sprintf("%d hrs ago", hrs)
}
