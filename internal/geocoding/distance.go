package geocoding

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b Coordinates) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// RoundKm rounds a distance to whole kilometres, halves away from zero.
func RoundKm(km float64) int {
	return int(math.Round(km))
}

// FormatDistance renders a distance for display. Nil yields "".
func FormatDistance(km *int) string {
	switch {
	case km == nil:
		return ""
	case *km == 0:
		return "Stessa città"
	default:
		return fmt.Sprintf("%d km", *km)
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
