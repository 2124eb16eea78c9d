package geo

import (
	"math"

	"github.com/bookline/backend/internal/models"
)

const earthRadiusMiles = 3958.8

// Distance returns the great-circle distance in miles between two points.
func Distance(a, b models.Coordinate) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLon := degreesToRadians(b.Lon - a.Lon)

	latA := degreesToRadians(a.Lat)
	latB := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(latA)*math.Cos(latB)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMiles * c
}

// Confidence maps a distance within a search radius onto [0,1]. The curve is
// linear: 1 at the center, 0 at and beyond the radius.
func Confidence(distMiles, radiusMiles float64) float64 {
	if radiusMiles <= 0 {
		return 0
	}
	score := 1 - distMiles/radiusMiles
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}
