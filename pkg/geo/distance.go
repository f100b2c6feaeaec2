// Package geo provides the great-circle primitives shared by the
// simplification, deduplication and metrics code.
package geo

import (
	"math"

	"github.com/1F47E/geo-track-view/pkg/models"
)

const (
	// EarthRadius is the mean Earth radius in meters
	EarthRadius = 6371000.0
	// MetersPerDegree is the length of one degree of latitude in meters
	MetersPerDegree = 111320.0
)

// Distance calculates the haversine distance between two coordinates in meters
func Distance(a, b models.Coordinate) float64 {
	if a == b {
		return 0
	}

	lat1Rad := a.Lat * math.Pi / 180.0
	lat2Rad := b.Lat * math.Pi / 180.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180.0
	dLon := (b.Lon - a.Lon) * math.Pi / 180.0

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1Rad)*math.Cos(lat2Rad)*sinLon*sinLon

	// Rounding can push h slightly outside [0, 1] for antipodal points
	h = clamp(h, 0, 1)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	d := EarthRadius * c
	if math.IsNaN(d) {
		return 0
	}
	return d
}

// PathLength returns the summed distance along consecutive points
func PathLength(points []models.Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1].Coordinate, points[i].Coordinate)
	}
	return total
}

// Bearing computes the initial bearing from a to b in degrees [0, 360)
func Bearing(a, b models.Coordinate) float64 {
	lat1Rad := a.Lat * math.Pi / 180
	lat2Rad := b.Lat * math.Pi / 180
	deltaLonRad := (b.Lon - a.Lon) * math.Pi / 180

	y := math.Sin(deltaLonRad) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(deltaLonRad)

	bearingDeg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(bearingDeg+360, 360)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
