// Package simplify thins tracks so that retained points are a zoom-dependent
// minimum distance apart.
package simplify

import (
	"math"

	"github.com/1F47E/geo-track-view/pkg/geo"
	"github.com/1F47E/geo-track-view/pkg/models"
)

// Curve maps a zoom level to the minimum spacing between retained points:
//
//	MinDistance(z) = BaseMeters * (2^(MaxZoom-z) - 1)   for z < MaxZoom
//	MinDistance(z) = 0                                   otherwise
//
// Each zoom-out step roughly doubles the spacing, matching how the ground
// size of a screen pixel doubles.
type Curve struct {
	BaseMeters float64 `yaml:"base_meters"`
	MaxZoom    float64 `yaml:"max_zoom"`
}

// DefaultCurve keeps spacing around one to two pixels on standard web maps
var DefaultCurve = Curve{BaseMeters: 1, MaxZoom: 18}

// MinDistance returns the spacing threshold in meters for the zoom level
func (c Curve) MinDistance(zoom float64) float64 {
	if math.IsNaN(zoom) || zoom >= c.MaxZoom || c.BaseMeters <= 0 {
		return 0
	}
	d := c.BaseMeters * (math.Exp2(c.MaxZoom-zoom) - 1)
	if math.IsInf(d, 1) {
		return math.MaxFloat64
	}
	return d
}

// ByZoom simplifies every track independently for the given zoom.
// The first and last point of each track are always retained.
func ByZoom(tracks []models.Track, zoom float64, curve Curve) []models.Track {
	threshold := curve.MinDistance(zoom)
	out := make([]models.Track, len(tracks))
	for i, t := range tracks {
		out[i] = t.WithPoints(byDistance(t.Points, threshold))
	}
	return out
}

// byDistance performs a single linear pass keeping points at least
// threshold meters from the previously kept point.
func byDistance(points []models.Point, threshold float64) []models.Point {
	if len(points) == 0 {
		return []models.Point{}
	}

	kept := make([]models.Point, 0, len(points))
	kept = append(kept, points[0])
	lastKept := 0

	for i := 1; i < len(points); i++ {
		if geo.Distance(points[lastKept].Coordinate, points[i].Coordinate) >= threshold {
			kept = append(kept, points[i])
			lastKept = i
		}
	}

	if lastKept != len(points)-1 {
		kept = append(kept, points[len(points)-1])
	}
	return kept
}
