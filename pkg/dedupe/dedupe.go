// Package dedupe removes points that revisit ground already covered by an
// earlier point of the same or a previous track.
package dedupe

import (
	"math"

	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/1F47E/geo-track-view/pkg/tile"
)

// DefaultTolerances are the fine and coarse passes applied before rendering
var DefaultTolerances = []float64{50, 70}

// PassStats describes one deduplication pass
type PassStats struct {
	ToleranceMeters float64 `json:"tolerance_meters"`
	InputPoints     int     `json:"input_points"`
	OutputPoints    int     `json:"output_points"`
}

// Removed returns the number of points the pass dropped
func (s PassStats) Removed() int {
	return s.InputPoints - s.OutputPoints
}

// ByTile keeps only the first point seen in each tolerance-sized cell.
//
// Tracks are processed in input order and the set of seen cells is shared
// across all of them, so a track retracing an earlier one collapses. The
// input is never modified; surviving points keep their relative order.
func ByTile(tracks []models.Track, toleranceMeters float64) []models.Track {
	out := make([]models.Track, len(tracks))
	if math.IsNaN(toleranceMeters) || toleranceMeters <= 0 {
		for i, t := range tracks {
			out[i] = t.WithPoints(append([]models.Point(nil), t.Points...))
		}
		return out
	}

	res := tile.ForTolerance(toleranceMeters)
	seen := make(map[tile.ID]struct{}, models.CountPoints(tracks))

	for i, t := range tracks {
		kept := make([]models.Point, 0, len(t.Points))
		for _, p := range t.Points {
			id := tile.Of(p.Coordinate, res)
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			kept = append(kept, p)
		}
		out[i] = t.WithPoints(kept)
	}
	return out
}

// Passes applies ByTile once per tolerance, in order, and reports each pass
func Passes(tracks []models.Track, tolerances ...float64) ([]models.Track, []PassStats) {
	stats := make([]PassStats, 0, len(tolerances))
	current := tracks
	for _, tol := range tolerances {
		before := models.CountPoints(current)
		current = ByTile(current, tol)
		stats = append(stats, PassStats{
			ToleranceMeters: tol,
			InputPoints:     before,
			OutputPoints:    models.CountPoints(current),
		})
	}
	if len(tolerances) == 0 {
		current = ByTile(tracks, 0)
	}
	return current, stats
}
