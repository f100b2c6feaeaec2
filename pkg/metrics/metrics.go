// Package metrics computes the summary figures shown for a selected track.
package metrics

import (
	"time"

	"github.com/1F47E/geo-track-view/pkg/elevation"
	"github.com/1F47E/geo-track-view/pkg/geo"
	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/1F47E/geo-track-view/pkg/tile"
	"github.com/1F47E/geo-track-view/pkg/view"
	"github.com/montanaflynn/stats"
	orbgeo "github.com/paulmach/orb/geo"
)

// Options controls metric computation
type Options struct {
	// DiscoveryMeters is the cell size used to measure discovered area
	DiscoveryMeters float64
	// Denoiser cleans the elevation and speed series before extremes
	// and gain/loss are taken
	Denoiser elevation.Denoiser
}

// DefaultOptions matches the finer deduplication pass
var DefaultOptions = Options{
	DiscoveryMeters: 50,
	Denoiser:        elevation.DefaultDenoiser,
}

// Metrics summarizes one track
type Metrics struct {
	// Distance in meters
	Distance float64 `json:"distance"`
	// Duration between the first and last timestamped point
	Duration time.Duration `json:"duration"`
	// Pace is the time per kilometer, zero without timestamps
	Pace time.Duration `json:"pace"`
	// AvgSpeed and MaxSpeed are in meters per second
	AvgSpeed float64 `json:"avg_speed"`
	MaxSpeed float64 `json:"max_speed"`

	// DiscoveredCells is the number of distinct cells visited
	DiscoveredCells int `json:"discovered_cells"`
	// DiscoveredArea is the ground area of those cells in square meters
	DiscoveredArea float64 `json:"discovered_area"`

	// Elevation figures use the smoothed series
	MinElevation float64 `json:"min_elevation"`
	MaxElevation float64 `json:"max_elevation"`
	Gain         float64 `json:"gain"`
	Loss         float64 `json:"loss"`

	HasTime      bool `json:"has_time"`
	HasElevation bool `json:"has_elevation"`
}

// Compute derives the metrics for a track. Missing timestamps or
// elevations leave the related figures at zero.
func Compute(track models.Track, opts Options) Metrics {
	m := Metrics{Distance: geo.PathLength(track.Points)}

	m.DiscoveredCells, m.DiscoveredArea = discovered(track.Points, opts.DiscoveryMeters)
	timing(track.Points, opts.Denoiser, &m)

	smoothed := stats.Float64Data(elevation.Smoothed(track, opts.Denoiser))
	if len(smoothed) > 0 {
		m.HasElevation = true
		m.MinElevation, _ = smoothed.Min()
		m.MaxElevation, _ = smoothed.Max()
		for i := 1; i < len(smoothed); i++ {
			if d := smoothed[i] - smoothed[i-1]; d > 0 {
				m.Gain += d
			} else {
				m.Loss -= d
			}
		}
	}
	return m
}

// discovered counts distinct cells and sums their ground area
func discovered(points []models.Point, meters float64) (int, float64) {
	if meters <= 0 {
		return 0, 0
	}
	res := tile.ForTolerance(meters)
	seen := make(map[tile.ID]struct{}, len(points))
	var area float64
	for _, p := range points {
		id := tile.Of(p.Coordinate, res)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		area += orbgeo.Area(view.ToOrb(tile.Bounds(id, res)))
	}
	return len(seen), area
}

// timing fills duration, pace and speeds from timestamped points
func timing(points []models.Point, d elevation.Denoiser, m *Metrics) {
	var first, last time.Time
	for _, p := range points {
		if p.Time.IsZero() {
			continue
		}
		if first.IsZero() {
			first = p.Time
		}
		last = p.Time
	}

	if first.IsZero() || !last.After(first) {
		return
	}
	m.HasTime = true
	m.Duration = last.Sub(first)
	if m.Distance > 0 {
		m.AvgSpeed = m.Distance / m.Duration.Seconds()
		m.Pace = time.Duration(float64(m.Duration) / (m.Distance / 1000))
	}
	if profile := speedProfile(points, d); len(profile) > 0 {
		// Smoothing keeps a single GPS jump from defining the top speed
		m.MaxSpeed = profile[0].Smoothed
		for _, s := range profile[1:] {
			m.MaxSpeed = max(m.MaxSpeed, s.Smoothed)
		}
	}
}
