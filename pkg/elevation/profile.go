package elevation

import (
	"github.com/1F47E/geo-track-view/pkg/geo"
	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/montanaflynn/stats"
)

// DomainPadding is added above and below the profile extremes
const DomainPadding = 100.0

// ProfilePoint is one sample of an elevation chart
type ProfilePoint struct {
	// Index of the source point in the track
	Index int `json:"index"`
	// Distance from the track start in meters
	Distance  float64 `json:"distance"`
	Elevation float64 `json:"elevation"`
	Smoothed  float64 `json:"smoothed"`
}

// Profile builds a (distance, smoothed elevation) series for a track.
// Points without elevation still advance the distance but are left out.
func Profile(track models.Track, d Denoiser) []ProfilePoint {
	profile := make([]ProfilePoint, 0, len(track.Points))
	raw := make([]float64, 0, len(track.Points))

	var distance float64
	for i, p := range track.Points {
		if i > 0 {
			distance += geo.Distance(track.Points[i-1].Coordinate, p.Coordinate)
		}
		if !p.HasElevation() {
			continue
		}
		profile = append(profile, ProfilePoint{Index: i, Distance: distance, Elevation: *p.Elevation})
		raw = append(raw, *p.Elevation)
	}

	for i, v := range d.Denoise(raw) {
		profile[i].Smoothed = v
	}
	return profile
}

// Domain returns the chart y-range for the smoothed profile.
// An empty profile yields (0, 0) and ok false.
func Domain(profile []ProfilePoint) (lo, hi float64, ok bool) {
	if len(profile) == 0 {
		return 0, 0, false
	}
	smoothed := make(stats.Float64Data, len(profile))
	for i, p := range profile {
		smoothed[i] = p.Smoothed
	}
	min, err := smoothed.Min()
	if err != nil {
		return 0, 0, false
	}
	max, err := smoothed.Max()
	if err != nil {
		return 0, 0, false
	}
	return min - DomainPadding, max + DomainPadding, true
}

// Smoothed returns the denoised elevations of the points that carry one
func Smoothed(track models.Track, d Denoiser) []float64 {
	raw := make([]float64, 0, len(track.Points))
	for _, p := range track.Points {
		if p.HasElevation() {
			raw = append(raw, *p.Elevation)
		}
	}
	return d.Denoise(raw)
}
