package metrics

import (
	"github.com/1F47E/geo-track-view/pkg/elevation"
	"github.com/1F47E/geo-track-view/pkg/geo"
	"github.com/1F47E/geo-track-view/pkg/models"
)

// SpeedPoint is one sample of a speed chart
type SpeedPoint struct {
	// Index of the point that closes the segment
	Index int `json:"index"`
	// Distance from the track start in meters
	Distance float64 `json:"distance"`
	// Speed over the segment from the previous timestamped point, m/s
	Speed    float64 `json:"speed"`
	Smoothed float64 `json:"smoothed"`
}

// SpeedProfile builds a (distance, smoothed speed) series for a track.
// Each sample covers the stretch since the previous timestamped point;
// untimed points only add distance and pairs without elapsed time are skipped.
func SpeedProfile(track models.Track, d elevation.Denoiser) []SpeedPoint {
	return speedProfile(track.Points, d)
}

func speedProfile(points []models.Point, d elevation.Denoiser) []SpeedPoint {
	var (
		profile  []SpeedPoint
		raw      []float64
		distance float64
		sinceFix float64
	)
	prev := -1
	for i, p := range points {
		if i > 0 {
			step := geo.Distance(points[i-1].Coordinate, p.Coordinate)
			distance += step
			sinceFix += step
		}
		if p.Time.IsZero() {
			continue
		}
		if prev >= 0 {
			if dt := p.Time.Sub(points[prev].Time).Seconds(); dt > 0 {
				speed := sinceFix / dt
				profile = append(profile, SpeedPoint{Index: i, Distance: distance, Speed: speed})
				raw = append(raw, speed)
			}
		}
		prev = i
		sinceFix = 0
	}

	for i, v := range d.Denoise(raw) {
		profile[i].Smoothed = v
	}
	return profile
}
