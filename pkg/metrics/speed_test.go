package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/1F47E/geo-track-view/pkg/elevation"
	"github.com/1F47E/geo-track-view/pkg/geo"
	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeedProfile(t *testing.T) {
	profile := SpeedProfile(climbTrack(), elevation.DefaultDenoiser)

	require.Len(t, profile, 10)
	for i, s := range profile {
		assert.Equal(t, i+1, s.Index)
		assert.InDelta(t, float64(i+1)*100, s.Distance, 2)
		assert.InDelta(t, 5, s.Speed, 0.01)
		assert.InDelta(t, 5, s.Smoothed, 0.01)
	}
}

func TestSpeedProfileUntimedPoints(t *testing.T) {
	track := climbTrack()
	track.Points[5].Time = time.Time{}

	profile := SpeedProfile(track, elevation.DefaultDenoiser)
	require.Len(t, profile, 9)
	// The stretch over the untimed point is one 200m, 40s sample
	assert.Equal(t, 6, profile[4].Index)
	assert.InDelta(t, 600, profile[4].Distance, 1)
	assert.InDelta(t, 5, profile[4].Speed, 0.01)

	// Repeated timestamps give no sample
	track = climbTrack()
	track.Points[3].Time = track.Points[2].Time
	assert.Len(t, SpeedProfile(track, elevation.DefaultDenoiser), 9)
}

func TestSpeedProfileSuppressesGPSJump(t *testing.T) {
	points := make([]models.Point, 21)
	for i := range points {
		points[i] = models.Point{
			Coordinate: models.Coordinate{Lat: 46 + float64(i)*100/geo.MetersPerDegree, Lon: 7},
			Time:       start.Add(time.Duration(i) * 20 * time.Second),
		}
	}
	points[10].Lon += 1000 / (geo.MetersPerDegree * math.Cos(46*math.Pi/180))
	track := models.Track{Points: points}

	profile := SpeedProfile(track, elevation.DefaultDenoiser)
	require.Len(t, profile, 20)
	assert.Greater(t, profile[9].Speed, 40.0)
	assert.Greater(t, profile[10].Speed, 40.0)
	for _, s := range profile {
		assert.InDelta(t, 5, s.Smoothed, 0.1, "sample %d", s.Index)
	}

	assert.InDelta(t, 5, Compute(track, DefaultOptions).MaxSpeed, 0.1)
}

func TestSpeedProfileDegenerate(t *testing.T) {
	assert.Empty(t, SpeedProfile(models.Track{}, elevation.DefaultDenoiser))

	track := climbTrack()
	for i := range track.Points {
		track.Points[i].Time = time.Time{}
	}
	assert.Empty(t, SpeedProfile(track, elevation.DefaultDenoiser))
}
