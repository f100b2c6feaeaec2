package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/1F47E/geo-track-view/pkg/geo"
	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

// climbTrack runs 1km north in 200s while climbing from 100m to 200m
func climbTrack() models.Track {
	points := make([]models.Point, 11)
	for i := range points {
		ele := 100 + float64(i)*10
		points[i] = models.Point{
			Coordinate: models.Coordinate{Lat: 46 + float64(i)*100/geo.MetersPerDegree, Lon: 7},
			Elevation:  &ele,
			Time:       start.Add(time.Duration(i) * 20 * time.Second),
		}
	}
	return models.Track{Name: "climb", Start: start, Points: points}
}

func TestCompute(t *testing.T) {
	track := climbTrack()
	m := Compute(track, DefaultOptions)

	assert.InDelta(t, 1000, m.Distance, 2)
	assert.True(t, m.HasTime)
	assert.Equal(t, 200*time.Second, m.Duration)
	assert.InDelta(t, 200/m.Distance*1000, m.Pace.Seconds(), 1e-6)
	assert.InDelta(t, 5, m.AvgSpeed, 0.02)
	assert.InDelta(t, 5, m.MaxSpeed, 0.02)

	assert.True(t, m.HasElevation)
	assert.InDelta(t, 110, m.MinElevation, 1e-9)
	assert.InDelta(t, 190, m.MaxElevation, 1e-9)
	assert.InDelta(t, 80, m.Gain, 1e-9)
	assert.Zero(t, m.Loss)

	// Points 100m apart never share a 50m cell
	assert.Equal(t, 11, m.DiscoveredCells)
	cellArea := 50.0 * 50.0 * math.Cos(46*math.Pi/180)
	assert.InDelta(t, 11*cellArea, m.DiscoveredArea, 11*cellArea*0.05)
}

func TestComputeRevisitDoesNotGrowArea(t *testing.T) {
	track := climbTrack()
	back := make([]models.Point, 0, len(track.Points)*2)
	back = append(back, track.Points...)
	for i := len(track.Points) - 1; i >= 0; i-- {
		back = append(back, models.Point{Coordinate: track.Points[i].Coordinate})
	}

	m := Compute(models.Track{Points: back}, DefaultOptions)
	assert.Equal(t, 11, m.DiscoveredCells)
	assert.InDelta(t, 2*Compute(track, DefaultOptions).Distance, m.Distance, 1e-6)
}

func TestComputeWithoutTimeOrElevation(t *testing.T) {
	track := climbTrack()
	for i := range track.Points {
		track.Points[i].Time = time.Time{}
		track.Points[i].Elevation = nil
	}

	m := Compute(track, DefaultOptions)
	assert.Positive(t, m.Distance)
	assert.False(t, m.HasTime)
	assert.False(t, m.HasElevation)
	assert.Zero(t, m.Duration)
	assert.Zero(t, m.Pace)
	assert.Zero(t, m.AvgSpeed)
	assert.Zero(t, m.Gain)

	rows := m.Rows()
	require.Len(t, rows, 10)
	assert.Equal(t, [2]string{"Pace", "-"}, rows[1])
	assert.Equal(t, [2]string{"Min ASML", "-"}, rows[6])
}

func TestComputeEmptyTrack(t *testing.T) {
	m := Compute(models.Track{}, DefaultOptions)
	assert.Equal(t, Metrics{}, m)

	single := Compute(models.Track{Points: []models.Point{{Time: start}}}, DefaultOptions)
	assert.False(t, single.HasTime)
	assert.Equal(t, 1, single.DiscoveredCells)

	noArea := Compute(climbTrack(), Options{})
	assert.Zero(t, noArea.DiscoveredCells)
}

func TestFormat(t *testing.T) {
	testCases := []struct {
		name     string
		got      string
		expected string
	}{
		{"distance", FormatDistance(12345), "12.34km"},
		{"distance grouping", FormatDistance(1234567), "1,234.56km"},
		{"distance whole", FormatDistance(5000), "5km"},
		{"elevation", FormatElevation(1234.6), "1,235m"},
		{"elevation negative", FormatElevation(-12.2), "-12m"},
		{"pace", FormatPace(5*time.Minute + 32*time.Second), "5:32/km"},
		{"pace unknown", FormatPace(0), "-"},
		{"speed", FormatSpeed(5), "18km/h"},
		{"speed fraction", FormatSpeed(2.5), "9km/h"},
		{"speed decimals", FormatSpeed(3), "10.8km/h"},
		{"duration", FormatDuration(time.Hour + 2*time.Minute + 3*time.Second), "1:02:03"},
		{"duration short", FormatDuration(9*time.Minute + 5*time.Second), "9:05"},
		{"area small", FormatArea(21234.4), "21,234m²"},
		{"area large", FormatArea(2500000), "2.5km²"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.got)
		})
	}
}

func BenchmarkCompute(b *testing.B) {
	track := climbTrack()
	for len(track.Points) < 5000 {
		track.Points = append(track.Points, track.Points...)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Compute(track, DefaultOptions)
	}
}
