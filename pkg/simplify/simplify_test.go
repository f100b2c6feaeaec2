package simplify

import (
	"math"
	"math/rand"
	"testing"

	"github.com/1F47E/geo-track-view/pkg/geo"
	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurveMinDistance(t *testing.T) {
	c := DefaultCurve

	assert.Equal(t, 0.0, c.MinDistance(18))
	assert.Equal(t, 0.0, c.MinDistance(20))
	assert.Equal(t, 1.0, c.MinDistance(17))
	assert.Equal(t, 31.0, c.MinDistance(13))
	assert.Equal(t, 0.0, c.MinDistance(math.NaN()))
	assert.Equal(t, 0.0, Curve{BaseMeters: 0, MaxZoom: 18}.MinDistance(3))

	// Monotonically non-increasing in zoom
	prev := math.Inf(1)
	for z := -2.0; z <= 20; z += 0.25 {
		d := c.MinDistance(z)
		assert.LessOrEqual(t, d, prev, "zoom %v", z)
		prev = d
	}
}

func TestByZoomMaxZoomIsNoop(t *testing.T) {
	tracks := randomTracks(rand.New(rand.NewSource(1)), 5, 200)
	out := ByZoom(tracks, DefaultCurve.MaxZoom, DefaultCurve)
	assert.Equal(t, tracks, out)
}

func TestByZoomSpacing(t *testing.T) {
	tracks := randomTracks(rand.New(rand.NewSource(2)), 5, 500)
	zoom := 12.0
	threshold := DefaultCurve.MinDistance(zoom)

	out := ByZoom(tracks, zoom, DefaultCurve)
	require.Len(t, out, len(tracks))

	for i, tr := range out {
		src := tracks[i].Points
		require.NotEmpty(t, tr.Points)
		assert.Less(t, len(tr.Points), len(src))
		assert.Equal(t, src[0], tr.Points[0])
		assert.Equal(t, src[len(src)-1], tr.Points[len(tr.Points)-1])

		// All consecutive kept points respect the threshold, except possibly
		// the forced final point.
		for j := 1; j < len(tr.Points)-1; j++ {
			d := geo.Distance(tr.Points[j-1].Coordinate, tr.Points[j].Coordinate)
			assert.GreaterOrEqual(t, d, threshold)
		}
	}
}

func TestByZoomProperties(t *testing.T) {
	tracks := randomTracks(rand.New(rand.NewSource(3)), 8, 300)

	for _, zoom := range []float64{0, 5, 10, 13.5, 16, 18, 22} {
		out := ByZoom(tracks, zoom, DefaultCurve)
		assert.Equal(t, out, ByZoom(tracks, zoom, DefaultCurve))
		for i := range tracks {
			assert.LessOrEqual(t, len(out[i].Points), len(tracks[i].Points))
			assertSubsequence(t, tracks[i].Points, out[i].Points)
			assert.Equal(t, tracks[i].Points[0], out[i].Points[0])
			assert.Equal(t, tracks[i].Points[len(tracks[i].Points)-1], out[i].Points[len(out[i].Points)-1])
		}
	}
}

func TestByZoomShortTracks(t *testing.T) {
	single := models.Point{Coordinate: models.Coordinate{Lat: 1, Lon: 1}}
	pair := []models.Point{single, {Coordinate: models.Coordinate{Lat: 1.000001, Lon: 1}}}

	out := ByZoom([]models.Track{
		{Name: "empty"},
		{Name: "single", Points: []models.Point{single}},
		{Name: "pair", Points: pair},
	}, 0, DefaultCurve)

	require.Len(t, out, 3)
	assert.Empty(t, out[0].Points)
	assert.Equal(t, []models.Point{single}, out[1].Points)
	assert.Equal(t, pair, out[2].Points)
	assert.Equal(t, "pair", out[2].Name)

	assert.Empty(t, ByZoom(nil, 10, DefaultCurve))
}

func TestByZoomDoesNotMutateInput(t *testing.T) {
	tracks := randomTracks(rand.New(rand.NewSource(4)), 1, 100)
	before := append([]models.Point(nil), tracks[0].Points...)

	out := ByZoom(tracks, 5, DefaultCurve)
	out[0].Points[0].Lat = 99

	assert.Equal(t, before, tracks[0].Points)
}

func randomTracks(r *rand.Rand, n, length int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		lat, lon := 46+r.Float64(), 7+r.Float64()
		points := make([]models.Point, length)
		for j := range points {
			lat += r.Float64() * 0.0003
			lon += (r.Float64() - 0.3) * 0.0003
			points[j] = models.Point{Coordinate: models.Coordinate{Lat: lat, Lon: lon}}
		}
		tracks[i] = models.Track{Points: points}
	}
	return tracks
}

func assertSubsequence(t *testing.T, full, sub []models.Point) {
	t.Helper()
	j := 0
	for i := 0; i < len(full) && j < len(sub); i++ {
		if full[i] == sub[j] {
			j++
		}
	}
	assert.Equal(t, len(sub), j, "output is not an ordered subsequence of the input")
}

func BenchmarkByZoom(b *testing.B) {
	tracks := randomTracks(rand.New(rand.NewSource(5)), 100, 2000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ByZoom(tracks, 12, DefaultCurve)
	}
}
