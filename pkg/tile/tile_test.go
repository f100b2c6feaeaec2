package tile

import (
	"math"
	"math/rand"
	"testing"

	"github.com/1F47E/geo-track-view/pkg/geo"
	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForZoom(t *testing.T) {
	assert.Equal(t, Resolution(360), ForZoom(0, 1))
	assert.Equal(t, Resolution(180), ForZoom(1, 1))
	assert.Equal(t, Resolution(360.0/65536), ForZoom(16, 1))
	assert.Equal(t, Resolution(360.0/65536/4), ForZoom(16, 4))
	// Fractional zoom uses the enclosing integer level
	assert.Equal(t, ForZoom(13, 1), ForZoom(13.7, 1))
	assert.True(t, ForZoom(math.NaN(), 0).Valid())
}

func TestForTolerance(t *testing.T) {
	res := ForTolerance(50)
	assert.InDelta(t, 50, float64(res)*geo.MetersPerDegree, 1e-9)
	assert.False(t, ForTolerance(0).Valid())
	assert.False(t, ForTolerance(-1).Valid())
	assert.Equal(t, MinResolution, ForTolerance(1e-15))
}

func TestOfTinyResolution(t *testing.T) {
	a := models.Coordinate{Lat: 50.45, Lon: 30.52}
	b := models.Coordinate{Lat: -33.86, Lon: 151.21}

	for _, res := range []Resolution{ForTolerance(1e-15), Resolution(1e-300), ForZoom(30, math.MaxInt32)} {
		idA, idB := Of(a, res), Of(b, res)
		assert.NotEqual(t, idA, idB)
		assert.Positive(t, idA.X)
		assert.Positive(t, idB.Y)
		assert.Less(t, idB.X, res.Columns())
	}
}

func TestOfDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	res := ForTolerance(50)
	for i := 0; i < 1000; i++ {
		c := models.Coordinate{Lat: r.Float64()*180 - 90, Lon: r.Float64()*360 - 180}
		assert.Equal(t, Of(c, res), Of(c, res))
	}
}

func TestOfCellContainsCoordinate(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	resolutions := []Resolution{ForZoom(16, 1), ForZoom(10, 2), ForTolerance(70)}

	for _, res := range resolutions {
		for i := 0; i < 500; i++ {
			c := models.Coordinate{Lat: r.Float64()*170 - 85, Lon: r.Float64()*358 - 179}
			b := Bounds(Of(c, res), res)
			assert.GreaterOrEqual(t, c.Lat, b.SouthWest.Lat-1e-9)
			assert.Less(t, c.Lat, b.NorthEast.Lat+1e-9)
			assert.GreaterOrEqual(t, c.Lon, b.SouthWest.Lon-1e-9)
			assert.Less(t, c.Lon, b.NorthEast.Lon+1e-9)
		}
	}
}

func TestOfCollapsesNearbyPoints(t *testing.T) {
	res := ForTolerance(50)
	center := Center(ID{X: 800000, Y: 300000}, res)

	// Half a meter away stays in the same cell when starting from the center
	near := models.Coordinate{Lat: center.Lat + 0.5/geo.MetersPerDegree, Lon: center.Lon}
	assert.Equal(t, Of(center, res), Of(near, res))

	// A full cell away never does
	far := models.Coordinate{Lat: center.Lat + float64(res), Lon: center.Lon}
	assert.NotEqual(t, Of(center, res), Of(far, res))
}

func TestOfIsTotal(t *testing.T) {
	res := ForZoom(12, 1)
	testCases := []struct {
		name string
		c    models.Coordinate
	}{
		{"north pole", models.Coordinate{Lat: 90, Lon: 0}},
		{"south pole", models.Coordinate{Lat: -90, Lon: 0}},
		{"antimeridian east", models.Coordinate{Lat: 0, Lon: 180}},
		{"antimeridian west", models.Coordinate{Lat: 0, Lon: -180}},
		{"out of range lon", models.Coordinate{Lat: 10, Lon: 540}},
		{"out of range lat", models.Coordinate{Lat: 95, Lon: 10}},
		{"nan", models.Coordinate{Lat: math.NaN(), Lon: math.NaN()}},
		{"inf", models.Coordinate{Lat: math.Inf(1), Lon: math.Inf(-1)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id := Of(tc.c, res)
			assert.Equal(t, id, Of(tc.c, res))
			assert.GreaterOrEqual(t, id.X, int64(0))
			assert.Less(t, id.X, res.Columns())
			assert.GreaterOrEqual(t, id.Y, int64(0))
		})
	}

	// Longitude wraps: 180 and -180 share a column
	assert.Equal(t, Of(models.Coordinate{Lon: 180}, res), Of(models.Coordinate{Lon: -180}, res))
	// Invalid resolution degrades to one cell per world
	assert.Equal(t, ID{X: 0, Y: 0}, Of(models.Coordinate{Lat: -45, Lon: 100}, Resolution(0)))
}

func TestRangesForBounds(t *testing.T) {
	res := Resolution(1)

	t.Run("simple", func(t *testing.T) {
		b := models.ViewportBounds{North: 2.5, South: 0.5, East: 3.5, West: 1.5}
		ranges := RangesForBounds(b, res)
		require.Len(t, ranges, 1)
		assert.Equal(t, Range{MinX: 181, MaxX: 183, MinY: 90, MaxY: 92}, ranges[0])
		assert.Equal(t, int64(9), CountForBounds(b, res))
	})

	t.Run("antimeridian", func(t *testing.T) {
		b := models.ViewportBounds{North: 1, South: 0, East: -178.5, West: 178.5}
		ranges := RangesForBounds(b, res)
		require.Len(t, ranges, 2)
		assert.Equal(t, int64(358), ranges[0].MinX)
		assert.Equal(t, int64(359), ranges[0].MaxX)
		assert.Equal(t, int64(0), ranges[1].MinX)
		assert.Equal(t, int64(1), ranges[1].MaxX)
	})

	t.Run("longitudes past 180", func(t *testing.T) {
		b := models.ViewportBounds{North: 1, South: 0, East: 181.5, West: 178.5}
		ranges := RangesForBounds(b, res)
		require.Len(t, ranges, 2)
		assert.True(t, ranges[1].Contains(Of(models.Coordinate{Lat: 0.5, Lon: -179}, res)))
	})

	t.Run("whole world", func(t *testing.T) {
		b := models.ViewportBounds{North: 90, South: -90, East: 180, West: -180}
		ranges := RangesForBounds(b, res)
		require.Len(t, ranges, 1)
		assert.Equal(t, int64(0), ranges[0].MinX)
		assert.Equal(t, int64(359), ranges[0].MaxX)
	})

	t.Run("invalid", func(t *testing.T) {
		assert.Empty(t, RangesForBounds(models.ViewportBounds{North: 0, South: 1}, res))
		assert.Empty(t, RangesForBounds(models.ViewportBounds{North: math.NaN()}, res))
		assert.Equal(t, int64(0), CountForBounds(models.ViewportBounds{North: math.NaN()}, res))
	})
}

func TestTilesForBoundsIsExhaustive(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	res := ForZoom(14, 1)

	for i := 0; i < 50; i++ {
		south := r.Float64()*100 - 50
		west := r.Float64()*300 - 150
		b := models.ViewportBounds{
			South: south,
			North: south + r.Float64()*0.2,
			West:  west,
			East:  west + r.Float64()*0.2,
		}

		tiles := TilesForBounds(b, res)
		set := make(map[ID]struct{}, len(tiles))
		for _, id := range tiles {
			set[id] = struct{}{}
		}
		assert.Len(t, set, len(tiles), "tiles must be distinct")
		assert.Equal(t, int(CountForBounds(b, res)), len(tiles))

		// Every coordinate inside the rectangle maps to an enumerated tile
		for j := 0; j < 100; j++ {
			c := models.Coordinate{
				Lat: b.South + r.Float64()*(b.North-b.South),
				Lon: b.West + r.Float64()*(b.East-b.West),
			}
			_, ok := set[Of(c, res)]
			assert.True(t, ok, "missing tile for %v", c)
		}
		// Corners too
		for _, c := range []models.Coordinate{{Lat: b.South, Lon: b.West}, {Lat: b.North, Lon: b.East}} {
			_, ok := set[Of(c, res)]
			assert.True(t, ok, "missing corner tile for %v", c)
		}
	}
}

func TestRangeCount(t *testing.T) {
	assert.Equal(t, int64(1), Range{}.Count())
	assert.Equal(t, int64(0), Range{MinX: 2, MaxX: 1}.Count())
	assert.Equal(t, int64(6), Range{MinX: 0, MaxX: 2, MinY: 5, MaxY: 6}.Count())
}

func BenchmarkOf(b *testing.B) {
	res := ForTolerance(50)
	c := models.Coordinate{Lat: 50.45, Lon: 30.5233}
	for i := 0; i < b.N; i++ {
		_ = Of(c, res)
	}
}
