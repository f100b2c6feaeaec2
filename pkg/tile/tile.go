// Package tile quantizes geographic coordinates into integer grid cells.
//
// A single equirectangular grid serves both the zoom-driven visibility index
// and the tolerance-driven deduplication; only the cell size differs.
package tile

import (
	"math"

	"github.com/1F47E/geo-track-view/pkg/geo"
	"github.com/1F47E/geo-track-view/pkg/models"
)

// Resolution is the edge length of a grid cell in degrees
type Resolution float64

// MinResolution is the smallest cell size, about 0.1mm. Finer cells would
// push column indices past the int64 range.
const MinResolution Resolution = 1e-9

// ID identifies one grid cell. It is comparable and safe to use as a map key.
type ID struct {
	X int64
	Y int64
}

// ForZoom returns the resolution of a slippy-map tile at the given zoom,
// split into subdivisions cells per tile edge.
func ForZoom(zoom float64, subdivisions int) Resolution {
	if subdivisions < 1 {
		subdivisions = 1
	}
	if math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		zoom = 0
	}
	zoom = math.Max(0, math.Min(zoom, 30))
	return Resolution(360.0 / math.Exp2(math.Floor(zoom)) / float64(subdivisions))
}

// ForTolerance returns a resolution whose cells are toleranceMeters tall,
// never finer than MinResolution. Non-positive tolerances stay invalid.
func ForTolerance(toleranceMeters float64) Resolution {
	res := Resolution(toleranceMeters / geo.MetersPerDegree)
	if res > 0 && res < MinResolution {
		return MinResolution
	}
	return res
}

// Valid reports whether the resolution can quantize coordinates
func (r Resolution) Valid() bool {
	f := float64(r)
	return f > 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// normalized returns a usable cell size, one cell per world for bad input
func (r Resolution) normalized() float64 {
	if !r.Valid() {
		return 360
	}
	return math.Max(float64(r), float64(MinResolution))
}

// Columns returns the number of cells spanning all longitudes
func (r Resolution) Columns() int64 {
	return int64(math.Ceil(360 / r.normalized()))
}

// Of returns the cell containing the coordinate
func Of(c models.Coordinate, res Resolution) ID {
	size := res.normalized()
	lat, lon := normalize(c)
	return ID{
		X: int64(math.Floor((lon + 180) / size)),
		Y: int64(math.Floor((lat + 90) / size)),
	}
}

// normalize clamps latitude and wraps longitude into [-180, 180).
// Non-finite values collapse to 0.
func normalize(c models.Coordinate) (lat, lon float64) {
	lat, lon = c.Lat, c.Lon
	if math.IsNaN(lat) || math.IsInf(lat, 0) {
		lat = 0
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		lon = 0
	}
	lat = math.Max(-90, math.Min(90, lat))
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lat, lon - 180
}

// Bounds returns the geographic rectangle covered by the cell
func Bounds(id ID, res Resolution) models.Bounds {
	size := res.normalized()
	return models.Bounds{
		SouthWest: models.Coordinate{
			Lat: float64(id.Y)*size - 90,
			Lon: float64(id.X)*size - 180,
		},
		NorthEast: models.Coordinate{
			Lat: float64(id.Y+1)*size - 90,
			Lon: float64(id.X+1)*size - 180,
		},
	}
}

// Center returns the midpoint of the cell
func Center(id ID, res Resolution) models.Coordinate {
	size := res.normalized()
	return models.Coordinate{
		Lat: (float64(id.Y)+0.5)*size - 90,
		Lon: (float64(id.X)+0.5)*size - 180,
	}
}

// Range is an inclusive rectangle of cell indices
type Range struct {
	MinX, MaxX int64
	MinY, MaxY int64
}

// Count returns the number of cells in the range
func (r Range) Count() int64 {
	if r.MaxX < r.MinX || r.MaxY < r.MinY {
		return 0
	}
	return (r.MaxX - r.MinX + 1) * (r.MaxY - r.MinY + 1)
}

// Contains reports whether the cell lies inside the range
func (r Range) Contains(id ID) bool {
	return id.X >= r.MinX && id.X <= r.MaxX && id.Y >= r.MinY && id.Y <= r.MaxY
}

// RangesForBounds returns the cell ranges intersecting the viewport.
// A viewport crossing the antimeridian (East < West) yields two ranges.
func RangesForBounds(b models.ViewportBounds, res Resolution) []Range {
	if !b.Valid() {
		return nil
	}

	south := Of(models.Coordinate{Lat: b.South, Lon: 0}, res).Y
	north := Of(models.Coordinate{Lat: b.North, Lon: 0}, res).Y
	lastCol := res.Columns() - 1

	// Spans of a full turn or more cover every column
	if b.East-b.West >= 360 {
		return []Range{{MinX: 0, MaxX: lastCol, MinY: south, MaxY: north}}
	}

	west := Of(models.Coordinate{Lat: 0, Lon: b.West}, res).X
	east := Of(models.Coordinate{Lat: 0, Lon: b.East}, res).X

	if west <= east && b.East >= b.West {
		return []Range{{MinX: west, MaxX: east, MinY: south, MaxY: north}}
	}
	if west <= east {
		// East < West but both wrap into the same column order: the viewport
		// covers almost the whole world.
		return []Range{{MinX: 0, MaxX: lastCol, MinY: south, MaxY: north}}
	}
	return []Range{
		{MinX: west, MaxX: lastCol, MinY: south, MaxY: north},
		{MinX: 0, MaxX: east, MinY: south, MaxY: north},
	}
}

// CountForBounds returns the number of cells intersecting the viewport
func CountForBounds(b models.ViewportBounds, res Resolution) int64 {
	var n int64
	for _, r := range RangesForBounds(b, res) {
		n += r.Count()
	}
	return n
}

// TilesForBounds enumerates every cell intersecting the viewport.
// Edge cells are included, so the result may overshoot but never omits a tile.
func TilesForBounds(b models.ViewportBounds, res Resolution) []ID {
	ranges := RangesForBounds(b, res)
	ids := make([]ID, 0, CountForBounds(b, res))
	for _, r := range ranges {
		for y := r.MinY; y <= r.MaxY; y++ {
			for x := r.MinX; x <= r.MaxX; x++ {
				ids = append(ids, ID{X: x, Y: y})
			}
		}
	}
	return ids
}
