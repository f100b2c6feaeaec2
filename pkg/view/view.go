// Package view holds the map-framing helpers used to initialize and fit the
// map around a track collection.
package view

import (
	"math"

	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const (
	// TileSize is the pixel edge of a web map tile
	TileSize = 256
	// MaxZoom caps the zoom picked for tiny or single-point extents
	MaxZoom = 18
)

// DefaultCenter is used when there is nothing to center on
var DefaultCenter = models.Coordinate{Lat: 50.45, Lon: 30.5233}

// Padding is the margin in pixels kept around fitted bounds
type Padding struct {
	Horizontal float64 `yaml:"horizontal"`
	Vertical   float64 `yaml:"vertical"`
}

var DefaultPadding = Padding{Horizontal: 20, Vertical: 20}

// MapHandle is the part of a live map widget that bounds fitting drives
type MapHandle interface {
	FitBounds(bounds models.Bounds, padding Padding)
}

// Center returns the mean coordinate of all points, or DefaultCenter
func Center(tracks []models.Track) models.Coordinate {
	return CenterOr(tracks, DefaultCenter)
}

// CenterOr returns the mean coordinate of all points, or fallback when the
// tracks hold no points.
func CenterOr(tracks []models.Track, fallback models.Coordinate) models.Coordinate {
	var lat, lon float64
	n := 0
	for _, t := range tracks {
		for _, p := range t.Points {
			lat += p.Lat
			lon += p.Lon
			n++
		}
	}
	if n == 0 {
		return fallback
	}
	return models.Coordinate{Lat: lat / float64(n), Lon: lon / float64(n)}
}

// BoundsOf returns the rectangle enclosing every point.
// ok is false when the tracks hold no points.
func BoundsOf(tracks []models.Track) (b models.Bounds, ok bool) {
	mp := make(orb.MultiPoint, 0, models.CountPoints(tracks))
	for _, t := range tracks {
		for _, p := range t.Points {
			mp = append(mp, orb.Point{p.Lon, p.Lat})
		}
	}
	if len(mp) == 0 {
		return models.Bounds{}, false
	}
	return FromOrb(mp.Bound()), true
}

// FitTracks frames the map around all points with the given padding.
// It reports whether the map was asked to move.
func FitTracks(tracks []models.Track, m MapHandle, padding Padding) bool {
	if m == nil || len(tracks) == 0 {
		return false
	}
	b, ok := BoundsOf(tracks)
	if !ok {
		return false
	}
	m.FitBounds(b, padding)
	return true
}

// ZoomForBounds returns the largest zoom at which the bounds fit a
// width x height pixel screen after padding, capped at MaxZoom.
func ZoomForBounds(b models.Bounds, width, height int, padding Padding) float64 {
	availW := float64(width) - 2*padding.Horizontal
	availH := float64(height) - 2*padding.Vertical
	if availW <= 0 || availH <= 0 {
		return 0
	}

	sw := project.Point(orb.Point{b.SouthWest.Lon, clampLat(b.SouthWest.Lat)}, project.WGS84.ToMercator)
	ne := project.Point(orb.Point{b.NorthEast.Lon, clampLat(b.NorthEast.Lat)}, project.WGS84.ToMercator)
	spanX := math.Abs(ne.X() - sw.X())
	spanY := math.Abs(ne.Y() - sw.Y())

	world := 2 * math.Pi * orb.EarthRadius
	zoom := float64(MaxZoom)
	if spanX > 0 {
		zoom = math.Min(zoom, math.Log2(availW*world/(TileSize*spanX)))
	}
	if spanY > 0 {
		zoom = math.Min(zoom, math.Log2(availH*world/(TileSize*spanY)))
	}
	return math.Max(0, zoom)
}

// ToOrb converts bounds into an orb rectangle (x = lon, y = lat)
func ToOrb(b models.Bounds) orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.SouthWest.Lon, b.SouthWest.Lat},
		Max: orb.Point{b.NorthEast.Lon, b.NorthEast.Lat},
	}
}

// FromOrb converts an orb rectangle into bounds
func FromOrb(b orb.Bound) models.Bounds {
	return models.Bounds{
		SouthWest: models.Coordinate{Lat: b.Min.Lat(), Lon: b.Min.Lon()},
		NorthEast: models.Coordinate{Lat: b.Max.Lat(), Lon: b.Max.Lon()},
	}
}

// clampLat keeps latitudes inside the web mercator range
func clampLat(lat float64) float64 {
	const limit = 85.05112878
	return math.Max(-limit, math.Min(limit, lat))
}
