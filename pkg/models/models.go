package models

import (
	"math"
	"time"
)

// Coordinate represents a WGS84 position in degrees
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Point represents a recorded track point
type Point struct {
	Coordinate
	// Elevation above sea level in meters, nil when the device did not record it
	Elevation *float64 `json:"elevation,omitempty"`
	// Time is zero when not recorded
	Time time.Time `json:"time,omitempty"`
}

// HasElevation reports whether the point carries an ASML reading
func (p Point) HasElevation() bool {
	return p.Elevation != nil
}

// Track is an ordered path of points plus identifying metadata
type Track struct {
	Name   string    `json:"name"`
	Start  time.Time `json:"start,omitempty"`
	Points []Point   `json:"points"`
}

// WithPoints returns a copy of the track metadata carrying the given points
func (t Track) WithPoints(points []Point) Track {
	return Track{Name: t.Name, Start: t.Start, Points: points}
}

// CountPoints returns the total number of points across tracks
func CountPoints(tracks []Track) int {
	n := 0
	for _, t := range tracks {
		n += len(t.Points)
	}
	return n
}

// ViewportBounds describes the visible map rectangle and its zoom level
type ViewportBounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
	Zoom  float64 `json:"zoom"`
}

// IsZero reports whether no viewport has been supplied
func (b ViewportBounds) IsZero() bool {
	return b == ViewportBounds{}
}

// Valid reports whether the bounds describe a usable rectangle.
// East < West is allowed and means the viewport crosses the antimeridian.
func (b ViewportBounds) Valid() bool {
	for _, v := range []float64{b.North, b.South, b.East, b.West, b.Zoom} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.North >= b.South
}

// Bounds represents a rectangular area defined by two corners
type Bounds struct {
	SouthWest Coordinate `json:"south_west"`
	NorthEast Coordinate `json:"north_east"`
}

// Viewport converts the rectangle into viewport bounds at the given zoom
func (b Bounds) Viewport(zoom float64) ViewportBounds {
	return ViewportBounds{
		North: b.NorthEast.Lat,
		South: b.SouthWest.Lat,
		East:  b.NorthEast.Lon,
		West:  b.SouthWest.Lon,
		Zoom:  zoom,
	}
}
