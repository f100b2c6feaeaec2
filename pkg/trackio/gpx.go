// Package trackio reads and writes tracks as GPX for the command line tools.
package trackio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/tkrajina/gpxgo/gpx"
)

// Creator is written into generated GPX files
const Creator = "geo-track-view"

// ParseGPX converts a GPX document into tracks. Every <trk> becomes one
// track with its segments joined; routes are appended as further tracks.
// Tracks without a name are called fallback, suffixed when there are several.
func ParseGPX(data []byte, fallback string) ([]models.Track, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gpx: %w", err)
	}

	var tracks []models.Track
	for _, trk := range doc.Tracks {
		var points []models.Point
		for _, seg := range trk.Segments {
			for i := range seg.Points {
				points = append(points, fromGPX(&seg.Points[i]))
			}
		}
		tracks = append(tracks, newTrack(trk.Name, points))
	}
	for _, rte := range doc.Routes {
		points := make([]models.Point, 0, len(rte.Points))
		for i := range rte.Points {
			points = append(points, fromGPX(&rte.Points[i]))
		}
		tracks = append(tracks, newTrack(rte.Name, points))
	}

	for i := range tracks {
		if tracks[i].Name != "" {
			continue
		}
		tracks[i].Name = fallback
		if len(tracks) > 1 {
			tracks[i].Name = fmt.Sprintf("%s #%d", fallback, i+1)
		}
	}
	return tracks, nil
}

// LoadFiles parses every path in order. Directories are expanded to the
// .gpx files they contain, sorted by name.
func LoadFiles(paths []string) ([]models.Track, error) {
	files, err := expand(paths)
	if err != nil {
		return nil, err
	}

	var tracks []models.Track
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		parsed, err := ParseGPX(data, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		tracks = append(tracks, parsed...)
	}
	return tracks, nil
}

// MarshalGPX encodes tracks as a GPX 1.1 document, one <trk> per track
func MarshalGPX(tracks []models.Track) ([]byte, error) {
	doc := &gpx.GPX{Creator: Creator}
	for _, t := range tracks {
		seg := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, 0, len(t.Points))}
		for _, p := range t.Points {
			seg.Points = append(seg.Points, toGPX(p))
		}
		doc.Tracks = append(doc.Tracks, gpx.GPXTrack{
			Name:     t.Name,
			Segments: []gpx.GPXTrackSegment{seg},
		})
	}

	data, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("failed to encode gpx: %w", err)
	}
	return data, nil
}

// WriteGPX writes tracks to path as GPX 1.1
func WriteGPX(path string, tracks []models.Track) error {
	data, err := MarshalGPX(tracks)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func newTrack(name string, points []models.Point) models.Track {
	t := models.Track{Name: name, Points: points}
	for _, p := range points {
		if !p.Time.IsZero() {
			t.Start = p.Time
			break
		}
	}
	return t
}

func fromGPX(p *gpx.GPXPoint) models.Point {
	point := models.Point{
		Coordinate: models.Coordinate{Lat: p.Latitude, Lon: p.Longitude},
		Time:       p.Timestamp,
	}
	if p.Elevation.NotNull() {
		ele := p.Elevation.Value()
		point.Elevation = &ele
	}
	return point
}

func toGPX(p models.Point) gpx.GPXPoint {
	var out gpx.GPXPoint
	out.Latitude = p.Lat
	out.Longitude = p.Lon
	out.Timestamp = p.Time
	if p.Elevation != nil {
		out.Elevation = *gpx.NewNullableFloat64(*p.Elevation)
	}
	return out
}

func expand(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(path, "*.gpx"))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", path, err)
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	return files, nil
}

// Span returns the first and last timestamps across the tracks
func Span(tracks []models.Track) (first, last time.Time) {
	for _, t := range tracks {
		for _, p := range t.Points {
			if p.Time.IsZero() {
				continue
			}
			if first.IsZero() || p.Time.Before(first) {
				first = p.Time
			}
			if p.Time.After(last) {
				last = p.Time
			}
		}
	}
	return first, last
}
