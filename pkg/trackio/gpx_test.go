package trackio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <name>Morning run</name>
    <trkseg>
      <trkpt lat="50.4501" lon="30.5234"><ele>120.5</ele><time>2024-05-01T07:00:00Z</time></trkpt>
      <trkpt lat="50.4502" lon="30.5236"><ele>121</ele><time>2024-05-01T07:00:05Z</time></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="50.4503" lon="30.5238"><time>2024-05-01T07:00:10Z</time></trkpt>
    </trkseg>
  </trk>
  <trk>
    <trkseg>
      <trkpt lat="46.1" lon="7.1"></trkpt>
    </trkseg>
  </trk>
</gpx>
`

func TestParseGPX(t *testing.T) {
	tracks, err := ParseGPX([]byte(sampleGPX), "sample")
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	run := tracks[0]
	assert.Equal(t, "Morning run", run.Name)
	require.Len(t, run.Points, 3)
	assert.InDelta(t, 50.4501, run.Points[0].Lat, 1e-9)
	assert.InDelta(t, 30.5234, run.Points[0].Lon, 1e-9)
	require.True(t, run.Points[0].HasElevation())
	assert.InDelta(t, 120.5, *run.Points[0].Elevation, 1e-9)
	assert.False(t, run.Points[2].HasElevation())
	assert.True(t, run.Start.Equal(time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)))
	assert.True(t, run.Points[2].Time.Equal(time.Date(2024, 5, 1, 7, 0, 10, 0, time.UTC)))

	assert.Equal(t, "sample #2", tracks[1].Name)
	assert.True(t, tracks[1].Start.IsZero())
	assert.True(t, tracks[1].Points[0].Time.IsZero())
}

func TestParseGPXInvalid(t *testing.T) {
	_, err := ParseGPX([]byte("this is not gpx"), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse gpx")
}

func TestWriteAndLoad(t *testing.T) {
	ele := 250.0
	start := time.Date(2024, 6, 2, 18, 30, 0, 0, time.UTC)
	tracks := []models.Track{
		{Name: "evening", Points: []models.Point{
			{Coordinate: models.Coordinate{Lat: 50.45, Lon: 30.52}, Elevation: &ele, Time: start},
			{Coordinate: models.Coordinate{Lat: 50.46, Lon: 30.53}, Time: start.Add(time.Minute)},
		}},
		{Name: "untimed", Points: []models.Point{
			{Coordinate: models.Coordinate{Lat: -33.9, Lon: 151.2}},
		}},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "out.gpx")
	require.NoError(t, WriteGPX(path, tracks))

	loaded, err := LoadFiles([]string{path})
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "evening", loaded[0].Name)
	require.Len(t, loaded[0].Points, 2)
	assert.InDelta(t, 50.46, loaded[0].Points[1].Lat, 1e-6)
	assert.InDelta(t, 30.53, loaded[0].Points[1].Lon, 1e-6)
	require.True(t, loaded[0].Points[0].HasElevation())
	assert.InDelta(t, 250, *loaded[0].Points[0].Elevation, 1e-6)
	assert.False(t, loaded[0].Points[1].HasElevation())
	assert.True(t, loaded[0].Start.Equal(start))

	assert.Equal(t, "untimed", loaded[1].Name)
	assert.InDelta(t, -33.9, loaded[1].Points[0].Lat, 1e-6)
}

func TestLoadFilesDirectory(t *testing.T) {
	dir := t.TempDir()
	one := []models.Track{{Points: []models.Point{{Coordinate: models.Coordinate{Lat: 1, Lon: 1}}}}}
	two := []models.Track{{Name: "named", Points: []models.Point{{Coordinate: models.Coordinate{Lat: 2, Lon: 2}}}}}
	require.NoError(t, WriteGPX(filepath.Join(dir, "b.gpx"), two))
	require.NoError(t, WriteGPX(filepath.Join(dir, "a.gpx"), one))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	tracks, err := LoadFiles([]string{dir})
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "a", tracks[0].Name)
	assert.Equal(t, "named", tracks[1].Name)
}

func TestLoadFilesErrors(t *testing.T) {
	_, err := LoadFiles([]string{filepath.Join(t.TempDir(), "missing.gpx")})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.gpx")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o644))
	_, err = LoadFiles([]string{bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.gpx")

	tracks, err := LoadFiles(nil)
	assert.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestSpan(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tracks := []models.Track{
		{Points: []models.Point{{Time: t0.Add(time.Hour)}, {}}},
		{Points: []models.Point{{Time: t0}, {Time: t0.Add(3 * time.Hour)}}},
	}
	first, last := Span(tracks)
	assert.Equal(t, t0, first)
	assert.Equal(t, t0.Add(3*time.Hour), last)

	first, last = Span(nil)
	assert.True(t, first.IsZero())
	assert.True(t, last.IsZero())
}
