package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/1F47E/geo-track-view/pkg/dedupe"
	"github.com/1F47E/geo-track-view/pkg/elevation"
	"github.com/1F47E/geo-track-view/pkg/engine"
	"github.com/1F47E/geo-track-view/pkg/metrics"
	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/1F47E/geo-track-view/pkg/simplify"
	"github.com/1F47E/geo-track-view/pkg/trackio"
	"github.com/1F47E/geo-track-view/pkg/view"
	"go.uber.org/zap"
)

// parkLoop returns one lap around a park, recorded every 10 seconds
func parkLoop(name string, start time.Time, jitter float64) models.Track {
	const n = 120
	points := make([]models.Point, n)
	for i := range points {
		angle := 2 * math.Pi * float64(i) / n
		ele := 150 + 20*math.Sin(angle)
		if i == 60 {
			// Barometer glitch
			ele = 900
		}
		points[i] = models.Point{
			Coordinate: models.Coordinate{
				Lat: 50.4501 + 0.006*math.Sin(angle) + jitter,
				Lon: 30.5234 + 0.009*math.Cos(angle) - jitter,
			},
			Elevation: &ele,
			Time:      start.Add(time.Duration(i) * 10 * time.Second),
		}
	}
	return models.Track{Name: name, Start: start, Points: points}
}

func main() {
	log := zap.Must(zap.NewDevelopment())
	defer log.Sync() //nolint:errcheck

	monday := time.Date(2024, 6, 3, 7, 0, 0, 0, time.UTC)
	tracks := []models.Track{
		parkLoop("Monday run", monday, 0),
		parkLoop("Wednesday run", monday.Add(48*time.Hour), 0.00002),
		parkLoop("Friday run", monday.Add(96*time.Hour), -0.00002),
	}
	fmt.Printf("Loaded %d tracks with %d points\n\n", len(tracks), models.CountPoints(tracks))

	// Example 1: Zoom-adaptive simplification
	fmt.Println("=== Simplification by zoom ===")
	for _, z := range []float64{10, 13, 16, 18} {
		out := simplify.ByZoom(tracks, z, simplify.DefaultCurve)
		fmt.Printf("  zoom %2.0f: min spacing %6.0fm, %3d points\n",
			z, simplify.DefaultCurve.MinDistance(z), models.CountPoints(out))
	}

	// Example 2: Cross-track deduplication
	fmt.Println("\n=== Deduplication ===")
	deduped, passes := dedupe.Passes(tracks, dedupe.DefaultTolerances...)
	for _, p := range passes {
		fmt.Printf("  %gm pass: %d -> %d points\n", p.ToleranceMeters, p.InputPoints, p.OutputPoints)
	}
	for _, t := range deduped {
		fmt.Printf("  - %s keeps %d points\n", t.Name, len(t.Points))
	}

	// Example 3: Viewport visibility through the engine
	fmt.Println("\n=== Viewport over the north half of the park ===")
	e := engine.New(engine.WithLogger(log))
	e.SetTracks(tracks)
	frame := e.OnViewportChange(models.ViewportBounds{
		North: 50.4570, South: 50.4501, East: 30.5340, West: 30.5130, Zoom: 16,
	})
	fmt.Printf("  %d of %d rendered points visible across %d tiles, %d segments\n",
		frame.Stats.RenderedPoints, frame.Stats.DedupedPoints, frame.VisibleTiles, len(frame.Segments()))

	// Example 4: Map placement
	fmt.Println("\n=== Map placement ===")
	c := view.Center(tracks)
	b, _ := view.BoundsOf(tracks)
	fmt.Printf("  center %.5f, %.5f\n", c.Lat, c.Lon)
	fmt.Printf("  fits a 1024x640 map at zoom %.2f\n", view.ZoomForBounds(b, 1024, 640, view.DefaultPadding))

	// Example 5: Elevation denoising and metrics
	fmt.Println("\n=== Monday run ===")
	raw := *tracks[0].Points[60].Elevation
	smoothed := elevation.Smoothed(tracks[0], elevation.DefaultDenoiser)
	fmt.Printf("  glitch at sample 60: %.0fm raw, %.1fm denoised\n", raw, smoothed[60])
	m := metrics.Compute(tracks[0], metrics.DefaultOptions)
	for _, row := range m.Rows() {
		fmt.Printf("  %-16s %s\n", row[0], row[1])
	}

	// Save and reload as GPX
	fmt.Println("\n=== GPX round trip ===")
	dir, err := os.MkdirTemp("", "tracks")
	if err != nil {
		log.Fatal("failed to create temp dir", zap.Error(err))
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "week.gpx")
	if err := trackio.WriteGPX(path, tracks); err != nil {
		log.Fatal("failed to write gpx", zap.Error(err))
	}
	loaded, err := trackio.LoadFiles([]string{dir})
	if err != nil {
		log.Fatal("failed to load gpx", zap.Error(err))
	}
	first, last := trackio.Span(loaded)
	fmt.Printf("  reloaded %d tracks from %s, %s to %s\n",
		len(loaded), path, first.Format(time.DateOnly), last.Format(time.DateOnly))
}
