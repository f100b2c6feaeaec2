package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/1F47E/geo-track-view/pkg/synth"
	"github.com/1F47E/geo-track-view/pkg/trackio"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

func main() {
	var (
		numTracks = flag.Int("n", synth.DefaultOptions.Tracks, "Number of tracks to generate")
		numPoints = flag.Int("p", synth.DefaultOptions.PointsPerTrack, "Points per track")
		routes    = flag.Int("r", synth.DefaultOptions.Routes, "Number of distinct routes the tracks share")
		outputDir = flag.String("o", "data", "Output directory, one GPX file per track")
		single    = flag.Bool("single", false, "Write all tracks into one tracks.gpx")
		workers   = flag.Int("w", runtime.NumCPU(), "Number of worker goroutines")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
		lat       = flag.Float64("lat", synth.DefaultOptions.Center.Lat, "Center latitude")
		lon       = flag.Float64("lon", synth.DefaultOptions.Center.Lon, "Center longitude")
		radius    = flag.Float64("radius", synth.DefaultOptions.RadiusMeters, "Typical route radius in meters")
		spikes    = flag.Float64("spikes", synth.DefaultOptions.SpikeRate, "Elevation glitch rate per point")
	)
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatal("failed to create output directory", zap.Error(err))
	}

	opts := synth.DefaultOptions
	opts.Tracks = *numTracks
	opts.PointsPerTrack = *numPoints
	opts.Routes = *routes
	opts.Center = models.Coordinate{Lat: *lat, Lon: *lon}
	opts.RadiusMeters = *radius
	opts.SpikeRate = *spikes
	opts.Seed = *seed
	opts.Workers = *workers

	log.Info("generating tracks",
		zap.Int("tracks", opts.Tracks),
		zap.Int("points_per_track", opts.PointsPerTrack),
		zap.Int("routes", opts.Routes),
		zap.Int("workers", opts.Workers),
	)
	start := time.Now()
	tracks := synth.Generate(opts)
	total := models.CountPoints(tracks)
	log.Info("tracks generated",
		zap.String("points", humanize.Comma(int64(total))),
		zap.Duration("took", time.Since(start)),
	)

	start = time.Now()
	var paths []string
	if *single {
		path := filepath.Join(*outputDir, "tracks.gpx")
		if err := trackio.WriteGPX(path, tracks); err != nil {
			log.Fatal("failed to write gpx", zap.String("path", path), zap.Error(err))
		}
		paths = []string{path}
	} else {
		paths, err = writeEach(*outputDir, tracks, *workers)
		if err != nil {
			log.Fatal("failed to write gpx", zap.Error(err))
		}
	}

	var size int64
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil {
			size += fi.Size()
		}
	}
	log.Info("tracks saved",
		zap.String("dir", *outputDir),
		zap.Int("files", len(paths)),
		zap.String("size", humanize.Bytes(uint64(size))),
		zap.Duration("took", time.Since(start)),
	)
}

// writeEach writes one file per track using a pool of workers.
// Writing continues past failures and the first error is returned.
func writeEach(dir string, tracks []models.Track, workers int) ([]string, error) {
	if workers < 1 {
		workers = 1
	}
	paths := make([]string, len(tracks))
	work := make(chan int, workers)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range work {
				path := filepath.Join(dir, tracks[i].Name+".gpx")
				if err := trackio.WriteGPX(path, tracks[i:i+1]); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("%s: %w", path, err)
					}
					mu.Unlock()
					continue
				}
				paths[i] = path
			}
		}()
	}
	for i := range tracks {
		work <- i
	}
	close(work)
	wg.Wait()

	return paths, firstErr
}
