package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1F47E/geo-track-view/pkg/engine"
	"github.com/1F47E/geo-track-view/pkg/geo"
	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/1F47E/geo-track-view/pkg/synth"
	"github.com/1F47E/geo-track-view/pkg/trackio"
	"github.com/1F47E/geo-track-view/pkg/view"
	"github.com/1F47E/geo-track-view/pkg/visibility"
	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
)

type BenchmarkResult struct {
	Mode          string
	TotalQueries  int
	TotalDuration time.Duration
	AvgDuration   time.Duration
	QueriesPerSec float64
	MinDuration   time.Duration
	MaxDuration   time.Duration
	P50           time.Duration
	P95           time.Duration
	P99           time.Duration
	TotalPoints   int64
	AvgPoints     float64
	AvgTiles      float64
}

// viewportQuerier is one worker's private pipeline; trackers are not shared
type viewportQuerier func(models.ViewportBounds) (points int, tiles int64)

func main() {
	var (
		gpxDir     = flag.String("i", "", "Directory of GPX files (default: synthetic tracks)")
		mode       = flag.String("t", "mixed", "Mode: enumerate, rtree, pipeline, mixed")
		numQueries = flag.Int("n", 1000, "Number of viewport queries to run")
		workers    = flag.Int("w", runtime.NumCPU(), "Number of concurrent workers")
		numTracks  = flag.Int("tracks", synth.DefaultOptions.Tracks, "Synthetic tracks to generate")
		numPoints  = flag.Int("points", synth.DefaultOptions.PointsPerTrack, "Points per synthetic track")
		widthM     = flag.Float64("size", 1500, "Viewport width in meters")
		minZoom    = flag.Float64("min-zoom", 11, "Lowest zoom for pipeline queries")
		maxZoom    = flag.Float64("max-zoom", 17, "Highest zoom for pipeline queries")
		seed       = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	)
	flag.Parse()

	tracks, err := loadTracks(*gpxDir, *numTracks, *numPoints, *seed)
	if err != nil {
		log.Fatalf("Failed to load tracks: %v", err)
	}
	area, ok := view.BoundsOf(tracks)
	if !ok {
		log.Fatalf("No points to query")
	}
	log.Printf("Loaded %d tracks with %s points\n", len(tracks), humanize.Comma(int64(models.CountPoints(tracks))))

	cfg := queryConfig{area: area, widthM: *widthM, minZoom: *minZoom, maxZoom: *maxZoom}

	var results []BenchmarkResult
	switch *mode {
	case "enumerate", "rtree", "pipeline":
		log.Printf("Running %d %s queries with %d workers...\n", *numQueries, *mode, *workers)
		results = append(results, run(*mode, tracks, *numQueries, *workers, *seed, cfg))
	case "mixed":
		for _, m := range []string{"enumerate", "rtree", "pipeline"} {
			log.Printf("Running %d %s queries with %d workers...\n", *numQueries, m, *workers)
			results = append(results, run(m, tracks, *numQueries, *workers, *seed, cfg))
		}
	default:
		log.Fatalf("Unknown mode: %s", *mode)
	}

	for _, r := range results {
		printResult(r)
	}
	fmt.Printf("Workers Used: %d\n", *workers)
	fmt.Printf("CPU Cores: %d\n", runtime.NumCPU())
}

func loadTracks(dir string, numTracks, numPoints int, seed int64) ([]models.Track, error) {
	if dir != "" {
		return trackio.LoadFiles([]string{dir})
	}
	opts := synth.DefaultOptions
	opts.Tracks = numTracks
	opts.PointsPerTrack = numPoints
	opts.Seed = seed
	return synth.Generate(opts), nil
}

type queryConfig struct {
	area             models.Bounds
	widthM           float64
	minZoom, maxZoom float64
}

// randomViewport picks a viewport of roughly widthM meters inside the area
func (c queryConfig) randomViewport(r *rand.Rand, zoom float64) models.ViewportBounds {
	latSpan := c.widthM / geo.MetersPerDegree
	midLat := (c.area.SouthWest.Lat + c.area.NorthEast.Lat) / 2
	lonSpan := latSpan / math.Cos(midLat*math.Pi/180)

	lat := c.area.SouthWest.Lat + r.Float64()*math.Max(0, c.area.NorthEast.Lat-c.area.SouthWest.Lat-latSpan)
	lon := c.area.SouthWest.Lon + r.Float64()*math.Max(0, c.area.NorthEast.Lon-c.area.SouthWest.Lon-lonSpan)
	return models.ViewportBounds{North: lat + latSpan, South: lat, East: lon + lonSpan, West: lon, Zoom: zoom}
}

func newQuerier(mode string, tracks []models.Track, cfg queryConfig, r *rand.Rand) viewportQuerier {
	switch mode {
	case "pipeline":
		e := engine.New()
		e.SetTracks(tracks)
		return func(b models.ViewportBounds) (int, int64) {
			// Snap to whole zooms so some queries pan and some rebuild
			b.Zoom = math.Round(cfg.minZoom + r.Float64()*(cfg.maxZoom-cfg.minZoom))
			f := e.OnViewportChange(b)
			return f.Stats.RenderedPoints, f.VisibleTiles
		}
	default:
		cutoff := int64(math.MaxInt64)
		if mode == "rtree" {
			cutoff = 0
		}
		t := visibility.NewTracker(visibility.WithMaxEnumeratedTiles(cutoff))
		t.SetTracks(tracks)
		return func(b models.ViewportBounds) (int, int64) {
			set := t.OnViewportChange(b)
			return set.Count(), t.VisibleTileCount()
		}
	}
}

func run(mode string, tracks []models.Track, numQueries, workers int, seed int64, cfg queryConfig) BenchmarkResult {
	var (
		totalPoints int64
		totalTiles  int64
		durations   []float64
		mu          sync.Mutex
	)

	// Each worker builds its own index before the clock starts
	queriers := make([]viewportQuerier, workers)
	rngs := make([]*rand.Rand, workers)
	for w := range queriers {
		rngs[w] = rand.New(rand.NewSource(seed + int64(w)))
		queriers[w] = newQuerier(mode, tracks, cfg, rngs[w])
	}

	startTime := time.Now()

	queryCh := make(chan int, numQueries)
	var wg sync.WaitGroup

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			query, r := queriers[w], rngs[w]
			local := make([]float64, 0, numQueries/workers+1)

			for range queryCh {
				b := cfg.randomViewport(r, visibility.DefaultIndexZoom)

				queryStart := time.Now()
				points, tiles := query(b)
				local = append(local, float64(time.Since(queryStart)))

				atomic.AddInt64(&totalPoints, int64(points))
				atomic.AddInt64(&totalTiles, tiles)
			}

			mu.Lock()
			durations = append(durations, local...)
			mu.Unlock()
		}(w)
	}

	for i := 0; i < numQueries; i++ {
		queryCh <- i
	}
	close(queryCh)

	wg.Wait()
	totalDuration := time.Since(startTime)

	data := stats.Float64Data(durations)
	dur := func(f func() (float64, error)) time.Duration {
		v, err := f()
		if err != nil {
			return 0
		}
		return time.Duration(v)
	}
	pct := func(p float64) time.Duration {
		return dur(func() (float64, error) { return data.Percentile(p) })
	}

	return BenchmarkResult{
		Mode:          mode,
		TotalQueries:  numQueries,
		TotalDuration: totalDuration,
		AvgDuration:   dur(data.Mean),
		QueriesPerSec: float64(numQueries) / totalDuration.Seconds(),
		MinDuration:   dur(data.Min),
		MaxDuration:   dur(data.Max),
		P50:           pct(50),
		P95:           pct(95),
		P99:           pct(99),
		TotalPoints:   totalPoints,
		AvgPoints:     float64(totalPoints) / float64(max(numQueries, 1)),
		AvgTiles:      float64(totalTiles) / float64(max(numQueries, 1)),
	}
}

func printResult(r BenchmarkResult) {
	fmt.Printf("\n=== Benchmark Results: %s ===\n", r.Mode)
	fmt.Printf("Total Queries: %s\n", humanize.Comma(int64(r.TotalQueries)))
	fmt.Printf("Total Duration: %v\n", r.TotalDuration)
	fmt.Printf("Average Duration: %v\n", r.AvgDuration)
	fmt.Printf("Queries/Second: %s\n", humanize.CommafWithDigits(r.QueriesPerSec, 2))
	fmt.Printf("Min Duration: %v\n", r.MinDuration)
	fmt.Printf("Max Duration: %v\n", r.MaxDuration)
	fmt.Printf("p50/p95/p99: %v / %v / %v\n", r.P50, r.P95, r.P99)
	fmt.Printf("Total Visible Points: %s\n", humanize.Comma(r.TotalPoints))
	fmt.Printf("Avg Points/Query: %.2f\n", r.AvgPoints)
	fmt.Printf("Avg Tiles/Query: %.2f\n", r.AvgTiles)
}
