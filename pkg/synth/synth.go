// Package synth generates overlapping synthetic tracks for demos and
// benchmarks. Tracks follow a small set of shared routes so that the
// deduplication stages have repeated ground to collapse.
package synth

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/1F47E/geo-track-view/pkg/geo"
	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/1F47E/geo-track-view/pkg/view"
)

// Options controls generation
type Options struct {
	Tracks         int
	PointsPerTrack int
	// Routes is the number of distinct loops the tracks are spread over
	Routes int
	Center models.Coordinate
	// RadiusMeters is the typical loop radius
	RadiusMeters float64
	// JitterMeters is the per-point GPS noise
	JitterMeters float64
	// SpikeRate is the chance of an elevation glitch per point
	SpikeRate float64
	Start     time.Time
	Interval  time.Duration
	Seed      int64
	Workers   int
}

// DefaultOptions produces a week of runs around the default map center
var DefaultOptions = Options{
	Tracks:         50,
	PointsPerTrack: 2000,
	Routes:         5,
	Center:         view.DefaultCenter,
	RadiusMeters:   2000,
	JitterMeters:   3,
	SpikeRate:      0.002,
	Start:          time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC),
	Interval:       5 * time.Second,
	Seed:           1,
	Workers:        runtime.NumCPU(),
}

type route struct {
	center  models.Coordinate
	radiusX float64
	radiusY float64
	wobble  float64
	phase   float64
	baseEle float64
}

// Generate builds the tracks. Output depends only on opts, not on how work
// is spread across workers.
func Generate(opts Options) []models.Track {
	if opts.Tracks <= 0 || opts.PointsPerTrack <= 0 {
		return nil
	}
	if opts.Routes <= 0 {
		opts.Routes = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	routes := makeRoutes(opts)
	tracks := make([]models.Track, opts.Tracks)

	work := make(chan int, opts.Workers)
	var wg sync.WaitGroup
	wg.Add(opts.Workers)
	for w := 0; w < opts.Workers; w++ {
		go func() {
			defer wg.Done()
			for i := range work {
				// Each track gets its own generator so results are stable
				r := rand.New(rand.NewSource(opts.Seed + int64(i)*7919))
				tracks[i] = makeTrack(i, routes[i%len(routes)], r, opts)
			}
		}()
	}
	for i := range tracks {
		work <- i
	}
	close(work)
	wg.Wait()

	return tracks
}

func makeRoutes(opts Options) []route {
	r := rand.New(rand.NewSource(opts.Seed))
	routes := make([]route, opts.Routes)
	for i := range routes {
		offset := opts.RadiusMeters * (0.5 + r.Float64())
		angle := r.Float64() * 2 * math.Pi
		routes[i] = route{
			center:  offsetMeters(opts.Center, offset*math.Sin(angle), offset*math.Cos(angle)),
			radiusX: opts.RadiusMeters * (0.5 + r.Float64()),
			radiusY: opts.RadiusMeters * (0.5 + r.Float64()),
			wobble:  0.1 + r.Float64()*0.2,
			phase:   r.Float64() * 2 * math.Pi,
			baseEle: 100 + r.Float64()*200,
		}
	}
	return routes
}

func makeTrack(i int, rt route, r *rand.Rand, opts Options) models.Track {
	start := opts.Start.Add(time.Duration(i) * 24 * time.Hour)
	points := make([]models.Point, opts.PointsPerTrack)
	for j := range points {
		t := 2 * math.Pi * float64(j) / float64(opts.PointsPerTrack)
		wobble := 1 + rt.wobble*math.Sin(5*t+rt.phase)
		north := rt.radiusY*wobble*math.Sin(t) + r.NormFloat64()*opts.JitterMeters
		east := rt.radiusX*wobble*math.Cos(t) + r.NormFloat64()*opts.JitterMeters

		ele := rt.baseEle + 40*math.Sin(2*t+rt.phase) + r.NormFloat64()*1.5
		if r.Float64() < opts.SpikeRate {
			ele += 500 + r.Float64()*2000
		}

		points[j] = models.Point{
			Coordinate: offsetMeters(rt.center, north, east),
			Elevation:  &ele,
			Time:       start.Add(time.Duration(j) * opts.Interval),
		}
	}
	return models.Track{Name: fmt.Sprintf("synthetic-%03d", i+1), Start: start, Points: points}
}

// offsetMeters moves a coordinate by the given distances
func offsetMeters(c models.Coordinate, north, east float64) models.Coordinate {
	lat := c.Lat + north/geo.MetersPerDegree
	return models.Coordinate{
		Lat: lat,
		Lon: c.Lon + east/(geo.MetersPerDegree*math.Cos(lat*math.Pi/180)),
	}
}
