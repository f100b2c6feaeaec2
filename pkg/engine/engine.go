// Package engine wires simplification, deduplication and visibility into the
// per-viewport pipeline the map renders from:
//
//	raw tracks -> simplify.ByZoom -> dedupe 50m -> dedupe 70m -> visibility.Tracker
//
// The reduction stages rerun when the track set or the zoom changes; pans
// only requery the tracker.
package engine

import (
	"time"

	"github.com/1F47E/geo-track-view/pkg/config"
	"github.com/1F47E/geo-track-view/pkg/dedupe"
	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/1F47E/geo-track-view/pkg/simplify"
	"github.com/1F47E/geo-track-view/pkg/visibility"
	"go.uber.org/zap"
)

// DefaultZoom is assumed until the first viewport arrives
const DefaultZoom = 13.0

// Stats mirrors the diagnostics panel of the map view
type Stats struct {
	VisibleTiles     int64              `json:"visible_tiles"`
	Zoom             float64            `json:"zoom"`
	VisibleTracks    int                `json:"visible_tracks"`
	RawPoints        int                `json:"raw_points"`
	SimplifiedPoints int                `json:"simplified_points"`
	DedupedPoints    int                `json:"deduped_points"`
	RenderedPoints   int                `json:"rendered_points"`
	Passes           []dedupe.PassStats `json:"passes"`
}

// Frame is everything a renderer needs after one event
type Frame struct {
	Zoom float64
	// Tracks are the simplified and deduplicated tracks; Visible indexes them
	Tracks       []models.Track
	Visible      visibility.VisibleSet
	VisibleTiles int64
	Stats        Stats
}

// Option configures an Engine
type Option func(*Engine)

// WithCurve sets the zoom to minimum spacing curve
func WithCurve(c simplify.Curve) Option {
	return func(e *Engine) { e.curve = c }
}

// WithDedupeTolerances sets the deduplication passes in meters, applied in order
func WithDedupeTolerances(tolerances ...float64) Option {
	return func(e *Engine) { e.tolerances = append([]float64(nil), tolerances...) }
}

// WithTrackerOptions passes options through to the visibility tracker
func WithTrackerOptions(opts ...visibility.Option) Option {
	return func(e *Engine) { e.trackerOpts = append(e.trackerOpts, opts...) }
}

// WithLogger sets the logger shared with the tracker
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// Engine owns the reduced track set and the visibility tracker.
// Calls must be serialized by the caller.
type Engine struct {
	curve       simplify.Curve
	tolerances  []float64
	trackerOpts []visibility.Option
	log         *zap.Logger

	tracker *visibility.Tracker

	raw        []models.Track
	zoom       float64
	rendered   []models.Track
	passes     []dedupe.PassStats
	simplified int
	rawPoints  int
}

// New creates an engine with no tracks at DefaultZoom
func New(opts ...Option) *Engine {
	e := &Engine{
		curve:      simplify.DefaultCurve,
		tolerances: append([]float64(nil), dedupe.DefaultTolerances...),
		log:        zap.NewNop(),
		zoom:       DefaultZoom,
	}
	for _, opt := range opts {
		opt(e)
	}
	trackerOpts := append([]visibility.Option{visibility.WithLogger(e.log)}, e.trackerOpts...)
	e.tracker = visibility.NewTracker(trackerOpts...)
	return e
}

// FromConfig creates an engine from loaded settings
func FromConfig(c config.Config, log *zap.Logger) *Engine {
	return New(
		WithCurve(c.Simplify),
		WithDedupeTolerances(c.Engine.DedupeTolerances...),
		WithTrackerOptions(c.TrackerOptions()...),
		WithLogger(log),
	)
}

// SetTracks replaces the source tracks and reruns the pipeline at the
// current zoom. The caller's tracks are never modified.
func (e *Engine) SetTracks(tracks []models.Track) Frame {
	e.raw = tracks
	e.rawPoints = models.CountPoints(tracks)
	e.rebuild()
	return e.Frame()
}

// OnViewportChange handles a map move. A zoom change reruns the reduction
// stages before the visible set is computed. Invalid bounds keep the
// current zoom and yield an empty visible set.
func (e *Engine) OnViewportChange(b models.ViewportBounds) Frame {
	if !b.IsZero() && b.Valid() && b.Zoom != e.zoom {
		e.zoom = b.Zoom
		e.rebuild()
	}
	e.tracker.OnViewportChange(b)
	return e.Frame()
}

// Frame returns the current state without recomputing anything
func (e *Engine) Frame() Frame {
	visible := e.tracker.Visible()
	tiles := e.tracker.VisibleTileCount()
	return Frame{
		Zoom:         e.zoom,
		Tracks:       e.rendered,
		Visible:      visible,
		VisibleTiles: tiles,
		Stats: Stats{
			VisibleTiles:     tiles,
			Zoom:             e.zoom,
			VisibleTracks:    visible.Tracks(),
			RawPoints:        e.rawPoints,
			SimplifiedPoints: e.simplified,
			DedupedPoints:    models.CountPoints(e.rendered),
			RenderedPoints:   visible.Count(),
			Passes:           e.passes,
		},
	}
}

// Zoom returns the zoom the current track set was reduced for
func (e *Engine) Zoom() float64 {
	return e.zoom
}

func (e *Engine) rebuild() {
	start := time.Now()

	simplified := simplify.ByZoom(e.raw, e.zoom, e.curve)
	rendered, passes := dedupe.Passes(simplified, e.tolerances...)

	e.simplified = models.CountPoints(simplified)
	e.rendered = rendered
	e.passes = passes
	e.tracker.SetTracks(rendered)

	e.log.Debug("pipeline rebuilt",
		zap.Float64("zoom", e.zoom),
		zap.Float64("min_distance_m", e.curve.MinDistance(e.zoom)),
		zap.Int("raw_points", e.rawPoints),
		zap.Int("simplified_points", e.simplified),
		zap.Int("deduped_points", models.CountPoints(rendered)),
		zap.Duration("took", time.Since(start)),
	)
}

// Segment is a run of consecutive visible points of one track
type Segment struct {
	Track  int
	Start  int
	Points []models.Point
}

// Segments splits the visible points into polylines. A gap in the visible
// indices starts a new segment, so off-screen stretches are not bridged.
func (f Frame) Segments() []Segment {
	var out []Segment
	for ti, indices := range f.Visible {
		if ti >= len(f.Tracks) {
			break
		}
		points := f.Tracks[ti].Points
		runStart := -1
		for k, idx := range indices {
			if runStart < 0 {
				runStart = k
			}
			last := k == len(indices)-1
			if last || indices[k+1] != idx+1 {
				run := indices[runStart : k+1]
				seg := Segment{Track: ti, Start: run[0], Points: make([]models.Point, len(run))}
				for j, pi := range run {
					seg.Points[j] = points[pi]
				}
				out = append(out, seg)
				runStart = -1
			}
		}
	}
	return out
}
