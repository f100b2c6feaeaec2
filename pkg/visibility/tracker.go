// Package visibility tracks which point indices of which tracks fall inside
// the current map viewport.
//
// A Tracker starts Unindexed. SetTracks builds a tile index over the given
// tracks at a fixed resolution and moves it to Indexed; every subsequent
// OnViewportChange replaces the visible set wholesale.
package visibility

import (
	"runtime"
	"sort"
	"time"

	"github.com/1F47E/geo-track-view/pkg/models"
	"github.com/1F47E/geo-track-view/pkg/rtree"
	"github.com/1F47E/geo-track-view/pkg/tile"
	"github.com/mitchellh/hashstructure/v2"
	"go.uber.org/zap"
)

const (
	// DefaultIndexZoom gives cells of roughly 600m at the equator
	DefaultIndexZoom = 16
	// DefaultMaxEnumeratedTiles bounds how many cells a viewport may span
	// before lookups go through the R-tree instead of cell enumeration
	DefaultMaxEnumeratedTiles = 4096
)

// VisibleSet holds, per track, the ascending indices of visible points
type VisibleSet [][]int

// Count returns the number of visible points across all tracks
func (v VisibleSet) Count() int {
	n := 0
	for _, indices := range v {
		n += len(indices)
	}
	return n
}

// Tracks returns the number of tracks with at least one visible point
func (v VisibleSet) Tracks() int {
	n := 0
	for _, indices := range v {
		if len(indices) > 0 {
			n++
		}
	}
	return n
}

// trackPoints lists the indices of one track's points inside a cell
type trackPoints struct {
	track   int
	indices []int
}

// Option configures a Tracker
type Option func(*Tracker)

// WithIndexZoom sets the index resolution to the tile size at zoom, split
// into subdivisions cells per tile edge.
func WithIndexZoom(zoom float64, subdivisions int) Option {
	return func(t *Tracker) {
		t.res = tile.ForZoom(zoom, subdivisions)
	}
}

// WithResolution sets the index cell size directly
func WithResolution(res tile.Resolution) Option {
	return func(t *Tracker) {
		if res.Valid() {
			t.res = res
		}
	}
}

// WithMaxEnumeratedTiles sets the enumeration cutoff
func WithMaxEnumeratedTiles(n int64) Option {
	return func(t *Tracker) {
		if n >= 0 {
			t.maxEnumerated = n
		}
	}
}

// WithPartitions sets the number of R-tree column bands
func WithPartitions(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.partitions = n
		}
	}
}

// WithLogger sets the logger for index rebuilds, nil keeps the no-op default
func WithLogger(log *zap.Logger) Option {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

// Tracker computes visible sets for viewport events.
// It is not safe for concurrent use.
type Tracker struct {
	res           tile.Resolution
	maxEnumerated int64
	partitions    int
	log           *zap.Logger

	indexed        bool
	tracks         []models.Track
	fingerprint    uint64
	hasFingerprint bool
	trackCount     int
	cells       map[tile.ID][]trackPoints
	tree        *rtree.CellIndex[[]trackPoints]

	bounds       models.ViewportBounds
	haveBounds   bool
	visible      VisibleSet
	visibleTiles int64
}

// NewTracker creates an Unindexed tracker
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		res:           tile.ForZoom(DefaultIndexZoom, 1),
		maxEnumerated: DefaultMaxEnumeratedTiles,
		partitions:    runtime.NumCPU(),
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Resolution returns the index cell size
func (t *Tracker) Resolution() tile.Resolution {
	return t.res
}

// Indexed reports whether SetTracks has been called
func (t *Tracker) Indexed() bool {
	return t.indexed
}

// SetTracks rebuilds the index for the tracks and moves the tracker to
// Indexed. Calling it again with identical content leaves the index and the
// visible set untouched. When a viewport was already seen, even before the
// first SetTracks, the visible set is recomputed against it.
func (t *Tracker) SetTracks(tracks []models.Track) VisibleSet {
	same, hashed := t.unchanged(tracks)
	if same {
		t.log.Debug("track set unchanged, index kept",
			zap.Int("tracks", len(tracks)),
			zap.Bool("hashed", hashed),
		)
		return t.visible
	}

	start := time.Now()
	cells := make(map[tile.ID][]trackPoints)
	points := 0
	for ti, tr := range tracks {
		for pi, p := range tr.Points {
			id := tile.Of(p.Coordinate, t.res)
			entries := cells[id]
			// Points are visited in track order, so only the tail can match
			if n := len(entries); n > 0 && entries[n-1].track == ti {
				entries[n-1].indices = append(entries[n-1].indices, pi)
			} else {
				entries = append(entries, trackPoints{track: ti, indices: []int{pi}})
			}
			cells[id] = entries
			points++
		}
	}

	tree := rtree.NewCellIndex[[]trackPoints](t.res.Columns(), t.partitions)
	for id, entries := range cells {
		tree.Insert(id, entries)
	}

	t.cells = cells
	t.tree = tree
	t.tracks = tracks
	t.trackCount = len(tracks)
	t.indexed = true
	if !hashed {
		// Hashed lazily, only when a later track set has the same shape
		t.hasFingerprint = false
	}

	t.log.Debug("visibility index rebuilt",
		zap.Int("tracks", len(tracks)),
		zap.Int("points", points),
		zap.Int("cells", len(cells)),
		zap.Bool("hashed", hashed),
		zap.Duration("took", time.Since(start)),
	)

	if t.haveBounds {
		return t.apply(t.bounds)
	}
	t.visible = emptySet(t.trackCount)
	t.visibleTiles = 0
	return t.visible
}

// OnViewportChange recomputes the visible set for the viewport.
// It yields an empty set while Unindexed and for missing or invalid bounds.
// Valid bounds seen while Unindexed are kept for the first SetTracks.
func (t *Tracker) OnViewportChange(bounds models.ViewportBounds) VisibleSet {
	if bounds.IsZero() || !bounds.Valid() {
		t.haveBounds = false
		if !t.indexed {
			return VisibleSet{}
		}
		t.visible = emptySet(t.trackCount)
		t.visibleTiles = 0
		return t.visible
	}
	t.bounds = bounds
	t.haveBounds = true
	if !t.indexed {
		return VisibleSet{}
	}
	return t.apply(bounds)
}

// Visible returns the set computed by the last viewport change
func (t *Tracker) Visible() VisibleSet {
	return t.visible
}

// VisibleTileCount returns the number of grid cells intersecting the last
// viewport, occupied or not.
func (t *Tracker) VisibleTileCount() int64 {
	return t.visibleTiles
}

// OccupiedCells returns the number of cells holding at least one point
func (t *Tracker) OccupiedCells() int {
	return len(t.cells)
}

func (t *Tracker) apply(bounds models.ViewportBounds) VisibleSet {
	ranges := tile.RangesForBounds(bounds, t.res)
	count := tile.CountForBounds(bounds, t.res)

	set := emptySet(t.trackCount)
	collect := func(entries []trackPoints) {
		for _, e := range entries {
			set[e.track] = append(set[e.track], e.indices...)
		}
	}

	if count <= t.maxEnumerated {
		for _, id := range tile.TilesForBounds(bounds, t.res) {
			collect(t.cells[id])
		}
	} else {
		for _, r := range ranges {
			found, err := t.tree.Query(r)
			if err != nil {
				t.log.Warn("failed to query cell index, scanning cells", zap.Error(err))
				for id, entries := range t.cells {
					if r.Contains(id) {
						collect(entries)
					}
				}
				continue
			}
			for _, e := range found {
				collect(e.Value)
			}
		}
	}

	for _, indices := range set {
		sort.Ints(indices)
	}

	t.visible = set
	t.visibleTiles = count
	return set
}

func emptySet(n int) VisibleSet {
	set := make(VisibleSet, n)
	for i := range set {
		set[i] = []int{}
	}
	return set
}

// unchanged reports whether tracks match the indexed set. Differing shapes
// are a change without hashing, and shared point slices are equal without
// hashing since points are immutable once loaded. Only same-shaped copies
// pay for a content hash, reported by hashed.
func (t *Tracker) unchanged(tracks []models.Track) (same, hashed bool) {
	if !t.indexed || len(tracks) != len(t.tracks) {
		return false, false
	}
	shared := true
	for i, tr := range tracks {
		prev := t.tracks[i].Points
		if len(tr.Points) != len(prev) {
			return false, false
		}
		if len(prev) > 0 && &tr.Points[0] != &prev[0] {
			shared = false
		}
	}
	if shared {
		return true, false
	}

	if !t.hasFingerprint {
		fp, err := fingerprint(t.tracks)
		if err != nil {
			t.log.Warn("failed to fingerprint tracks, rebuilding index", zap.Error(err))
			return false, false
		}
		t.fingerprint, t.hasFingerprint = fp, true
	}
	fp, err := fingerprint(tracks)
	if err != nil {
		t.log.Warn("failed to fingerprint tracks, rebuilding index", zap.Error(err))
		return false, false
	}
	if fp == t.fingerprint {
		return true, true
	}
	t.fingerprint = fp
	return false, true
}

// fingerprint hashes the coordinates of every track. Only positions affect
// the index, so names and timestamps are left out.
func fingerprint(tracks []models.Track) (uint64, error) {
	coords := make([][]models.Coordinate, len(tracks))
	for i, tr := range tracks {
		coords[i] = make([]models.Coordinate, len(tr.Points))
		for j, p := range tr.Points {
			coords[i][j] = p.Coordinate
		}
	}
	return hashstructure.Hash(coords, hashstructure.FormatV2, nil)
}
