// Package rtree implements an R-Tree over occupied grid cells, partitioned
// into column bands so that narrow viewport queries only touch the bands
// they overlap.
package rtree

import (
	"fmt"

	"github.com/1F47E/geo-track-view/pkg/tile"
	"github.com/dhconnelly/rtreego"
)

const (
	minChildren = 25
	maxChildren = 50
	dimensions  = 2

	// cellHalf places each cell on [x-0.5, x+0.5] in index space
	cellHalf = 0.5
	// queryInset keeps query rectangles strictly between cell edges
	queryInset = 0.25
)

// Entry is one occupied cell and the value stored for it
type Entry[T any] struct {
	ID    tile.ID
	Value T
}

// spatialCell wraps an entry to implement rtreego.Spatial interface
type spatialCell[T any] struct {
	Entry[T]
	rect *rtreego.Rect
}

func (sc *spatialCell[T]) Bounds() *rtreego.Rect {
	return sc.rect
}

// band is the inclusive column span served by one partition
type band struct {
	minX, maxX int64
}

// CellIndex indexes grid cells for rectangular range lookups
type CellIndex[T any] struct {
	partitions []*rtreego.Rtree
	bands      []band
	bandWidth  int64
	count      int
}

// NewCellIndex creates an index for a grid with the given number of columns,
// split into numPartitions column bands.
func NewCellIndex[T any](columns int64, numPartitions int) *CellIndex[T] {
	if numPartitions <= 0 {
		numPartitions = 1
	}
	if columns < 1 {
		columns = 1
	}
	if int64(numPartitions) > columns {
		numPartitions = int(columns)
	}

	bandWidth := (columns + int64(numPartitions) - 1) / int64(numPartitions)
	partitions := make([]*rtreego.Rtree, numPartitions)
	bands := make([]band, numPartitions)
	for i := 0; i < numPartitions; i++ {
		partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)

		minX := int64(i) * bandWidth
		maxX := minX + bandWidth - 1
		if i == numPartitions-1 {
			maxX = columns - 1 // Ensure last partition covers all remaining columns
		}
		bands[i] = band{minX: minX, maxX: maxX}
	}

	return &CellIndex[T]{
		partitions: partitions,
		bands:      bands,
		bandWidth:  bandWidth,
	}
}

// Insert adds a cell with its value. Inserting the same cell twice stores
// two entries; callers aggregate values per cell before inserting.
func (c *CellIndex[T]) Insert(id tile.ID, value T) {
	p := rtreego.Point{float64(id.X), float64(id.Y)}
	cell := &spatialCell[T]{
		Entry: Entry[T]{ID: id, Value: value},
		rect:  p.ToRect(cellHalf),
	}
	c.partitions[c.partitionFor(id.X)].Insert(cell)
	c.count++
}

// Query returns every stored cell inside the inclusive range
func (c *CellIndex[T]) Query(r tile.Range) ([]Entry[T], error) {
	if r.Count() == 0 {
		return nil, nil
	}

	bounds, err := rtreego.NewRect(
		rtreego.Point{float64(r.MinX) - queryInset, float64(r.MinY) - queryInset},
		[]float64{
			float64(r.MaxX-r.MinX) + 2*queryInset,
			float64(r.MaxY-r.MinY) + 2*queryInset,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid cell range: %w", err)
	}

	var entries []Entry[T]
	for _, idx := range c.relevantPartitions(r) {
		for _, result := range c.partitions[idx].SearchIntersect(bounds) {
			cell, ok := result.(*spatialCell[T])
			if !ok {
				continue
			}
			// Strict boundary check
			if r.Contains(cell.ID) {
				entries = append(entries, cell.Entry)
			}
		}
	}
	return entries, nil
}

// Count returns the number of indexed cells
func (c *CellIndex[T]) Count() int {
	return c.count
}

// Clear removes all cells from the index
func (c *CellIndex[T]) Clear() {
	for i := range c.partitions {
		c.partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)
	}
	c.count = 0
}

func (c *CellIndex[T]) partitionFor(x int64) int {
	idx := int(x / c.bandWidth)
	if idx >= len(c.partitions) {
		idx = len(c.partitions) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// relevantPartitions returns the partitions whose column band overlaps the range
func (c *CellIndex[T]) relevantPartitions(r tile.Range) []int {
	var relevant []int
	last := len(c.bands) - 1
	for i, b := range c.bands {
		// Outer bands also hold any cells that fell outside the grid
		minX, maxX := b.minX, b.maxX
		if i == 0 {
			minX = r.MinX
		}
		if i == last {
			maxX = r.MaxX
		}
		if r.MinX <= maxX && r.MaxX >= minX {
			relevant = append(relevant, i)
		}
	}
	return relevant
}
