// Package spatial provides the broad-phase and navigation structures used
// by the combat simulation: a uniform grid for neighbour queries, a BFS
// flow field for pathing over the arena floor, and a bounded MPSC queue
// for handing work into the tick goroutine.
//
// All structures use preallocated slices with integer indices (not pointers)
// to keep GC pressure low during a tick.
package spatial

import (
	"math"
)

// SpatialGrid buckets entities on the ground plane (X/Z) into fixed-size cells.
//
// Optimal cell size equals the largest query radius. Cells are stored in
// row-major order (cells[row*cols+col]); rows run along Z.
type SpatialGrid struct {
	originX, originZ float64
	cellSize         float64
	invCellSize      float64
	cols, rows       int
	cells            [][]uint32
	scratch          []uint32 // reused by QueryRadius
}

// NewSpatialGrid creates a grid covering [originX, originX+width) x [originZ, originZ+depth).
// maxEntities is used to preallocate cell capacity.
func NewSpatialGrid(originX, originZ, width, depth, cellSize float64, maxEntities int) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(depth / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint32, cols*rows)
	perCell := maxEntities / len(cells)
	if perCell < 4 {
		perCell = 4
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, perCell)
	}

	return &SpatialGrid{
		originX:     originX,
		originZ:     originZ,
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]uint32, 0, 64),
	}
}

// Clear resets all cells without releasing their memory.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *SpatialGrid) colRow(x, z float64) (int, int) {
	col := clampInt(int(math.Floor((x-g.originX)*g.invCellSize)), 0, g.cols-1)
	row := clampInt(int(math.Floor((z-g.originZ)*g.invCellSize)), 0, g.rows-1)
	return col, row
}

// Insert adds an entity at ground position (x, z). Out-of-bounds positions
// are clamped into the border cells.
func (g *SpatialGrid) Insert(entityID uint32, x, z float64) {
	col, row := g.colRow(x, z)
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], entityID)
}

// QueryRadius returns entity IDs in every cell overlapping the circle.
//
// The returned slice is reused on the next call, and it may contain entities
// outside the radius; callers do the exact distance check.
func (g *SpatialGrid) QueryRadius(cx, cz, radius float64) []uint32 {
	g.scratch = g.scratch[:0]

	minCol, minRow := g.colRow(cx-radius, cz-radius)
	maxCol, maxRow := g.colRow(cx+radius, cz+radius)

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[row*g.cols+col]...)
		}
	}
	return g.scratch
}

// Stats returns grid statistics for debugging/profiling.
func (g *SpatialGrid) Stats() GridStats {
	var total, maxInCell, nonEmpty int
	for _, cell := range g.cells {
		n := len(cell)
		total += n
		if n > maxInCell {
			maxInCell = n
		}
		if n > 0 {
			nonEmpty++
		}
	}
	return GridStats{
		TotalCells:    len(g.cells),
		NonEmptyCells: nonEmpty,
		TotalEntities: total,
		MaxInCell:     maxInCell,
	}
}

// GridStats contains grid statistics for debugging.
type GridStats struct {
	TotalCells    int
	NonEmptyCells int
	TotalEntities int
	MaxInCell     int
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
