package spatial

import (
	"math"
)

// NavGrid is the walkable floor of an arena sampled on a uniform X/Z grid.
// Each cell is either walkable at a given floor height or blocked (wall, pit).
type NavGrid struct {
	originX, originZ float64
	cellSize         float64
	invCellSize      float64
	cols, rows       int
	walkable         []bool
	height           []float64
}

// NewNavGrid creates a fully walkable grid at height 0.
func NewNavGrid(originX, originZ, width, depth, cellSize float64) *NavGrid {
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

	n := &NavGrid{
		originX:     originX,
		originZ:     originZ,
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		walkable:    make([]bool, cols*rows),
		height:      make([]float64, cols*rows),
	}
	for i := range n.walkable {
		n.walkable[i] = true
	}
	return n
}

// Cell returns the cell index containing (x, z), or false if out of bounds.
func (n *NavGrid) Cell(x, z float64) (int, bool) {
	col := int(math.Floor((x - n.originX) * n.invCellSize))
	row := int(math.Floor((z - n.originZ) * n.invCellSize))
	if col < 0 || col >= n.cols || row < 0 || row >= n.rows {
		return -1, false
	}
	return row*n.cols + col, true
}

// CellCenter returns the ground-plane center of a cell.
func (n *NavGrid) CellCenter(idx int) (x, z float64) {
	col := idx % n.cols
	row := idx / n.cols
	return n.originX + (float64(col)+0.5)*n.cellSize, n.originZ + (float64(row)+0.5)*n.cellSize
}

// Walkable reports whether a cell index is in bounds and walkable.
func (n *NavGrid) Walkable(idx int) bool {
	return idx >= 0 && idx < len(n.walkable) && n.walkable[idx]
}

// Height returns the floor height of a cell.
func (n *NavGrid) Height(idx int) float64 {
	return n.height[idx]
}

// SetRect marks every cell whose center lies inside the rectangle.
func (n *NavGrid) SetRect(minX, minZ, maxX, maxZ float64, walkable bool, height float64) int {
	marked := 0
	for idx := range n.walkable {
		cx, cz := n.CellCenter(idx)
		if cx < minX || cx > maxX || cz < minZ || cz > maxZ {
			continue
		}
		n.walkable[idx] = walkable
		n.height[idx] = height
		marked++
	}
	return marked
}

// NearestWalkable finds the walkable cell whose center is closest to (x, z)
// within radius. The cell containing the point wins if it is walkable.
func (n *NavGrid) NearestWalkable(x, z, radius float64) (int, bool) {
	if idx, ok := n.Cell(x, z); ok && n.walkable[idx] {
		return idx, true
	}

	span := int(math.Ceil(radius*n.invCellSize)) + 1
	col := int(math.Floor((x - n.originX) * n.invCellSize))
	row := int(math.Floor((z - n.originZ) * n.invCellSize))

	best, bestDist := -1, math.MaxFloat64
	for r := row - span; r <= row+span; r++ {
		if r < 0 || r >= n.rows {
			continue
		}
		for c := col - span; c <= col+span; c++ {
			if c < 0 || c >= n.cols {
				continue
			}
			idx := r*n.cols + c
			if !n.walkable[idx] {
				continue
			}
			cx, cz := n.CellCenter(idx)
			d := math.Hypot(cx-x, cz-z)
			if d <= radius && d < bestDist {
				best, bestDist = idx, d
			}
		}
	}
	return best, best >= 0
}

// Dimensions returns the grid dimensions.
func (n *NavGrid) Dimensions() (cols, rows int, cellSize float64) {
	return n.cols, n.rows, n.cellSize
}
