package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNavGridCells tests point to cell mapping and cell centres
func TestNavGridCells(t *testing.T) {
	n := NewNavGrid(-5, -5, 10, 10, 1)
	cols, rows, size := n.Dimensions()
	assert.Equal(t, 10, cols)
	assert.Equal(t, 10, rows)
	assert.Equal(t, 1.0, size)

	idx, ok := n.Cell(0.2, -4.7)
	require.True(t, ok)
	assert.Equal(t, 5, idx)
	x, z := n.CellCenter(idx)
	assert.Equal(t, 0.5, x)
	assert.Equal(t, -4.5, z)

	_, ok = n.Cell(5.1, 0)
	assert.False(t, ok)
	assert.False(t, n.Walkable(-1))
}

// TestNavGridSetRect tests marking blocked cells and raised floors
func TestNavGridSetRect(t *testing.T) {
	n := NewNavGrid(0, 0, 10, 10, 1)
	assert.Equal(t, 4, n.SetRect(2, 2, 4, 4, false, 0))
	assert.Equal(t, 2, n.SetRect(6, 6, 8, 7, true, 1.5))

	idx, _ := n.Cell(3, 3)
	assert.False(t, n.Walkable(idx))
	idx, _ = n.Cell(7.5, 6.5)
	assert.True(t, n.Walkable(idx))
	assert.Equal(t, 1.5, n.Height(idx))
}

// TestNavGridNearestWalkable tests projecting blocked points onto the floor
func TestNavGridNearestWalkable(t *testing.T) {
	n := NewNavGrid(0, 0, 10, 10, 1)
	n.SetRect(0, 0, 3, 10, false, 0) // columns 0-2 blocked

	idx, ok := n.NearestWalkable(5.5, 5.5, 1)
	require.True(t, ok)
	own, _ := n.Cell(5.5, 5.5)
	assert.Equal(t, own, idx, "walkable cells answer for themselves")

	idx, ok = n.NearestWalkable(2.9, 5.5, 1)
	require.True(t, ok)
	x, z := n.CellCenter(idx)
	assert.Equal(t, 3.5, x)
	assert.Equal(t, 5.5, z)

	_, ok = n.NearestWalkable(0.5, 5.5, 1)
	assert.False(t, ok, "nothing walkable in range")
}
