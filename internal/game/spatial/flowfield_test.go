package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFlowFieldOpenFloor tests every cell points toward the goal
func TestFlowFieldOpenFloor(t *testing.T) {
	n := NewNavGrid(0, 0, 10, 10, 1)
	f := NewFlowField(n)
	require.True(t, f.Generate(5.5, 5.5))

	vx, vz, ok := f.Lookup(0.5, 5.5)
	require.True(t, ok)
	assert.Equal(t, float32(1), vx)
	assert.Equal(t, float32(0), vz)

	vx, vz, ok = f.Lookup(9.5, 9.5)
	require.True(t, ok)
	assert.Less(t, vx, float32(0))
	assert.Less(t, vz, float32(0))

	assert.Equal(t, float32(0), f.Cost(5.5, 5.5))
	assert.Equal(t, float32(5), f.Cost(0.5, 5.5))
}

// TestFlowFieldRoutesAroundWall tests the field detours around blocked cells
// and never cuts a blocked corner
func TestFlowFieldRoutesAroundWall(t *testing.T) {
	n := NewNavGrid(0, 0, 10, 10, 1)
	n.SetRect(4, 0, 6, 8, false, 0) // wall with a gap along the top rows

	f := NewFlowField(n)
	require.True(t, f.Generate(8.5, 0.5))

	_, vz, ok := f.Lookup(2.5, 0.5)
	require.True(t, ok)
	assert.Greater(t, vz, float32(0), "must head for the gap first")
	assert.Greater(t, f.Cost(2.5, 0.5), float32(6))

	_, _, ok = f.Lookup(5.5, 0.5)
	assert.False(t, ok, "blocked cells have no flow")
}

// TestFlowFieldUnreachableGoal tests blocked goals and sealed regions
func TestFlowFieldUnreachableGoal(t *testing.T) {
	n := NewNavGrid(0, 0, 10, 10, 1)
	n.SetRect(4, 0, 6, 10, false, 0)

	f := NewFlowField(n)
	assert.False(t, f.Generate(5.5, 5.5))

	require.True(t, f.Generate(8.5, 5.5))
	_, _, ok := f.Lookup(1.5, 5.5)
	assert.False(t, ok, "the far side is sealed off")
}

// TestFlowFieldManagerCache tests fields are shared per goal cell and evicted
// when the cache fills
func TestFlowFieldManagerCache(t *testing.T) {
	n := NewNavGrid(0, 0, 10, 10, 1)
	n.SetRect(0, 0, 1, 1, false, 0)
	m := NewFlowFieldManager(n, 2)

	a := m.Toward(5.2, 5.2)
	require.NotNil(t, a)
	assert.Same(t, a, m.Toward(5.8, 5.9), "same goal cell")
	assert.Nil(t, m.Toward(0.5, 0.5), "blocked goal")

	m.Toward(7.5, 7.5)
	assert.Equal(t, 2, m.Len())
	m.Toward(2.5, 7.5)
	assert.Equal(t, 1, m.Len(), "cache was reset when full")
}
