package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brawler/internal/game"
)

// testLayout is a 20m square: a 3m wall along x=0 from z=-10 to z=5, a pit
// in the north-east corner and a 1m platform in the north-west.
func testLayout() Layout {
	return Layout{
		Name:      "test",
		Width:     20,
		Depth:     20,
		CellSize:  1,
		Walls:     []Rect{{MinX: -0.5, MinZ: -10, MaxX: 0.5, MaxZ: 5, Height: 3}},
		Pits:      []Rect{{MinX: 5, MinZ: 5, MaxX: 10, MaxZ: 10}},
		Platforms: []Rect{{MinX: -10, MinZ: 5, MaxX: -5, MaxZ: 10, Height: 1}},
	}
}

func newTestArena(t *testing.T) *Arena {
	t.Helper()
	l := testLayout()
	require.NoError(t, l.Validate())
	return New(l)
}

// TestArenaOverlapShape tests sphere overlap, layer filtering and ID order
func TestArenaOverlapShape(t *testing.T) {
	a := newTestArena(t)
	a.UpsertBody(game.Body{ID: 3, Position: game.V3(2, 0.9, 0)}, 0.5, game.LayerCombatant)
	a.UpsertBody(game.Body{ID: 1, Position: game.V3(-2, 0.9, -1)}, 0.5, game.LayerCombatant)
	a.UpsertBody(game.Body{ID: 2, Position: game.V3(1, 0.9, 1)}, 0.5, game.LayerCorpse)
	a.UpsertBody(game.Body{ID: 4, Position: game.V3(8, 0.9, -8)}, 0.5, game.LayerCombatant)
	assert.Equal(t, 4, a.BodyCount())

	got := a.OverlapShape(game.V3(0, 0.9, 0), 3, 0, game.LayerCombatant)
	require.Len(t, got, 2)
	assert.Equal(t, []game.BodyID{1, 3}, []game.BodyID{got[0].ID, got[1].ID})
	assert.Equal(t, game.V3(2, 0.9, 0), got[1].Position)

	got = a.OverlapShape(game.V3(0, 0.9, 0), 3, 0, game.LayerCorpse)
	require.Len(t, got, 1)
	assert.Equal(t, game.BodyID(2), got[0].ID)

	// a body high above the origin is out of a 3D sphere
	a.UpsertBody(game.Body{ID: 3, Position: game.V3(2, 6, 0)}, 0.5, game.LayerCombatant)
	got = a.OverlapShape(game.V3(0, 0.9, 0), 3, 0, game.LayerCombatant)
	require.Len(t, got, 1)
	assert.Equal(t, game.BodyID(1), got[0].ID)

	assert.Nil(t, a.OverlapShape(game.V3(0, 0, 0), 0, 0, game.LayerCombatant))
}

// TestArenaBodyMoves tests re-upserting moves a body and removal forgets it
func TestArenaBodyMoves(t *testing.T) {
	a := newTestArena(t)
	a.UpsertBody(game.Body{ID: 7, Position: game.V3(-8, 0.9, -8)}, 0.5, game.LayerCombatant)
	assert.Empty(t, a.OverlapShape(game.V3(8, 0.9, 8), 1, 0, game.LayerCombatant))

	a.UpsertBody(game.Body{ID: 7, Position: game.V3(8, 0.9, 8)}, 0.5, game.LayerCombatant)
	assert.Len(t, a.OverlapShape(game.V3(8, 0.9, 8), 1, 0, game.LayerCombatant), 1)
	assert.Empty(t, a.OverlapShape(game.V3(-8, 0.9, -8), 1, 0, game.LayerCombatant))

	a.RemoveBody(7)
	a.RemoveBody(7)
	assert.Zero(t, a.BodyCount())
	assert.Empty(t, a.OverlapShape(game.V3(8, 0.9, 8), 1, 0, game.LayerCombatant))
}

// TestArenaLineOfSight tests walls block rays below their top only
func TestArenaLineOfSight(t *testing.T) {
	a := newTestArena(t)
	tests := []struct {
		name     string
		from, to game.Vec3
		want     bool
	}{
		{"open floor", game.V3(2, 1.2, 0), game.V3(6, 1.2, -4), true},
		{"through the wall", game.V3(-3, 1.2, 0), game.V3(3, 1.2, 0), false},
		{"over the wall", game.V3(-3, 4, 0), game.V3(3, 4, 0), true},
		{"climbing over the top", game.V3(-3, 1, 0), game.V3(3, 6, 0), true},
		{"past the end of the wall", game.V3(-3, 1.2, 7), game.V3(3, 1.2, 7), true},
		{"same point", game.V3(1, 1, 1), game.V3(1, 1, 1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.LineOfSight(tt.from, tt.to))
		})
	}
}

// TestArenaGroundProbe tests floor, platform, pit and out-of-bounds probes
func TestArenaGroundProbe(t *testing.T) {
	a := newTestArena(t)
	tests := []struct {
		name   string
		pos    game.Vec3
		depth  float64
		wantOK bool
		wantY  float64
	}{
		{"floor", game.V3(3, 0.3, 3), 0.55, true, 0},
		{"too high above the floor", game.V3(3, 2, 3), 0.55, false, 0},
		{"platform", game.V3(-7.5, 1.3, 7.5), 0.55, true, 1},
		{"under the platform top", game.V3(-7.5, 0.3, 7.5), 0.55, false, 0},
		{"pit", game.V3(7, 0.3, 7), 10, false, 0},
		{"outside", game.V3(15, 0.3, 0), 10, false, 0},
		{"wall footprint", game.V3(0, 0.3, -3), 0.55, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gp, ok := a.GroundProbe(tt.pos, tt.depth)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantY, gp.Position.Y)
				assert.Equal(t, game.Up, gp.Normal)
			}
		})
	}
}

// TestArenaNearestNavigablePoint tests projection onto walkable cells
func TestArenaNearestNavigablePoint(t *testing.T) {
	a := newTestArena(t)

	p, ok := a.NearestNavigablePoint(game.V3(3, 2, 3), 3)
	require.True(t, ok)
	assert.Equal(t, game.V3(3, 0, 3), p, "walkable points keep their X/Z")

	p, ok = a.NearestNavigablePoint(game.V3(-7, 4, 7), 3)
	require.True(t, ok)
	assert.Equal(t, 1.0, p.Y, "platform height")

	p, ok = a.NearestNavigablePoint(game.V3(0.2, 0, -3.5), 3)
	require.True(t, ok)
	assert.Equal(t, game.V3(1.5, 0, -3.5), p, "nearest cell out of the wall")

	p, ok = a.NearestNavigablePoint(game.V3(7, 0, 7), 3)
	require.True(t, ok)
	assert.False(t, a.inPit(p.X, p.Z))
	assert.LessOrEqual(t, p.Sub(game.V3(7, 0, 7)).HorizontalLen(), 3.0)

	_, ok = a.NearestNavigablePoint(game.V3(7.5, 0, 7.5), 0.5)
	assert.False(t, ok)
}

// TestArenaNextWaypoint tests flow-field steering around the wall
func TestArenaNextWaypoint(t *testing.T) {
	a := newTestArena(t)

	wp, ok := a.NextWaypoint(game.V3(-3, 0, -3), game.V3(3, 0, -3))
	require.True(t, ok)
	assert.Greater(t, wp.Z, -2.5, "heads north toward the gap")
	assert.Less(t, wp.X, -0.5, "never steps into the wall")
	assert.Equal(t, 1, a.FlowFields())

	goal := game.V3(3.2, 0, -3.1)
	wp, ok = a.NextWaypoint(game.V3(3.4, 0, -3.4), goal)
	require.True(t, ok)
	assert.Equal(t, goal, wp, "same cell steers straight at the goal")

	_, ok = a.NextWaypoint(game.V3(3, 0, 3), game.V3(0, 0, -3))
	assert.False(t, ok, "goal inside the wall")

	_, ok = a.NextWaypoint(game.V3(30, 0, 3), game.V3(3, 0, 3))
	assert.False(t, ok, "start off the grid")
}
