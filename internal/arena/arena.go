// Package arena is the combat world: a Chipmunk space for hurtbox overlap
// and line-of-sight queries plus a nav grid for the floor, ground probes and
// flow-field pathing. The ground plane is X/Z; Chipmunk's Y axis carries Z.
//
// An Arena is not safe for concurrent use. The engine only touches it with
// its own lock held.
package arena

import (
	"log"
	"math"
	"sort"

	"github.com/jakecoffman/cp"

	"brawler/internal/game"
	"brawler/internal/game/spatial"
)

// Collision categories.
const (
	catWall uint = 1 << iota
	catCombatant
	catCorpse
)

// flowFieldCache bounds how many goal cells keep a generated flow field.
const flowFieldCache = 64

// wallRef is stored in wall shapes' UserData; it indexes Arena.wallHeights.
type wallRef int

type trackedBody struct {
	body   *cp.Body
	shape  *cp.Shape
	center game.Vec3
	radius float64
	layer  game.LayerMask
}

// Arena implements game.World.
type Arena struct {
	layout Layout
	bounds game.Bounds

	space       *cp.Space
	wallHeights []float64

	nav   *spatial.NavGrid
	flows *spatial.FlowFieldManager

	bodies map[game.BodyID]*trackedBody
}

// New builds an arena from a validated layout.
func New(layout Layout) *Arena {
	b := layout.Bounds()
	a := &Arena{
		layout: layout,
		bounds: b,
		space:  cp.NewSpace(),
		nav:    spatial.NewNavGrid(b.MinX, b.MinZ, layout.Width, layout.Depth, layout.CellSize),
		bodies: make(map[game.BodyID]*trackedBody),
	}

	for _, p := range layout.Platforms {
		a.nav.SetRect(p.MinX, p.MinZ, p.MaxX, p.MaxZ, true, p.Height)
	}
	for _, p := range layout.Pits {
		a.nav.SetRect(p.MinX, p.MinZ, p.MaxX, p.MaxZ, false, 0)
	}
	for _, w := range layout.Walls {
		a.nav.SetRect(w.MinX, w.MinZ, w.MaxX, w.MaxZ, false, 0)
		bb := cp.BB{L: w.MinX, B: w.MinZ, R: w.MaxX, T: w.MaxZ}
		a.addWall(cp.NewBox2(a.space.StaticBody, bb, 0), w.Height)
	}

	// world bounds block everything at any height
	corners := []cp.Vector{
		{X: b.MinX, Y: b.MinZ}, {X: b.MaxX, Y: b.MinZ},
		{X: b.MaxX, Y: b.MaxZ}, {X: b.MinX, Y: b.MaxZ},
	}
	for i := range corners {
		seg := cp.NewSegment(a.space.StaticBody, corners[i], corners[(i+1)%len(corners)], 0.1)
		a.addWall(seg, math.Inf(1))
	}

	a.flows = spatial.NewFlowFieldManager(a.nav, flowFieldCache)

	log.Printf("🏟️ Arena %q ready: %.0fx%.0fm, %d walls, %d pits, %d platforms",
		layout.Name, layout.Width, layout.Depth, len(layout.Walls), len(layout.Pits), len(layout.Platforms))
	return a
}

func (a *Arena) addWall(shape *cp.Shape, height float64) {
	shape.Filter = cp.NewShapeFilter(cp.NO_GROUP, catWall, cp.ALL_CATEGORIES)
	shape.UserData = wallRef(len(a.wallHeights))
	a.wallHeights = append(a.wallHeights, height)
	a.space.AddShape(shape)
}

// Layout returns the layout the arena was built from.
func (a *Arena) Layout() Layout { return a.layout }

// Bounds returns the ground rectangle of the arena.
func (a *Arena) Bounds() game.Bounds { return a.bounds }

func flat(v game.Vec3) cp.Vector {
	return cp.Vector{X: v.X, Y: v.Z}
}

func categoriesFor(layers game.LayerMask) uint {
	var cats uint
	if layers&game.LayerCombatant != 0 {
		cats |= catCombatant
	}
	if layers&game.LayerCorpse != 0 {
		cats |= catCorpse
	}
	if layers&game.LayerObstacle != 0 {
		cats |= catWall
	}
	return cats
}

// =============================================================================
// BODY TRACKING
// =============================================================================

// UpsertBody adds or moves one hurtbox sphere.
func (a *Arena) UpsertBody(body game.Body, radius float64, layer game.LayerMask) {
	t, ok := a.bodies[body.ID]
	if ok && t.center == body.Position && t.radius == radius && t.layer == layer {
		return
	}

	if !ok {
		t = &trackedBody{body: a.space.AddBody(cp.NewKinematicBody())}
		a.bodies[body.ID] = t
	} else {
		// Chipmunk only re-indexes a shape's bounding box when it is added.
		a.space.RemoveShape(t.shape)
	}
	if t.shape == nil || t.radius != radius {
		t.shape = cp.NewCircle(t.body, radius, cp.Vector{})
		t.shape.UserData = body.ID
	}
	t.shape.Filter = cp.NewShapeFilter(cp.NO_GROUP, categoriesFor(layer), cp.ALL_CATEGORIES)
	t.body.SetPosition(flat(body.Position))
	a.space.AddShape(t.shape)

	t.center = body.Position
	t.radius = radius
	t.layer = layer
}

// RemoveBody forgets a hurtbox. Unknown IDs are ignored.
func (a *Arena) RemoveBody(id game.BodyID) {
	t, ok := a.bodies[id]
	if !ok {
		return
	}
	a.space.RemoveShape(t.shape)
	a.space.RemoveBody(t.body)
	delete(a.bodies, id)
}

// BodyCount returns the number of tracked hurtboxes.
func (a *Arena) BodyCount() int { return len(a.bodies) }

// =============================================================================
// GEOMETRY QUERIES
// =============================================================================

// OverlapShape returns every body on layers whose sphere intersects the
// sphere of radius around origin, ordered by body ID. The cone is left to
// the caller.
func (a *Arena) OverlapShape(origin game.Vec3, radius, coneAngle float64, layers game.LayerMask) []game.Body {
	cats := categoriesFor(layers)
	if radius <= 0 || cats == 0 {
		return nil
	}

	var out []game.Body
	filter := cp.NewShapeFilter(cp.NO_GROUP, cp.ALL_CATEGORIES, cats)
	a.space.BBQuery(cp.NewBBForCircle(flat(origin), radius), filter, func(shape *cp.Shape, _ interface{}) {
		id, ok := shape.UserData.(game.BodyID)
		if !ok {
			return
		}
		t := a.bodies[id]
		if t == nil || t.center.Dist(origin)-t.radius > radius {
			return
		}
		out = append(out, game.Body{ID: id, Position: t.center})
	}, nil)

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LineOfSight reports whether no wall stands between from and to. A wall
// only blocks where the ray passes below its top.
func (a *Arena) LineOfSight(from, to game.Vec3) bool {
	start, end := flat(from), flat(to)
	if start.Distance(end) < 1e-9 {
		return true
	}

	clear := true
	filter := cp.NewShapeFilter(cp.NO_GROUP, cp.ALL_CATEGORIES, catWall)
	a.space.SegmentQuery(start, end, 0, filter, func(shape *cp.Shape, _, _ cp.Vector, alpha float64, _ interface{}) {
		ref, ok := shape.UserData.(wallRef)
		if !clear || !ok {
			return
		}
		if y := from.Y + (to.Y-from.Y)*alpha; y < a.wallHeights[ref] {
			clear = false
		}
	}, nil)
	return clear
}

func (a *Arena) inPit(x, z float64) bool {
	for _, p := range a.layout.Pits {
		if p.contains(x, z) {
			return true
		}
	}
	return false
}

// GroundProbe casts straight down from pos. Pits and the outside of the
// arena have no floor; walls stand on floor height 0.
func (a *Arena) GroundProbe(pos game.Vec3, depth float64) (game.GroundPoint, bool) {
	idx, ok := a.nav.Cell(pos.X, pos.Z)
	if !ok || a.inPit(pos.X, pos.Z) {
		return game.GroundPoint{}, false
	}
	floor := a.nav.Height(idx)
	if floor > pos.Y || floor < pos.Y-depth {
		return game.GroundPoint{}, false
	}
	return game.GroundPoint{Position: game.Vec3{X: pos.X, Y: floor, Z: pos.Z}, Normal: game.Up}, true
}

// NearestNavigablePoint returns pos on its own floor when it stands on a
// walkable cell, else the centre of the closest walkable cell in range.
func (a *Arena) NearestNavigablePoint(pos game.Vec3, searchRadius float64) (game.Vec3, bool) {
	idx, ok := a.nav.NearestWalkable(pos.X, pos.Z, searchRadius)
	if !ok {
		return game.Vec3{}, false
	}
	if own, in := a.nav.Cell(pos.X, pos.Z); in && own == idx && !a.inPit(pos.X, pos.Z) {
		return game.Vec3{X: pos.X, Y: a.nav.Height(idx), Z: pos.Z}, true
	}
	x, z := a.nav.CellCenter(idx)
	return game.Vec3{X: x, Y: a.nav.Height(idx), Z: z}, true
}

// NextWaypoint steers from toward to along the shared flow field of to's
// cell. The waypoint is the centre of the next cell, or to itself once the
// goal cell is reached.
func (a *Arena) NextWaypoint(from, to game.Vec3) (game.Vec3, bool) {
	field := a.flows.Toward(to.X, to.Z)
	if field == nil {
		return game.Vec3{}, false
	}
	fromIdx, ok := a.nav.Cell(from.X, from.Z)
	if !ok {
		return game.Vec3{}, false
	}
	if goalIdx, _ := a.nav.Cell(to.X, to.Z); goalIdx == fromIdx {
		return to, true
	}

	vx, vz, ok := field.Lookup(from.X, from.Z)
	if !ok {
		return game.Vec3{}, false
	}
	if vx == 0 && vz == 0 {
		// standing on a blocked cell next to the path; head straight for it
		return to, true
	}

	_, _, cell := a.nav.Dimensions()
	cx, cz := a.nav.CellCenter(fromIdx)
	next, ok := a.nav.Cell(cx+sign(vx)*cell, cz+sign(vz)*cell)
	if !ok {
		return game.Vec3{}, false
	}
	nx, nz := a.nav.CellCenter(next)
	return game.Vec3{X: nx, Y: a.nav.Height(next), Z: nz}, true
}

func sign(v float32) float64 {
	switch {
	case v > 0.1:
		return 1
	case v < -0.1:
		return -1
	}
	return 0
}

// FlowFields returns how many goal fields are cached.
func (a *Arena) FlowFields() int { return a.flows.Len() }
