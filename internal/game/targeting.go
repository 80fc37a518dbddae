package game

import (
	"math"

	"brawler/internal/game/spatial"
)

// Bounds is the ground-plane rectangle the broad phase covers.
type Bounds struct {
	MinX, MinZ float64
	MaxX, MaxZ float64
}

// DefaultBounds is used when the world does not report its own extent.
var DefaultBounds = Bounds{MinX: -128, MinZ: -128, MaxX: 128, MaxZ: 128}

// boundedWorld is implemented by worlds that know their extent.
type boundedWorld interface {
	Bounds() Bounds
}

// NearestHostileTargeter assigns every AI character the closest living
// character of another team within range. Player-controlled characters keep
// whatever target they were given.
type NearestHostileTargeter struct {
	grid  *spatial.SpatialGrid
	rng   float64
	index []*Character // grid entity ID -> character, rebuilt per pass
}

// NewNearestHostileTargeter creates a targeter over bounds. searchRange is
// the farthest a new target may be; cellSize should be close to it.
func NewNearestHostileTargeter(bounds Bounds, cellSize, searchRange float64, maxCharacters int) *NearestHostileTargeter {
	grid := spatial.NewSpatialGrid(bounds.MinX, bounds.MinZ,
		bounds.MaxX-bounds.MinX, bounds.MaxZ-bounds.MinZ, cellSize, maxCharacters)
	return &NearestHostileTargeter{
		grid:  grid,
		rng:   searchRange,
		index: make([]*Character, 0, maxCharacters),
	}
}

// Retarget runs one pass over characters (expected in ID order so ties break
// deterministically) and returns how many targets changed.
func (t *NearestHostileTargeter) Retarget(characters []*Character) int {
	t.grid.Clear()
	t.index = t.index[:0]
	for _, c := range characters {
		if c.IsDead() {
			continue
		}
		pos := c.Position()
		t.grid.Insert(uint32(len(t.index)), pos.X, pos.Z)
		t.index = append(t.index, c)
	}

	changed := 0
	for _, c := range characters {
		if c.IsDead() || c.Controller() != ControllerAI {
			continue
		}
		best := t.nearestHostile(c)
		var id CharacterID
		if best != nil {
			id = best.ID()
		}
		if id != c.target {
			c.target = id
			changed++
		}
	}
	return changed
}

func (t *NearestHostileTargeter) nearestHostile(c *Character) *Character {
	pos := c.Position()
	var best *Character
	bestDist := math.Inf(1)
	for _, id := range t.grid.QueryRadius(pos.X, pos.Z, t.rng) {
		other := t.index[id]
		if other == c || sameTeam(c, other) {
			continue
		}
		d := other.Position().Sub(pos).HorizontalLen()
		if d > t.rng || d >= bestDist {
			continue
		}
		best, bestDist = other, d
	}
	return best
}

// Stats exposes the broad-phase grid occupancy of the last pass.
func (t *NearestHostileTargeter) Stats() spatial.GridStats {
	return t.grid.Stats()
}

// wantsToStrike reports whether an AI attacker at pos facing forward would
// reach target with attack. Used to decide when AI characters swing.
func wantsToStrike(pos, forward, target Vec3, attack AttackDefinition) bool {
	offset := target.Sub(pos)
	if offset.HorizontalLen() > attack.Range {
		return false
	}
	if attack.ConeAngleDegrees <= 0 || attack.ConeAngleDegrees >= 360 {
		return true
	}
	half := attack.ConeAngleDegrees / 2 * math.Pi / 180
	return withinCone(forward.Horizontal().Normalize(), offset, half)
}
