package game

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"brawler/internal/config"
)

const testDT = 1.0 / 30

// fakeBody is one sphere tracked by fakeWorld.
type fakeBody struct {
	center Vec3
	radius float64
	layer  LayerMask
}

// fakeWorld is a flat floor at height 0 with optional holes and an optional
// infinitely tall wall on the plane x = wallX.
type fakeWorld struct {
	hole   func(x, z float64) bool
	noNav  bool
	wall   bool
	wallX  float64
	bodies map[BodyID]fakeBody
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{bodies: make(map[BodyID]fakeBody)}
}

func (w *fakeWorld) OverlapShape(origin Vec3, radius, _ float64, layers LayerMask) []Body {
	var out []Body
	for id, b := range w.bodies {
		if b.layer&layers == 0 || b.center.Dist(origin)-b.radius > radius {
			continue
		}
		out = append(out, Body{ID: id, Position: b.center})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *fakeWorld) LineOfSight(from, to Vec3) bool {
	if !w.wall {
		return true
	}
	return (from.X-w.wallX)*(to.X-w.wallX) >= 0
}

func (w *fakeWorld) GroundProbe(pos Vec3, depth float64) (GroundPoint, bool) {
	if w.hole != nil && w.hole(pos.X, pos.Z) {
		return GroundPoint{}, false
	}
	if pos.Y < 0 || pos.Y-depth > 0 {
		return GroundPoint{}, false
	}
	return GroundPoint{Position: Vec3{X: pos.X, Z: pos.Z}, Normal: Up}, true
}

func (w *fakeWorld) NearestNavigablePoint(pos Vec3, _ float64) (Vec3, bool) {
	if w.noNav {
		return Vec3{}, false
	}
	return Vec3{X: pos.X, Z: pos.Z}, true
}

func (w *fakeWorld) NextWaypoint(_, to Vec3) (Vec3, bool) {
	return to, true
}

func (w *fakeWorld) UpsertBody(body Body, radius float64, layer LayerMask) {
	w.bodies[body.ID] = fakeBody{center: body.Position, radius: radius, layer: layer}
}

func (w *fakeWorld) RemoveBody(id BodyID) {
	delete(w.bodies, id)
}

// testChain is a three-hit chain with no reactions so targets stay put.
func testChain() ComboChain {
	return ComboChain{
		Name:   "test",
		Window: time.Second,
		Attacks: []AttackDefinition{
			{Name: "one", Damage: 10, Range: 3, AnimationDuration: 300 * time.Millisecond, DamageDelay: 100 * time.Millisecond},
			{Name: "two", Damage: 10, Range: 3, AnimationDuration: 300 * time.Millisecond, DamageDelay: 100 * time.Millisecond},
			{Name: "three", Damage: 20, Range: 3, AnimationDuration: 300 * time.Millisecond, DamageDelay: 100 * time.Millisecond},
		},
	}
}

func testMoveset() *Moveset {
	slow := ComboChain{
		Name:   "slow",
		Window: time.Second,
		Attacks: []AttackDefinition{
			{Name: "windup", Damage: 50, Range: 3, AnimationDuration: 600 * time.Millisecond, DamageDelay: 300 * time.Millisecond},
		},
	}
	shove := ComboChain{
		Name:   "shove",
		Window: time.Second,
		Attacks: []AttackDefinition{
			{Name: "push", Damage: 5, KnockbackForce: 6, Range: 3, AnimationDuration: 300 * time.Millisecond, DamageDelay: 50 * time.Millisecond},
		},
	}
	return &Moveset{chains: map[string]ComboChain{"test": testChain(), "slow": slow, "shove": shove}}
}

// newTestCharacter builds a standalone character on w.
func newTestCharacter(t *testing.T, w World, sched *Scheduler, id CharacterID, team string, pos Vec3, maxHP int) *Character {
	t.Helper()
	combo, err := NewComboResolver(testChain())
	require.NoError(t, err)
	tuning := config.DefaultCombat()
	return newCharacter(SpawnOptions{ID: id, Name: string(id), Team: team, MaxHealth: maxHP, Position: pos},
		combo, &tuning, w, sched, 0)
}

// registerBodies puts c's hurtboxes into w and owners.
func registerBodies(w *fakeWorld, owners bodyIndex, c *Character, first BodyID) {
	for i := range c.hurtboxes {
		id := first + BodyID(i)
		owners[id] = c
		w.UpsertBody(Body{ID: id, Position: c.hurtboxCenter(i)}, c.hurtboxes[i].Radius, LayerCombatant)
	}
}
