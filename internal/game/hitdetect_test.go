package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type detectFixture struct {
	w        *fakeWorld
	owners   bodyIndex
	detector *HitDetector
	attacker *Character
	nextBody BodyID
}

func newDetectFixture(t *testing.T) *detectFixture {
	f := &detectFixture{w: newFakeWorld(), owners: make(bodyIndex), nextBody: 1}
	f.detector = NewHitDetector(f.w, f.owners, 1.2)
	f.attacker = f.add(t, "attacker", "red", Vec3{})
	return f
}

func (f *detectFixture) add(t *testing.T, id CharacterID, team string, pos Vec3) *Character {
	t.Helper()
	c := newTestCharacter(t, f.w, NewScheduler(), id, team, pos, 100)
	registerBodies(f.w, f.owners, c, f.nextBody)
	f.nextBody += BodyID(len(c.hurtboxes))
	return c
}

func (f *detectFixture) detect(attack AttackDefinition) []Hit {
	return f.detector.Detect(f.attacker, f.attacker.Position(), Vec3{X: 1}, attack)
}

// TestDetectDedupsBodies tests a target whose torso and head both qualify is
// reported once
func TestDetectDedupsBodies(t *testing.T) {
	f := newDetectFixture(t)
	f.add(t, "target", "blue", Vec3{X: 1.5})

	hits := f.detect(AttackDefinition{Range: 2})
	require.Len(t, hits, 1)
	assert.Equal(t, CharacterID("target"), hits[0].Target.ID())
	assert.InDelta(t, Vec3{X: 1.5, Y: 0.9}.Len(), hits[0].Distance, 1e-9, "nearest body wins")
}

// TestDetectLineOfSight tests a wall between attacker and target blocks the hit
func TestDetectLineOfSight(t *testing.T) {
	f := newDetectFixture(t)
	f.add(t, "target", "blue", Vec3{X: 1.5})
	f.w.wall, f.w.wallX = true, 0.75

	assert.Empty(t, f.detect(AttackDefinition{Range: 2}))
}

// TestDetectFilters tests self, allies, the dead and out-of-range targets
func TestDetectFilters(t *testing.T) {
	f := newDetectFixture(t)
	f.add(t, "ally", "red", Vec3{X: 1})
	dead := f.add(t, "dead", "blue", Vec3{Z: 1})
	dead.Kill(0)
	f.add(t, "far", "blue", Vec3{X: 5})
	f.add(t, "enemy", "blue", Vec3{X: -1})

	hits := f.detect(AttackDefinition{Range: 2})
	require.Len(t, hits, 1)
	assert.Equal(t, CharacterID("enemy"), hits[0].Target.ID())
}

// TestDetectCone tests the horizontal cone around the attacker's forward
func TestDetectCone(t *testing.T) {
	tests := []struct {
		name string
		cone float64
		pos  Vec3
		want bool
	}{
		{"in front, narrow cone", 90, Vec3{X: 1.5}, true},
		{"behind, narrow cone", 90, Vec3{X: -1.5}, false},
		{"beside, narrow cone", 90, Vec3{Z: 1.5}, false},
		{"beside, wide cone", 200, Vec3{Z: 1.5}, true},
		{"behind, sphere", 0, Vec3{X: -1.5}, true},
		{"behind, full circle", 360, Vec3{X: -1.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDetectFixture(t)
			f.add(t, "target", "blue", tt.pos)
			hits := f.detect(AttackDefinition{Range: 2, ConeAngleDegrees: tt.cone})
			assert.Equal(t, tt.want, len(hits) == 1)
		})
	}
}

// TestDetectZeroRange tests a zero range attack reaches nothing
func TestDetectZeroRange(t *testing.T) {
	f := newDetectFixture(t)
	f.add(t, "target", "blue", Vec3{})
	assert.Nil(t, f.detect(AttackDefinition{Range: 0}))
}

// TestSortAndCapHits tests ordering by distance, ties by ID, then the cap
func TestSortAndCapHits(t *testing.T) {
	f := newDetectFixture(t)
	a := f.add(t, "a", "blue", Vec3{X: 2})
	b := f.add(t, "b", "blue", Vec3{X: 1})
	c := f.add(t, "c", "blue", Vec3{X: -2})

	hits := []Hit{{Target: c, Distance: 2}, {Target: a, Distance: 2}, {Target: b, Distance: 1}}
	SortByDistance(hits)
	assert.Equal(t, []CharacterID{"b", "a", "c"}, []CharacterID{hits[0].Target.ID(), hits[1].Target.ID(), hits[2].Target.ID()})

	assert.Len(t, CapHits(hits, 2), 2)
	assert.Len(t, CapHits(hits, 0), 3)
}
