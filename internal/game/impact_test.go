package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brawler/internal/config"
)

func newTestImpact() (*ImpactResolver, *config.CombatConfig) {
	tuning := config.DefaultCombat()
	return NewImpactResolver(&tuning), &tuning
}

// TestImpactInvulnerabilityWindow tests a second hit inside the window is
// ignored and one after it lands
func TestImpactInvulnerabilityWindow(t *testing.T) {
	r, tuning := newTestImpact()
	w := newFakeWorld()
	target := newTestCharacter(t, w, NewScheduler(), "target", "", Vec3{X: 1}, 100)
	attack := AttackDefinition{Name: "hit", Damage: 30}

	first := r.ApplyHit(0, Vec3{}, target, attack, Vec3{X: 1})
	require.True(t, first.Applied)
	assert.Equal(t, 30, first.Damage)
	assert.Equal(t, 70, target.Health().Current())
	assert.Equal(t, tuning.InvulnerabilityDuration, target.InvulnerableUntil())

	second := r.ApplyHit(100*time.Millisecond, Vec3{}, target, attack, Vec3{X: 1})
	assert.False(t, second.Applied)
	assert.Equal(t, 70, target.Health().Current())

	third := r.ApplyHit(250*time.Millisecond, Vec3{}, target, attack, Vec3{X: 1})
	assert.True(t, third.Applied)
	assert.Equal(t, 40, target.Health().Current())
}

// TestImpactLethalHit tests overkill clamps to zero, kills and skips the reaction
func TestImpactLethalHit(t *testing.T) {
	r, _ := newTestImpact()
	w := newFakeWorld()
	target := newTestCharacter(t, w, NewScheduler(), "target", "", Vec3{X: 1}, 10)

	impact := r.ApplyHit(0, Vec3{}, target, AttackDefinition{Damage: 15, KnockbackForce: 5}, Vec3{X: 1})
	assert.True(t, impact.Applied)
	assert.True(t, impact.Killed)
	assert.Equal(t, 10, impact.Damage)
	assert.Equal(t, ReactionNone, impact.Reaction)
	assert.Equal(t, 0, target.Health().Current())
	assert.Equal(t, StateDead, target.State())

	again := r.ApplyHit(time.Second, Vec3{}, target, AttackDefinition{Damage: 15}, Vec3{X: 1})
	assert.False(t, again.Applied, "dead targets ignore hits")
}

// TestImpactKnockbackClamped tests knockback follows the attacker's facing at
// no more than MaxKnockbackSpeed
func TestImpactKnockbackClamped(t *testing.T) {
	r, tuning := newTestImpact()
	w := newFakeWorld()
	target := newTestCharacter(t, w, NewScheduler(), "target", "", Vec3{X: 1}, 100)

	impact := r.ApplyHit(0, Vec3{}, target, AttackDefinition{Damage: 1, KnockbackForce: 50}, Vec3{Z: 2})
	require.Equal(t, ReactionKnockback, impact.Reaction)
	assert.InDelta(t, tuning.MaxKnockbackSpeed, impact.Velocity.Len(), 1e-9)
	assert.InDelta(t, tuning.MaxKnockbackSpeed, impact.Velocity.Z, 1e-9)
	assert.Equal(t, StateKnockback, target.State())
}

// TestImpactLaunchAlwaysUp tests launches get at least MinLaunchUp upward
func TestImpactLaunchAlwaysUp(t *testing.T) {
	r, tuning := newTestImpact()
	w := newFakeWorld()
	target := newTestCharacter(t, w, NewScheduler(), "target", "", Vec3{X: 1}, 100)

	impact := r.ApplyHit(0, Vec3{}, target, AttackDefinition{Damage: 1, Launch: Vec3{X: 5, Y: 0.5}}, Vec3{X: 1})
	require.Equal(t, ReactionLaunch, impact.Reaction)
	assert.GreaterOrEqual(t, impact.Velocity.Y, tuning.MinLaunchUp)
	assert.InDelta(t, 5.0, impact.Velocity.X, 1e-9, "local X is the attacker's forward")
	assert.LessOrEqual(t, impact.Velocity.Len(), tuning.MaxLaunchSpeed+1e-9)
	assert.Equal(t, StateLaunched, target.State())
}

// TestImpactInterruptsAttack tests a reaction cancels the target's attack
func TestImpactInterruptsAttack(t *testing.T) {
	r, _ := newTestImpact()
	w := newFakeWorld()
	target := newTestCharacter(t, w, NewScheduler(), "target", "", Vec3{X: 1}, 100)
	target.combo.NextAttack(0)
	require.True(t, target.loco.BeginAttack())
	epoch := target.actionEpoch

	r.ApplyHit(0, Vec3{}, target, AttackDefinition{Damage: 1, KnockbackForce: 3}, Vec3{X: 1})
	assert.Equal(t, StateKnockback, target.State())
	assert.Greater(t, target.actionEpoch, epoch)
	assert.Equal(t, 0, target.combo.Index())
}

// TestKnockbackDirectionFallbacks tests the push direction when the attacker
// has no facing
func TestKnockbackDirectionFallbacks(t *testing.T) {
	w := newFakeWorld()
	target := newTestCharacter(t, w, NewScheduler(), "target", "", Vec3{X: 0, Z: 3}, 100)

	assert.Equal(t, Vec3{X: 1}, knockbackDirection(Vec3{}, Vec3{X: 4}, target))
	assert.InDelta(t, 1.0, knockbackDirection(Vec3{}, Vec3{}, target).Z, 1e-9)

	// attacker standing on the target with no facing: pushed back from its own forward
	assert.InDelta(t, -1.0, knockbackDirection(Vec3{Z: 3}, Vec3{}, target).X, 1e-9)
}

// TestImpactHeal tests healing clamps and never resurrects
func TestImpactHeal(t *testing.T) {
	r, _ := newTestImpact()
	w := newFakeWorld()
	target := newTestCharacter(t, w, NewScheduler(), "target", "", Vec3{}, 100)

	target.Health().ApplyDamage(30)
	assert.Equal(t, 30, r.Heal(target, 50))
	assert.Equal(t, 100, target.Health().Current())

	target.Kill(0)
	target.Health().ApplyDamage(100)
	assert.Equal(t, 0, r.Heal(target, 50))
}
