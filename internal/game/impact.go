package game

import (
	"time"

	"brawler/internal/config"
)

// Damageable is implemented by everything that can receive hits.
type Damageable interface {
	ID() CharacterID
	Health() *HealthModel
	Position() Vec3
	Forward() Vec3
	Invulnerable(now time.Duration) bool
	SetInvulnerableUntil(t time.Duration)
	// ApplyReaction forces Knockback or Launched with an initial velocity.
	ApplyReaction(kind ReactionKind, velocity Vec3, now time.Duration) bool
	// Kill transitions to the terminal Dead state.
	Kill(now time.Duration)
}

// HitEvent is one resolved hit, published to hooks and the event log.
type HitEvent struct {
	AttackerID CharacterID  `json:"attackerId"`
	TargetID   CharacterID  `json:"targetId"`
	Attack     string       `json:"attack"`
	Damage     int          `json:"damage"`
	Reaction   ReactionKind `json:"reaction"`
	Killed     bool         `json:"killed"`
}

// Impact is the outcome of ApplyHit.
type Impact struct {
	Applied  bool // false when suppressed (invulnerable or already dead)
	Damage   int
	Killed   bool
	Reaction ReactionKind
	Velocity Vec3
}

// ImpactResolver turns a confirmed hit into damage, a physical reaction and
// an invulnerability window on the target.
type ImpactResolver struct {
	tuning *config.CombatConfig
}

// NewImpactResolver creates a resolver reading tuning at every call, so a
// tuning change applies to the next hit.
func NewImpactResolver(tuning *config.CombatConfig) *ImpactResolver {
	return &ImpactResolver{tuning: tuning}
}

// ApplyHit resolves one hit at now. attackerPos and attackerForward describe
// the attacker at the moment the strike was evaluated.
func (r *ImpactResolver) ApplyHit(now time.Duration, attackerPos Vec3, target Damageable, attack AttackDefinition, attackerForward Vec3) Impact {
	health := target.Health()
	if health.Dead() || target.Invulnerable(now) {
		return Impact{}
	}

	dealt, died := health.ApplyDamage(attack.Damage)
	impact := Impact{Applied: true, Damage: dealt}
	if died {
		target.Kill(now)
		impact.Killed = true
		return impact
	}

	kind, velocity := r.reaction(attackerPos, attackerForward, target, attack)
	if kind != ReactionNone && target.ApplyReaction(kind, velocity, now) {
		impact.Reaction = kind
		impact.Velocity = velocity
	}

	target.SetInvulnerableUntil(now + r.tuning.InvulnerabilityDuration)
	return impact
}

// Heal restores health on target, clamped to max. Dead targets stay dead.
func (r *ImpactResolver) Heal(target Damageable, amount int) int {
	return target.Health().Heal(amount)
}

func (r *ImpactResolver) reaction(attackerPos, attackerForward Vec3, target Damageable, attack AttackDefinition) (ReactionKind, Vec3) {
	switch attack.Reaction() {
	case ReactionLaunch:
		return ReactionLaunch, r.launchVelocity(attackerPos, attackerForward, target, attack.Launch)
	case ReactionKnockback:
		dir := knockbackDirection(attackerPos, attackerForward, target)
		speed := attack.KnockbackForce
		if speed > r.tuning.MaxKnockbackSpeed {
			speed = r.tuning.MaxKnockbackSpeed
		}
		return ReactionKnockback, dir.Scale(speed)
	}
	return ReactionNone, Vec3{}
}

// knockbackDirection is the horizontal push direction: the attacker's facing,
// else attacker->target, else straight back from the target's own facing.
func knockbackDirection(attackerPos, attackerForward Vec3, target Damageable) Vec3 {
	if dir := attackerForward.Horizontal().Normalize(); dir != (Vec3{}) {
		return dir
	}
	if dir := target.Position().Sub(attackerPos).Horizontal().Normalize(); dir != (Vec3{}) {
		return dir
	}
	if dir := target.Forward().Horizontal().Normalize(); dir != (Vec3{}) {
		return dir.Scale(-1)
	}
	return Vec3{X: 1}
}

// launchVelocity rotates the attacker-local launch vector into world space,
// guarantees an upward component and clamps the magnitude.
func (r *ImpactResolver) launchVelocity(attackerPos, attackerForward Vec3, target Damageable, local Vec3) Vec3 {
	fwd := knockbackDirection(attackerPos, attackerForward, target)
	right := Vec3{X: -fwd.Z, Z: fwd.X}

	v := fwd.Scale(local.X).Add(right.Scale(local.Z))
	v.Y = local.Y
	if v.Y < r.tuning.MinLaunchUp {
		v.Y = r.tuning.MinLaunchUp
	}
	return v.ClampLen(r.tuning.MaxLaunchSpeed)
}
