package game

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"
)

var (
	ErrEmptyChain    = errors.New("combo chain has no attacks")
	ErrInvalidWindow = errors.New("combo window must be positive")
	ErrUnknownChain  = errors.New("unknown combo chain")
)

// AttackDefinition describes one strike. It is immutable once a chain is built.
type AttackDefinition struct {
	Name   string `json:"name" yaml:"name"`
	Damage int    `json:"damage" yaml:"damage"`

	// At most one of KnockbackForce and Launch is set.
	KnockbackForce float64 `json:"knockback,omitempty" yaml:"knockback"`
	// Launch is in the attacker's frame: X forward, Y up, Z right.
	Launch Vec3 `json:"launch,omitempty" yaml:"launch"`

	Range             float64       `json:"range" yaml:"range"`
	ConeAngleDegrees  float64       `json:"cone" yaml:"cone"` // 0 = sphere
	AnimationDuration time.Duration `json:"duration" yaml:"duration"`
	DamageDelay       time.Duration `json:"delay" yaml:"delay"` // offset into the animation
	MaxTargets        int           `json:"maxTargets,omitempty" yaml:"max_targets"` // 0 = unlimited
}

// Reaction returns the kind of physical response the attack causes.
func (a AttackDefinition) Reaction() ReactionKind {
	switch {
	case a.Launch != (Vec3{}):
		return ReactionLaunch
	case a.KnockbackForce > 0:
		return ReactionKnockback
	default:
		return ReactionNone
	}
}

// sanitize clamps malformed values so nothing invalid reaches the tick loop.
// Each fix is logged once at load time.
func (a AttackDefinition) sanitize(chain string) AttackDefinition {
	warn := func(format string, args ...interface{}) {
		log.Printf("⚠️ moveset %s/%s: "+format, append([]interface{}{chain, a.Name}, args...)...)
	}

	if a.Damage < 0 {
		warn("negative damage %d clamped to 0", a.Damage)
		a.Damage = 0
	}
	if a.Range < 0 || math.IsNaN(a.Range) {
		warn("invalid range %v clamped to 0", a.Range)
		a.Range = 0
	}
	if a.ConeAngleDegrees < 0 || math.IsNaN(a.ConeAngleDegrees) {
		warn("cone %v clamped to 0", a.ConeAngleDegrees)
		a.ConeAngleDegrees = 0
	} else if a.ConeAngleDegrees > 360 {
		warn("cone %v clamped to 360", a.ConeAngleDegrees)
		a.ConeAngleDegrees = 360
	}
	if a.AnimationDuration < 0 {
		warn("negative duration clamped to 0")
		a.AnimationDuration = 0
	}
	if a.DamageDelay < 0 {
		warn("negative delay clamped to 0")
		a.DamageDelay = 0
	}
	if a.DamageDelay > a.AnimationDuration {
		warn("delay %v past animation end %v, clamped", a.DamageDelay, a.AnimationDuration)
		a.DamageDelay = a.AnimationDuration
	}
	if a.KnockbackForce < 0 {
		warn("negative knockback clamped to 0")
		a.KnockbackForce = 0
	}
	if a.Launch != (Vec3{}) && a.KnockbackForce > 0 {
		warn("both knockback and launch set, keeping launch")
		a.KnockbackForce = 0
	}
	if a.Launch.Y < 0 {
		warn("downward launch flipped upward")
		a.Launch.Y = -a.Launch.Y
	}
	if a.MaxTargets < 0 {
		a.MaxTargets = 0
	}
	return a
}

// ComboChain is an ordered, fixed-length attack sequence with its timing window.
type ComboChain struct {
	Name    string             `json:"name" yaml:"name"`
	Window  time.Duration      `json:"window" yaml:"window"`
	Attacks []AttackDefinition `json:"attacks" yaml:"attacks"`
}

// Validate rejects chains that cannot run and sanitizes their attacks.
func (c ComboChain) Validate() (ComboChain, error) {
	if len(c.Attacks) == 0 {
		return c, fmt.Errorf("chain %q: %w", c.Name, ErrEmptyChain)
	}
	if c.Window <= 0 {
		return c, fmt.Errorf("chain %q: %w (got %v)", c.Name, ErrInvalidWindow, c.Window)
	}

	attacks := make([]AttackDefinition, len(c.Attacks))
	for i, a := range c.Attacks {
		if a.Name == "" {
			a.Name = fmt.Sprintf("%s#%d", c.Name, i)
		}
		attacks[i] = a.sanitize(c.Name)
	}
	c.Attacks = attacks
	return c, nil
}
