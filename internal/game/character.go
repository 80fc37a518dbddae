package game

import (
	"time"

	"github.com/google/uuid"

	"brawler/internal/config"
)

// CharacterID identifies a character for its whole lifetime.
type CharacterID string

// NewCharacterID returns a random unique ID.
func NewCharacterID() CharacterID {
	return CharacterID(uuid.NewString())
}

// Hurtbox is one collision sphere of a character, relative to its feet.
type Hurtbox struct {
	Offset Vec3    `json:"offset" yaml:"offset"`
	Radius float64 `json:"radius" yaml:"radius"`
}

// DefaultHurtboxes is a two-sphere humanoid: torso and head.
var DefaultHurtboxes = []Hurtbox{
	{Offset: Vec3{Y: 0.9}, Radius: 0.45},
	{Offset: Vec3{Y: 1.6}, Radius: 0.25},
}

// SpawnOptions describes a character to add to the simulation.
type SpawnOptions struct {
	ID         CharacterID // generated when empty
	Name       string
	Team       string
	Controller Controller
	Chain      string // moveset chain name
	MaxHealth  int
	Position   Vec3
	Yaw        float64
	Hurtboxes  []Hurtbox // DefaultHurtboxes when empty
}

// Character is any combat-capable agent. Its pose and state live in its
// Locomotion; its health in its HealthModel.
type Character struct {
	id         CharacterID
	name       string
	team       string
	controller Controller
	chainName  string

	loco   Locomotion
	health HealthModel
	combo  *ComboResolver

	hurtboxes []Hurtbox
	bodies    []BodyID

	invulnerableUntil time.Duration
	target            CharacterID
	lastHitBy         CharacterID

	// actionEpoch invalidates pending strikes and animation timers whenever
	// the character is forced out of Attacking.
	actionEpoch     uint64
	actionDeadlines []DeadlineID // strike and animation end of the current attack
	strikePending   bool
	animationDone   bool

	spawnedAt time.Duration
	diedAt    time.Duration
	removeAt  time.Duration
}

func newCharacter(opts SpawnOptions, combo *ComboResolver, tuning *config.CombatConfig, world World, sched *Scheduler, now time.Duration) *Character {
	hurtboxes := opts.Hurtboxes
	if len(hurtboxes) == 0 {
		hurtboxes = DefaultHurtboxes
	}
	c := &Character{
		id:         opts.ID,
		name:       opts.Name,
		team:       opts.Team,
		controller: opts.Controller,
		chainName:  opts.Chain,
		health:     NewHealthModel(opts.MaxHealth),
		combo:      combo,
		hurtboxes:  append([]Hurtbox(nil), hurtboxes...),
		spawnedAt:  now,
	}
	c.loco = newLocomotion(opts.ID, opts.Position, opts.Yaw, tuning, world, sched)
	c.loco.refreshGround()
	return c
}

func (c *Character) ID() CharacterID         { return c.id }
func (c *Character) Name() string            { return c.name }
func (c *Character) Team() string            { return c.team }
func (c *Character) Controller() Controller  { return c.controller }
func (c *Character) Position() Vec3          { return c.loco.Position() }
func (c *Character) Forward() Vec3           { return c.loco.Forward() }
func (c *Character) Yaw() float64            { return c.loco.Yaw() }
func (c *Character) Velocity() Vec3          { return c.loco.Velocity() }
func (c *Character) State() CombatState      { return c.loco.State() }
func (c *Character) Mode() LocomotionMode    { return c.loco.Mode() }
func (c *Character) Health() *HealthModel    { return &c.health }
func (c *Character) Combo() *ComboResolver   { return c.combo }
func (c *Character) Target() CharacterID     { return c.target }
func (c *Character) Locomotion() *Locomotion { return &c.loco }
func (c *Character) IsDead() bool            { return c.loco.State() == StateDead }
func (c *Character) RemoveAt() time.Duration { return c.removeAt }

// InvulnerableUntil returns the end of the current invulnerability window.
func (c *Character) InvulnerableUntil() time.Duration { return c.invulnerableUntil }

// Invulnerable reports whether incoming hits are ignored at now.
func (c *Character) Invulnerable(now time.Duration) bool {
	return now < c.invulnerableUntil
}

// SetInvulnerableUntil extends (never shortens) the invulnerability window.
func (c *Character) SetInvulnerableUntil(t time.Duration) {
	if t > c.invulnerableUntil {
		c.invulnerableUntil = t
	}
}

// ApplyReaction interrupts any attack in progress and hands the velocity to
// the locomotion machine.
func (c *Character) ApplyReaction(kind ReactionKind, velocity Vec3, now time.Duration) bool {
	if c.IsDead() {
		return false
	}
	if !c.loco.ApplyReaction(kind, velocity) {
		return false
	}
	c.interruptAttack()
	return true
}

// Kill transitions to Dead. Safe to call more than once.
func (c *Character) Kill(now time.Duration) {
	if c.IsDead() {
		return
	}
	c.interruptAttack()
	c.loco.Kill()
	c.diedAt = now
}

func (c *Character) interruptAttack() {
	c.actionEpoch++
	for _, id := range c.actionDeadlines {
		c.loco.sched.Cancel(id)
	}
	c.actionDeadlines = c.actionDeadlines[:0]
	c.strikePending = false
	c.animationDone = false
	if c.combo != nil {
		c.combo.Interrupt()
	}
}

// hurtboxCenter returns the world-space center of hurtbox i.
func (c *Character) hurtboxCenter(i int) Vec3 {
	return c.Position().Add(c.hurtboxes[i].Offset)
}
