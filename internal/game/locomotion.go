package game

import (
	"log"
	"math"
	"time"

	"brawler/internal/config"
)

// Locomotion is the per-character motion and reaction state machine. It owns
// the pose, the velocity, the combat state and the locomotion mode; nothing
// else writes them.
type Locomotion struct {
	id     CharacterID
	tuning *config.CombatConfig
	world  World
	sched  *Scheduler

	pos Vec3
	yaw float64
	vel Vec3

	state CombatState
	mode  LocomotionMode

	grounded     bool
	groundY      float64
	lastGrounded Vec3

	intent     Vec3 // requested horizontal move direction (unit or zero)
	desiredYaw float64
	hasFacing  bool

	recoverEpoch uint64
	recoverReady bool // recovery timer elapsed while airborne

	dashing    bool
	dashEpoch  uint64
	nextDashAt time.Duration

	onTransition func(from, to CombatState)
}

func newLocomotion(id CharacterID, pos Vec3, yaw float64, tuning *config.CombatConfig, world World, sched *Scheduler) Locomotion {
	return Locomotion{
		id:           id,
		tuning:       tuning,
		world:        world,
		sched:        sched,
		pos:          pos,
		yaw:          yaw,
		desiredYaw:   yaw,
		state:        StateIdle,
		mode:         ModePathFollow,
		lastGrounded: pos,
		onTransition: func(CombatState, CombatState) {},
	}
}

func (l *Locomotion) State() CombatState   { return l.state }
func (l *Locomotion) Mode() LocomotionMode { return l.mode }
func (l *Locomotion) Position() Vec3       { return l.pos }
func (l *Locomotion) Yaw() float64         { return l.yaw }
func (l *Locomotion) Forward() Vec3        { return forwardFromYaw(l.yaw) }
func (l *Locomotion) Velocity() Vec3       { return l.vel }
func (l *Locomotion) Grounded() bool       { return l.grounded }

// canTransition encodes the state table. Dead is terminal.
func canTransition(from, to CombatState) bool {
	if from == StateDead {
		return false
	}
	switch to {
	case StateDead:
		return true
	case StateAttacking:
		return from == StateIdle || from == StateMoving
	case StateKnockback, StateLaunched:
		// a fresh reaction replaces one already playing
		return true
	case StateRecovering:
		return true
	case StateIdle:
		return from != StateIdle
	case StateMoving:
		return from == StateIdle
	}
	return false
}

func (l *Locomotion) transition(to CombatState) bool {
	from := l.state
	if from == to || !canTransition(from, to) {
		return false
	}
	l.state = to
	l.onTransition(from, to)
	return true
}

// enterBallistic hands the position over to velocity integration.
func (l *Locomotion) enterBallistic() {
	if l.mode == ModeBallistic {
		return
	}
	if l.grounded {
		l.lastGrounded = l.pos
	}
	l.mode = ModeBallistic
}

// exitBallistic snaps back onto the navigable floor before pathfinding resumes.
// If no navigable point is in range the character holds its last grounded position.
func (l *Locomotion) exitBallistic() {
	if l.mode == ModePathFollow {
		return
	}
	l.pos = l.resolveRecoveryPosition()
	l.vel = Vec3{}
	l.mode = ModePathFollow
	l.refreshGround()
}

func (l *Locomotion) resolveRecoveryPosition() Vec3 {
	if p, ok := l.world.NearestNavigablePoint(l.pos, l.tuning.NavSnapRadius); ok {
		return p
	}
	log.Printf("⚠️ %s: no navigable point within %.1fm of %.1f,%.1f,%.1f, holding last grounded position",
		l.id, l.tuning.NavSnapRadius, l.pos.X, l.pos.Y, l.pos.Z)
	return l.lastGrounded
}

// probe runs the ground check from slightly above the feet.
func (l *Locomotion) probe(at Vec3, extra float64) (GroundPoint, bool) {
	start := at.Add(Up.Scale(l.tuning.ProbeLift))
	return l.world.GroundProbe(start, l.tuning.ProbeLift+l.tuning.ProbeDepth+extra)
}

func (l *Locomotion) refreshGround() {
	gp, ok := l.probe(l.pos, 0)
	l.grounded = ok && l.pos.Y-gp.Position.Y <= l.tuning.GroundTolerance
	if ok {
		l.groundY = gp.Position.Y
	}
	if l.grounded && l.mode == ModePathFollow {
		l.lastGrounded = l.pos
	}
}

// ApplyReaction forces Knockback or Launched with the given initial velocity.
// Returns false for a dead character or a ReactionNone.
func (l *Locomotion) ApplyReaction(kind ReactionKind, velocity Vec3) bool {
	var to CombatState
	switch kind {
	case ReactionKnockback:
		to = StateKnockback
		velocity.Y = 0
	case ReactionLaunch:
		to = StateLaunched
	default:
		return false
	}
	if l.state == StateDead {
		return false
	}

	l.cancelTimers()
	l.enterBallistic()
	l.vel = velocity
	if kind == ReactionLaunch {
		l.grounded = false
	}
	if l.state == to {
		return true // refreshed
	}
	return l.transition(to)
}

// Kill moves to the terminal Dead state. The body keeps sliding/falling as
// a ballistic corpse until it settles.
func (l *Locomotion) Kill() bool {
	if l.state == StateDead {
		return false
	}
	l.cancelTimers()
	l.intent = Vec3{}
	l.enterBallistic()
	return l.transition(StateDead)
}

func (l *Locomotion) cancelTimers() {
	l.recoverEpoch++
	l.recoverReady = false
	if l.dashing {
		l.dashing = false
		l.dashEpoch++
	}
}

// BeginAttack enters Attacking. Only grounded, path-following Idle/Moving
// characters can start an attack.
func (l *Locomotion) BeginAttack() bool {
	if l.mode != ModePathFollow || !l.grounded {
		return false
	}
	return l.transition(StateAttacking)
}

// EndAttack leaves Attacking back to Idle.
func (l *Locomotion) EndAttack() bool {
	if l.state != StateAttacking {
		return false
	}
	return l.transition(StateIdle)
}

// SetIntent records the desired move direction; the zero vector stops.
func (l *Locomotion) SetIntent(dir Vec3) {
	l.intent = dir.Horizontal().Normalize()
}

// Face sets the heading the character turns toward.
func (l *Locomotion) Face(dir Vec3) {
	if dir.HorizontalLen() < epsilon {
		return
	}
	l.desiredYaw = yawOf(dir)
	l.hasFacing = true
}

// Dash bursts along dir. Allowed from grounded Idle/Moving after the cooldown.
func (l *Locomotion) Dash(dir Vec3, now time.Duration) bool {
	if l.state != StateIdle && l.state != StateMoving {
		return false
	}
	if !l.grounded || l.mode != ModePathFollow || now < l.nextDashAt {
		return false
	}
	dir = dir.Horizontal().Normalize()
	if dir == (Vec3{}) {
		dir = l.Forward()
	}

	l.enterBallistic()
	l.vel = dir.Scale(l.tuning.DashSpeed)
	l.dashing = true
	l.dashEpoch++
	l.nextDashAt = now + l.tuning.DashCooldown
	l.transition(StateMoving)
	l.Face(dir)

	epoch := l.dashEpoch
	l.sched.Arm(now+l.tuning.DashDuration, func(time.Duration) {
		if l.dashEpoch != epoch || !l.dashing {
			return
		}
		l.dashing = false
		l.vel.X, l.vel.Z = 0, 0
		if l.grounded {
			l.exitBallistic()
		}
	})
	return true
}

// Teleport moves to the navigable point nearest pos. Rejected while Dead or
// reacting, or when nothing navigable is in range.
func (l *Locomotion) Teleport(pos Vec3) bool {
	switch l.state {
	case StateDead, StateKnockback, StateLaunched:
		return false
	}
	dest, ok := l.world.NearestNavigablePoint(pos, l.tuning.NavSnapRadius)
	if !ok {
		return false
	}
	l.cancelTimers()
	if l.state == StateRecovering {
		l.transition(StateIdle)
	}
	l.pos = dest
	l.vel = Vec3{}
	l.mode = ModePathFollow
	l.refreshGround()
	l.lastGrounded = l.pos
	return true
}

// Pursuit describes the designated opponent for this tick, if any.
type Pursuit struct {
	Position Vec3
	Follow   bool // path toward it; false only faces it
}

// Tick advances the machine by dt. pursuit is nil when there is no valid target.
func (l *Locomotion) Tick(now time.Duration, dt float64, pursuit *Pursuit) {
	// (1) ground check
	l.refreshGround()

	switch {
	case l.state == StateDead:
		l.tickCorpse(dt)
		return
	case l.state == StateLaunched:
		// (2) drag, clamp, integrate; land into Recovering
		l.tickLaunched(now, dt)
	case l.state == StateKnockback:
		// (3) exponential decay until below epsilon
		l.tickKnockback(now, dt)
	case l.mode == ModeBallistic:
		l.tickAirborne(now, dt)
	default:
		if !l.grounded {
			// walked off an edge or the floor vanished
			l.vel = l.intent.Scale(l.tuning.MoveSpeed)
			l.enterBallistic()
			l.tickAirborne(now, dt)
		} else {
			// (4) path following
			l.tickPathFollow(dt, pursuit)
		}
	}

	if l.state == StateRecovering && l.recoverReady && l.grounded {
		l.recoverReady = false
		l.transition(StateIdle)
	}

	// (5) bounded-rate turn toward the facing target
	if l.state.pathFollowEligible() {
		l.turn(dt)
	}
}

func (l *Locomotion) integrate(dt float64) (landed bool) {
	prev := l.pos
	l.vel.Y -= l.tuning.Gravity * dt
	l.pos = l.pos.Add(l.vel.Scale(dt))

	if l.vel.Y > 0 {
		l.grounded = false
		return false
	}
	// probe the whole vertical sweep so a fast fall cannot tunnel the floor
	drop := math.Max(prev.Y-l.pos.Y, 0)
	gp, ok := l.probe(Vec3{X: l.pos.X, Y: prev.Y, Z: l.pos.Z}, drop)
	if ok && l.pos.Y <= gp.Position.Y+l.tuning.GroundTolerance {
		l.pos.Y = gp.Position.Y
		l.groundY = gp.Position.Y
		l.vel.Y = 0
		l.grounded = true
		return true
	}
	l.grounded = false
	return false
}

func (l *Locomotion) tickLaunched(now time.Duration, dt float64) {
	drag := math.Max(0, 1-l.tuning.LaunchDrag*dt)
	l.vel.X *= drag
	l.vel.Z *= drag
	l.vel = l.vel.ClampHorizontal(l.tuning.MaxLaunchHorizontal)

	if l.integrate(dt) {
		l.vel = Vec3{}
		l.exitBallistic()
		l.beginRecovery(now)
		return
	}
	l.checkFellOut(now)
}

func (l *Locomotion) tickKnockback(now time.Duration, dt float64) {
	decay := math.Exp(-l.tuning.KnockbackDecay * dt)
	l.vel.X *= decay
	l.vel.Z *= decay

	if l.grounded && l.vel.Y <= 0 {
		// slide along the floor; a wall stops the slide dead
		next := l.pos.Add(l.vel.Horizontal().Scale(dt))
		if l.blocked(l.pos, next) {
			next = l.pos
			l.vel = Vec3{}
		}
		l.pos = next
		l.vel.Y = 0
		if gp, ok := l.probe(l.pos, 0); ok {
			l.pos.Y = gp.Position.Y
		} else {
			l.grounded = false
		}
	} else if !l.integrate(dt) {
		l.checkFellOut(now)
		if l.state != StateKnockback {
			return
		}
	}

	if l.grounded && l.vel.HorizontalLen() < l.tuning.KnockbackEpsilon {
		l.exitBallistic()
		l.transition(StateIdle)
	}
}

// tickAirborne handles falls and dashes in non-reaction states.
func (l *Locomotion) tickAirborne(now time.Duration, dt float64) {
	if l.dashing && l.grounded {
		next := l.pos.Add(l.vel.Horizontal().Scale(dt))
		if l.blocked(l.pos, next) {
			l.vel.X, l.vel.Z = 0, 0
			return
		}
		l.pos = next
		if gp, ok := l.probe(l.pos, 0); ok {
			l.pos.Y = gp.Position.Y
		} else {
			l.grounded = false
		}
		return
	}
	if l.integrate(dt) && !l.dashing {
		l.exitBallistic()
		return
	}
	l.checkFellOut(now)
}

func (l *Locomotion) tickCorpse(dt float64) {
	if l.mode != ModeBallistic {
		return
	}
	decay := math.Exp(-l.tuning.KnockbackDecay * dt)
	l.vel.X *= decay
	l.vel.Z *= decay
	if l.grounded && l.vel.HorizontalLen() < l.tuning.KnockbackEpsilon {
		l.vel = Vec3{}
		return
	}
	if l.pos.Y < l.lastGrounded.Y-l.tuning.MaxFallDistance {
		l.vel = Vec3{}
		return
	}
	l.integrate(dt)
}

// blocked reports whether a wall stands between two floor positions,
// tested just above the feet.
func (l *Locomotion) blocked(from, to Vec3) bool {
	lift := Up.Scale(l.tuning.ProbeLift)
	return !l.world.LineOfSight(from.Add(lift), to.Add(lift))
}

// checkFellOut restores a character that dropped out of the world.
func (l *Locomotion) checkFellOut(now time.Duration) {
	if l.pos.Y >= l.lastGrounded.Y-l.tuning.MaxFallDistance {
		return
	}
	log.Printf("⚠️ %s fell out of the world, restoring", l.id)
	l.dashing = false
	l.exitBallistic()
	l.beginRecovery(now)
}

func (l *Locomotion) beginRecovery(now time.Duration) {
	l.recoverEpoch++
	l.recoverReady = false
	if !l.transition(StateRecovering) {
		return
	}
	epoch := l.recoverEpoch
	l.sched.Arm(now+l.tuning.LandingRecoveryTime, func(time.Duration) {
		if l.recoverEpoch != epoch || l.state != StateRecovering {
			return
		}
		if l.grounded {
			l.transition(StateIdle)
			return
		}
		l.recoverReady = true
	})
}

func (l *Locomotion) tickPathFollow(dt float64, pursuit *Pursuit) {
	l.pos.Y = l.groundY

	var desired Vec3
	switch {
	case l.intent != (Vec3{}):
		desired = l.intent
		l.Face(desired)
	case pursuit != nil:
		desired = l.pursue(pursuit)
	}

	rooted := l.state == StateAttacking || l.state == StateRecovering
	if rooted || desired == (Vec3{}) {
		if l.state == StateMoving {
			l.transition(StateIdle)
		}
		return
	}

	step := desired.Scale(l.tuning.MoveSpeed * dt)
	next := l.pos.Add(step)
	gp, ok := l.probe(next, 0)
	if !ok || l.blocked(l.pos, next) {
		// edge of the floor or a wall: stop instead of stepping through
		if l.state == StateMoving {
			l.transition(StateIdle)
		}
		return
	}
	next.Y = gp.Position.Y
	l.pos = next
	l.groundY = next.Y
	l.lastGrounded = l.pos
	if l.state == StateIdle {
		l.transition(StateMoving)
	}
}

// pursue returns the unit direction toward the next waypoint, or zero when
// the target is out of follow range or already close enough.
func (l *Locomotion) pursue(p *Pursuit) Vec3 {
	offset := p.Position.Sub(l.pos).Horizontal()
	dist := offset.Len()

	if dist <= l.tuning.FacingDistance {
		l.Face(offset)
	}
	if !p.Follow || dist > l.tuning.MaxFollowDistance || dist <= l.tuning.StoppingDistance {
		return Vec3{}
	}

	waypoint, ok := l.world.NextWaypoint(l.pos, p.Position)
	if !ok {
		return Vec3{}
	}
	dir := waypoint.Sub(l.pos).Horizontal().Normalize()
	if dist > l.tuning.FacingDistance {
		l.Face(dir)
	}
	return dir
}

// turn rotates toward desiredYaw by at most TurnRate*dt.
func (l *Locomotion) turn(dt float64) {
	if !l.hasFacing {
		return
	}
	delta := normalizeAngle(l.desiredYaw - l.yaw)
	limit := l.tuning.TurnRate * dt
	if math.Abs(delta) <= limit {
		l.yaw = l.desiredYaw
		l.hasFacing = false
		return
	}
	l.yaw = normalizeAngle(l.yaw + math.Copysign(limit, delta))
}
