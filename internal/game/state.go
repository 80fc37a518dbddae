package game

// CombatState is the enumerated combat/locomotion state of a character.
// Exactly one value is active at a time.
type CombatState uint8

const (
	StateIdle CombatState = iota
	StateMoving
	StateAttacking
	StateKnockback
	StateLaunched
	StateRecovering
	StateDead
)

func (s CombatState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMoving:
		return "moving"
	case StateAttacking:
		return "attacking"
	case StateKnockback:
		return "knockback"
	case StateLaunched:
		return "launched"
	case StateRecovering:
		return "recovering"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// CombatStates lists every state in declaration order.
func CombatStates() []CombatState {
	return []CombatState{StateIdle, StateMoving, StateAttacking, StateKnockback, StateLaunched, StateRecovering, StateDead}
}

// MarshalText lets snapshots and events carry the readable name
func (s CombatState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// pathFollowEligible reports whether the state may be driven by pathfinding
func (s CombatState) pathFollowEligible() bool {
	switch s {
	case StateIdle, StateMoving, StateAttacking, StateRecovering:
		return true
	}
	return false
}

// reactive reports whether an incoming reaction may interrupt the state
func (s CombatState) reactive() bool {
	return s != StateDead
}

// LocomotionMode selects what drives a character's position.
type LocomotionMode uint8

const (
	ModePathFollow LocomotionMode = iota // navigation-driven, snapped to the floor
	ModeBallistic                        // velocity integration
)

func (m LocomotionMode) String() string {
	switch m {
	case ModePathFollow:
		return "path_follow"
	case ModeBallistic:
		return "ballistic"
	default:
		return "unknown"
	}
}

func (m LocomotionMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ReactionKind classifies the physical response to a hit.
type ReactionKind uint8

const (
	ReactionNone ReactionKind = iota
	ReactionKnockback
	ReactionLaunch
)

func (k ReactionKind) String() string {
	switch k {
	case ReactionKnockback:
		return "knockback"
	case ReactionLaunch:
		return "launch"
	default:
		return "none"
	}
}

func (k ReactionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Controller says where a character's commands come from.
type Controller uint8

const (
	ControllerPlayer Controller = iota
	ControllerAI
)

func (c Controller) String() string {
	if c == ControllerAI {
		return "ai"
	}
	return "player"
}

// ParseController maps "ai"/"player" to a Controller; anything else is player.
func ParseController(s string) Controller {
	if s == "ai" {
		return ControllerAI
	}
	return ControllerPlayer
}

func (c Controller) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
