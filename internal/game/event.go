package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick              // Tick boundary
	EventTypeSpawn
	EventTypeStateChange
	EventTypeAttackStart
	EventTypeHit
	EventTypeDeath
	EventTypeRemoved
	EventTypeHeal
	EventTypeDash
	EventTypeTeleport
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 2

// Event is the core event structure for the event log
type Event struct {
	Version     uint8           `json:"version"`     // Schema version
	Type        EventType       `json:"type"`        // Event type
	Timestamp   int64           `json:"timestamp"`   // Unix nano (wall clock)
	SimTime     time.Duration   `json:"simTime"`     // Simulation clock
	Sequence    uint64          `json:"sequence"`    // Monotonic sequence
	TickNum     uint64          `json:"tickNum"`     // Tick this occurred in
	CharacterID CharacterID     `json:"characterId"` // Source character (for rate limiting)
	Payload     json.RawMessage `json:"payload"`     // JSON-encoded payload
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypeSpawn:
		return "spawn"
	case EventTypeStateChange:
		return "state_change"
	case EventTypeAttackStart:
		return "attack_start"
	case EventTypeHit:
		return "hit"
	case EventTypeDeath:
		return "death"
	case EventTypeRemoved:
		return "removed"
	case EventTypeHeal:
		return "heal"
	case EventTypeDash:
		return "dash"
	case EventTypeTeleport:
		return "teleport"
	default:
		return "unknown"
	}
}

// MarshalText writes the readable name into the JSONL log.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Typed payloads for different event types

// TickPayload contains tick boundary information
type TickPayload struct {
	Characters  int   `json:"characters"`
	Deadlines   int   `json:"deadlines"`
	DeltaTimeNs int64 `json:"deltaTimeNs"`
}

// SpawnPayload contains spawn details
type SpawnPayload struct {
	Name       string     `json:"name"`
	Team       string     `json:"team,omitempty"`
	Controller Controller `json:"controller"`
	Chain      string     `json:"chain"`
	Position   Vec3       `json:"position"`
	MaxHealth  int        `json:"maxHealth"`
}

// StateChangePayload records one combat state transition
type StateChangePayload struct {
	From CombatState    `json:"from"`
	To   CombatState    `json:"to"`
	Mode LocomotionMode `json:"mode"`
}

// AttackStartPayload records a strike entering its wind-up
type AttackStartPayload struct {
	Chain      string `json:"chain"`
	Attack     string `json:"attack"`
	ComboIndex int    `json:"comboIndex"`
	Terminal   bool   `json:"terminal"`
}

// DeathPayload contains death details
type DeathPayload struct {
	KillerID CharacterID   `json:"killerId,omitempty"`
	Position Vec3          `json:"position"`
	RemoveAt time.Duration `json:"removeAt"`
}

// HealPayload contains heal event details
type HealPayload struct {
	Amount    int `json:"amount"`
	CurrentHP int `json:"currentHp"`
}

// MovePayload is used by dash and teleport
type MovePayload struct {
	From Vec3 `json:"from"`
	To   Vec3 `json:"to"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, simTime time.Duration, id CharacterID, payload interface{}) Event {
	return Event{
		Version:     EventVersion,
		Type:        eventType,
		Timestamp:   time.Now().UnixNano(),
		SimTime:     simTime,
		TickNum:     tickNum,
		CharacterID: id,
		Payload:     EncodePayload(payload),
	}
}
