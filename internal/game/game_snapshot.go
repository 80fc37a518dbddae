package game

import (
	"sync/atomic"
	"time"
)

// SnapshotLimits caps what a single snapshot may carry
type SnapshotLimits struct {
	MaxCharacters int // Hard cap on characters copied per snapshot
}

// DefaultSnapshotLimits provides production-safe default limits
var DefaultSnapshotLimits = SnapshotLimits{
	MaxCharacters: 256,
}

// CharacterSnapshot is an immutable copy of character state for rendering
// Uses value types (not pointers) to ensure immutability
type CharacterSnapshot struct {
	ID           CharacterID    `json:"id"`
	Name         string         `json:"name"`
	Team         string         `json:"team,omitempty"`
	Controller   Controller     `json:"controller"`
	Position     Vec3           `json:"pos"`
	Yaw          float64        `json:"yaw"`
	Velocity     Vec3           `json:"vel"`
	State        CombatState    `json:"state"`
	Mode         LocomotionMode `json:"mode"`
	HP           int            `json:"hp"`
	MaxHP        int            `json:"maxHp"`
	Chain        string         `json:"chain"`
	ComboIndex   int            `json:"comboIndex"`
	Invulnerable bool           `json:"invulnerable"`
	Target       CharacterID    `json:"target,omitempty"`
}

// GameSnapshot is a complete immutable simulation state for rendering
// The character slice is pre-allocated and capped to prevent memory attacks
type GameSnapshot struct {
	Sequence   uint64        `json:"sequence"`  // Monotonic sequence for ordering
	Timestamp  time.Time     `json:"timestamp"` // When snapshot was created
	TickNumber uint64        `json:"tick"`      // Tick this represents
	SimTime    time.Duration `json:"simTime"`

	Characters []CharacterSnapshot `json:"characters"`

	// Aggregate stats
	CharacterCount int    `json:"characterCount"`
	AliveCount     int    `json:"aliveCount"`
	TotalAttacks   uint64 `json:"totalAttacks"`
	TotalHits      uint64 `json:"totalHits"`
	TotalDeaths    uint64 `json:"totalDeaths"`
}

// Clone returns a deep copy that stays valid after the pool reuses the slot.
func (s *GameSnapshot) Clone() GameSnapshot {
	out := *s
	out.Characters = append([]CharacterSnapshot(nil), s.Characters...)
	return out
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure
// Uses triple buffering for lock-free producer/consumer
type SnapshotPool struct {
	snapshots [3]GameSnapshot // Triple buffer
	limits    SnapshotLimits
	writeIdx  uint32 // atomic - producer index
	readIdx   uint32 // atomic - consumer index
	sequence  uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with pre-allocated slices
func NewSnapshotPool(limits SnapshotLimits) *SnapshotPool {
	pool := &SnapshotPool{limits: limits}

	for i := 0; i < 3; i++ {
		pool.snapshots[i] = GameSnapshot{
			Characters: make([]CharacterSnapshot, 0, limits.MaxCharacters),
		}
	}

	return pool
}

// AcquireWrite gets the next write slot (producer only, called from the tick)
// Returns a snapshot with reset slices but preserved capacity
func (p *SnapshotPool) AcquireWrite() *GameSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	snap.Characters = snap.Characters[:0]

	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()

	return snap
}

// PublishWrite marks write complete and advances read pointer
// Called after snapshot is fully populated
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead gets the latest complete snapshot (consumer only)
// Before the first publish this is an empty snapshot.
func (p *SnapshotPool) AcquireRead() *GameSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// GetLimits returns the resource limits
func (p *SnapshotPool) GetLimits() SnapshotLimits {
	return p.limits
}
