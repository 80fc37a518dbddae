package game

import (
	"sync/atomic"

	"brawler/internal/game/spatial"
)

// Hooks receives fire-and-forget notifications from the tick loop.
// Implementations must not block and must not call back into the Engine.
type Hooks interface {
	OnStateChanged(id CharacterID, from, to CombatState)
	OnAttackStart(id CharacterID, comboIndex int)
	OnHitLanded(attacker, target CharacterID, damage int)
	OnDeath(id CharacterID)
}

// NopHooks ignores every notification.
type NopHooks struct{}

func (NopHooks) OnStateChanged(CharacterID, CombatState, CombatState) {}
func (NopHooks) OnAttackStart(CharacterID, int)                       {}
func (NopHooks) OnHitLanded(CharacterID, CharacterID, int)            {}
func (NopHooks) OnDeath(CharacterID)                                  {}

// MultiHooks fans every notification out to each member in order.
type MultiHooks []Hooks

func (m MultiHooks) OnStateChanged(id CharacterID, from, to CombatState) {
	for _, h := range m {
		h.OnStateChanged(id, from, to)
	}
}

func (m MultiHooks) OnAttackStart(id CharacterID, comboIndex int) {
	for _, h := range m {
		h.OnAttackStart(id, comboIndex)
	}
}

func (m MultiHooks) OnHitLanded(attacker, target CharacterID, damage int) {
	for _, h := range m {
		h.OnHitLanded(attacker, target, damage)
	}
}

func (m MultiHooks) OnDeath(id CharacterID) {
	for _, h := range m {
		h.OnDeath(id)
	}
}

// HookKind tags a queued hook notification.
type HookKind string

const (
	HookStateChanged HookKind = "state_changed"
	HookAttackStart  HookKind = "attack_start"
	HookHitLanded    HookKind = "hit_landed"
	HookDeath        HookKind = "death"
)

// HookEvent is one queued notification.
type HookEvent struct {
	Kind       HookKind    `json:"kind"`
	Character  CharacterID `json:"character"`
	Target     CharacterID `json:"target,omitempty"`
	From       CombatState `json:"from"`
	To         CombatState `json:"to"`
	ComboIndex int         `json:"comboIndex,omitempty"`
	Damage     int         `json:"damage,omitempty"`
}

// HookQueue implements Hooks by pushing events into a bounded lock-free queue.
// When the consumer falls behind, events are dropped and counted rather than
// stalling the tick.
type HookQueue struct {
	queue   *spatial.LockFreeQueue[HookEvent]
	dropped uint64 // atomic
}

// NewHookQueue creates a queue holding up to capacity pending events.
func NewHookQueue(capacity int) *HookQueue {
	return &HookQueue{queue: spatial.NewLockFreeQueue[HookEvent](capacity)}
}

func (q *HookQueue) push(ev HookEvent) {
	if !q.queue.TryPush(ev) {
		atomic.AddUint64(&q.dropped, 1)
	}
}

func (q *HookQueue) OnStateChanged(id CharacterID, from, to CombatState) {
	q.push(HookEvent{Kind: HookStateChanged, Character: id, From: from, To: to})
}

func (q *HookQueue) OnAttackStart(id CharacterID, comboIndex int) {
	q.push(HookEvent{Kind: HookAttackStart, Character: id, ComboIndex: comboIndex})
}

func (q *HookQueue) OnHitLanded(attacker, target CharacterID, damage int) {
	q.push(HookEvent{Kind: HookHitLanded, Character: attacker, Target: target, Damage: damage})
}

func (q *HookQueue) OnDeath(id CharacterID) {
	q.push(HookEvent{Kind: HookDeath, Character: id})
}

// Drain pops queued events into buf. Only one goroutine may drain.
func (q *HookQueue) Drain(buf []HookEvent) int {
	return q.queue.DrainTo(buf)
}

// Dropped returns how many events were discarded because the queue was full.
func (q *HookQueue) Dropped() uint64 {
	return atomic.LoadUint64(&q.dropped)
}
