package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMultiHooksFanOut tests that every sink sees every notification in order.
func TestMultiHooksFanOut(t *testing.T) {
	a, b := &recordHooks{}, &recordHooks{}
	hooks := MultiHooks{a, NopHooks{}, b}

	hooks.OnStateChanged("x", StateIdle, StateAttacking)
	hooks.OnAttackStart("x", 1)
	hooks.OnHitLanded("x", "y", 12)
	hooks.OnDeath("y")

	want := []string{"x idle->attacking", "x attack 1", "x hit y 12", "y died"}
	assert.Equal(t, want, a.events)
	assert.Equal(t, want, b.events)
}

// TestHookQueueDropsWhenFull tests that a full queue counts drops instead of blocking.
func TestHookQueueDropsWhenFull(t *testing.T) {
	q := NewHookQueue(2)

	q.OnAttackStart("a", 0)
	q.OnHitLanded("a", "b", 7)
	q.OnDeath("b")
	assert.Equal(t, uint64(1), q.Dropped())

	buf := make([]HookEvent, 8)
	n := q.Drain(buf)
	require.Equal(t, 2, n)
	assert.Equal(t, HookEvent{Kind: HookAttackStart, Character: "a"}, buf[0])
	assert.Equal(t, HookEvent{Kind: HookHitLanded, Character: "a", Target: "b", Damage: 7}, buf[1])

	q.OnStateChanged("a", StateAttacking, StateIdle)
	n = q.Drain(buf)
	require.Equal(t, 1, n)
	assert.Equal(t, StateIdle, buf[0].To)
}
