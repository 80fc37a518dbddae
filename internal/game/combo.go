package game

import "time"

// Strike is one attack chosen by a ComboResolver.
type Strike struct {
	Attack   AttackDefinition
	Index    int
	Terminal bool // the chain wrapped back to 0 after this attack
}

// ComboResolver tracks chain progression for one attacking character.
//
// lastAttack is the single authoritative timestamp; deferred resets compare
// against it when they fire, so an outdated timer never resets a fresh chain.
type ComboResolver struct {
	chain      ComboChain
	index      int
	lastAttack time.Duration
	attacked   bool
	active     bool // owner is in Attacking
}

// NewComboResolver validates the chain and returns a resolver at index 0.
func NewComboResolver(chain ComboChain) (*ComboResolver, error) {
	valid, err := chain.Validate()
	if err != nil {
		return nil, err
	}
	return &ComboResolver{chain: valid}, nil
}

// Chain returns the chain being played.
func (r *ComboResolver) Chain() ComboChain { return r.chain }

// Index returns the index of the next attack to play.
func (r *ComboResolver) Index() int { return r.index }

// LastAttack returns the time of the most recent NextAttack call.
func (r *ComboResolver) LastAttack() time.Duration { return r.lastAttack }

// Window returns the continuation window.
func (r *ComboResolver) Window() time.Duration { return r.chain.Window }

// NextAttack picks the attack to play at now and advances the chain.
// The caller arms ResetDue(now) to call Expire.
func (r *ComboResolver) NextAttack(now time.Duration) Strike {
	if r.attacked && now-r.lastAttack > r.chain.Window && r.index > 0 {
		r.index = 0
	}

	chosen := r.index
	r.index = (r.index + 1) % len(r.chain.Attacks)
	r.lastAttack = now
	r.attacked = true
	// a terminal strike closes the chain; the next one starts from Idle
	r.active = r.index != 0

	return Strike{
		Attack:   r.chain.Attacks[chosen],
		Index:    chosen,
		Terminal: r.index == 0,
	}
}

// Upcoming returns the attack NextAttack(now) would choose, without advancing.
func (r *ComboResolver) Upcoming(now time.Duration) AttackDefinition {
	idx := r.index
	if r.attacked && now-r.lastAttack > r.chain.Window {
		idx = 0
	}
	return r.chain.Attacks[idx]
}

// ResetDue is the earliest time at which Expire can observe the window as lapsed.
func (r *ComboResolver) ResetDue() time.Duration {
	return r.lastAttack + r.chain.Window + 1
}

// Expire is the deferred reset. It re-validates the elapsed time and is a
// no-op unless the window has lapsed since the latest attack. Returns true
// when the chain ended.
func (r *ComboResolver) Expire(now time.Duration) bool {
	if !r.attacked || now-r.lastAttack <= r.chain.Window {
		return false
	}
	r.index = 0
	return true
}

// CanContinue reports whether a new request extends the chain. Only true
// while the owner is attacking, the last strike was not terminal and the
// window is still open.
func (r *ComboResolver) CanContinue(now time.Duration) bool {
	return r.active && now-r.lastAttack < r.chain.Window
}

// Ready reports whether a fresh chain may start. Single-attack chains use
// the window as a cooldown.
func (r *ComboResolver) Ready(now time.Duration) bool {
	if len(r.chain.Attacks) > 1 || !r.attacked {
		return true
	}
	return now-r.lastAttack >= r.chain.Window
}

// End marks the owner as no longer attacking. The index is kept so a quick
// re-entry from Idle can still continue inside the window.
func (r *ComboResolver) End() {
	r.active = false
}

// Interrupt ends the chain outright, e.g. when the owner is hit.
func (r *ComboResolver) Interrupt() {
	r.active = false
	r.index = 0
}

// Replace swaps in a reloaded chain. The index is kept modulo the new length.
func (r *ComboResolver) Replace(chain ComboChain) error {
	valid, err := chain.Validate()
	if err != nil {
		return err
	}
	r.chain = valid
	r.index %= len(valid.Attacks)
	return nil
}
