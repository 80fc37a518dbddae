package game

// HealthModel owns current/max health and the death flag of one character.
// 0 <= current <= max always holds.
type HealthModel struct {
	current int
	max     int
	dead    bool
}

// NewHealthModel starts at full health. A non-positive max becomes 1.
func NewHealthModel(max int) HealthModel {
	if max < 1 {
		max = 1
	}
	return HealthModel{current: max, max: max}
}

func (h *HealthModel) Current() int { return h.current }
func (h *HealthModel) Max() int     { return h.max }
func (h *HealthModel) Dead() bool   { return h.dead }

// ApplyDamage subtracts amount, clamped to [0, max]. Returns the health
// actually removed and whether this call killed the owner.
// Zero or negative amounts and hits on the dead change nothing.
func (h *HealthModel) ApplyDamage(amount int) (dealt int, died bool) {
	if amount <= 0 || h.dead {
		return 0, false
	}
	before := h.current
	h.current = clamp(h.current-amount, 0, h.max)
	if h.current == 0 {
		h.dead = true
		died = true
	}
	return before - h.current, died
}

// Heal adds amount, clamped to max. Never resurrects.
func (h *HealthModel) Heal(amount int) int {
	if amount <= 0 || h.dead {
		return 0
	}
	before := h.current
	h.current = clamp(h.current+amount, 0, h.max)
	return h.current - before
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
