package gesture

import "time"

// Hold fires once when a press has lasted the hold threshold, then
// stays quiet until the button is released and pressed again.
type Hold struct {
	threshold time.Duration
	pressed   bool
	pressedAt time.Time
	latched   bool
}

// NewHold returns a Hold detector with the given threshold.
func NewHold(threshold time.Duration) *Hold {
	return &Hold{threshold: threshold}
}

// Edge feeds one debounced edge.
func (h *Hold) Edge(pressed bool, now time.Time) {
	if pressed {
		h.pressed = true
		h.pressedAt = now
		return
	}
	h.pressed = false
	h.latched = false
}

// Tick reports whether the threshold was crossed on this tick.
func (h *Hold) Tick(now time.Time) bool {
	if h.pressed && !h.latched && now.Sub(h.pressedAt) >= h.threshold {
		h.latched = true
		return true
	}
	return false
}
