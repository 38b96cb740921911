// Package motion implements the per-tick approach of the current pose
// toward the target pose.
package motion

import "github.com/buzzauk/sixarm/pkg/domain"

// DefaultDeadzone is the tolerance below which a channel counts as
// settled at its target.
const DefaultDeadzone = 8

// Per-tick step sizing: an eighth of the remaining distance, at least
// one unit, at most maxStep units.
const (
	stepDivisor = 8
	maxStep     = 15
)

// Smoother advances a current pose toward a target pose in bounded
// per-tick increments. Each channel moves by an eighth of its
// remaining distance, capped at maxStep, so motion slows on approach
// and never overshoots. Channels already within the deadzone are left
// untouched, which makes a settled pose a fixed point.
type Smoother struct {
	deadzone int
	rng      domain.PulseRange
}

// NewSmoother returns a Smoother that keeps every channel inside rng.
// A deadzone of 0 makes channels converge exactly onto their targets;
// negative values are treated as 0.
func NewSmoother(rng domain.PulseRange, deadzone int) *Smoother {
	if deadzone < 0 {
		deadzone = 0
	}
	return &Smoother{deadzone: deadzone, rng: rng}
}

// Deadzone returns the settle tolerance.
func (s *Smoother) Deadzone() int { return s.deadzone }

// Advance moves current one tick toward target. It returns the new
// pose and whether every channel is now within the deadzone of its
// target.
func (s *Smoother) Advance(current, target domain.Pose) (domain.Pose, bool) {
	next := current
	for i := range next {
		diff := int(target[i]) - int(current[i])
		if abs(diff) <= s.deadzone {
			continue
		}
		step := clampInt(diff/stepDivisor, -maxStep, maxStep)
		if step == 0 {
			if diff > 0 {
				step = 1
			} else {
				step = -1
			}
		}
		v := int(current[i]) + step
		if abs(diff) <= abs(step) {
			v = int(target[i])
		}
		next[i] = s.rng.ClampValue(uint16(v))
	}
	return next, next.Within(target, s.deadzone)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
