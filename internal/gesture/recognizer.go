package gesture

import "time"

type recState int

const (
	recIdle recState = iota
	recAwaitSecond
	recSecondDown
)

// Recognizer classifies debounced press and release edges into Single,
// DoubleQuick and DoubleHeld gestures.
//
// A second press qualifies as a double only if it lands within the
// double window of the first press. A press arriving later than that
// restarts the sequence as a fresh first press. If the button stays
// released for a full window after the first release, the sequence
// resolves to a Single. Exactly one gesture is emitted per sequence.
type Recognizer struct {
	window time.Duration
	hold   time.Duration

	state        recState
	firstPress   time.Time
	firstRelease time.Time
	released     bool
	secondPress  time.Time
}

// NewRecognizer returns a Recognizer with the given double-press
// window and hold threshold.
func NewRecognizer(window, hold time.Duration) *Recognizer {
	return &Recognizer{window: window, hold: hold}
}

// Edge feeds one debounced edge: pressed=true for a press, false for a
// release. A release that completes a double returns its gesture.
func (r *Recognizer) Edge(pressed bool, now time.Time) Press {
	switch r.state {
	case recIdle:
		if pressed {
			r.state = recAwaitSecond
			r.firstPress = now
			r.released = false
		}
	case recAwaitSecond:
		if pressed {
			if now.Sub(r.firstPress) <= r.window {
				r.state = recSecondDown
				r.secondPress = now
			} else {
				// Too late for a double: start over.
				r.firstPress = now
				r.released = false
			}
		} else {
			r.firstRelease = now
			r.released = true
		}
	case recSecondDown:
		if !pressed {
			held := now.Sub(r.secondPress)
			r.reset()
			if held >= r.hold {
				return PressDoubleHeld
			}
			return PressDoubleQuick
		}
	}
	return PressNone
}

// Tick resolves the single-press timeout. Call once per control tick
// after feeding any edges for that tick.
func (r *Recognizer) Tick(now time.Time) Press {
	if r.state == recAwaitSecond && r.released && now.Sub(r.firstRelease) >= r.window {
		r.reset()
		return PressSingle
	}
	return PressNone
}

func (r *Recognizer) reset() {
	r.state = recIdle
	r.released = false
}
