// Package gesture turns raw button levels into debounced press
// gestures. One reusable automaton recognizes single presses, quick
// double presses and held double presses; a simpler detector fires
// once when a button has been held long enough.
//
// Nothing here sleeps or reads a clock. Every step takes the current
// time as a parameter so the timing logic is deterministic under test.
package gesture

import "time"

// Press classifies a completed button gesture.
type Press string

const (
	// PressNone means no gesture completed on this step.
	PressNone Press = ""
	// PressSingle is one press and release with no follow-up press.
	PressSingle Press = "single"
	// PressDoubleQuick is two presses in quick succession, the second
	// released before the hold threshold.
	PressDoubleQuick Press = "double_quick"
	// PressDoubleHeld is two presses in quick succession, the second
	// held at least the hold threshold.
	PressDoubleHeld Press = "double_held"
)

// Default timing parameters, overridable through configuration.
const (
	// DefaultDebounce is how long a raw level must stay put before it
	// counts as a clean edge.
	DefaultDebounce = 50 * time.Millisecond
	// DefaultDoubleWindow is the maximum gap between two presses that
	// still forms a double.
	DefaultDoubleWindow = 500 * time.Millisecond
	// DefaultHoldThreshold is the minimum continuous press duration
	// that counts as held.
	DefaultHoldThreshold = time.Second
)
