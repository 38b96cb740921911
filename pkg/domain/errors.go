package domain

import (
	"errors"
	"fmt"
)

// Sentinel reasons for rejected triggers and failed store mutations.
// They are wrapped by Reject (or fmt.Errorf with %w) so callers can
// test with errors.Is while still getting a precise message.
var (
	// ErrModeConflict means the trigger is not valid in the current mode.
	ErrModeConflict = errors.New("trigger not valid in current mode")
	// ErrNoSteps means playback was requested with an empty step bank.
	ErrNoSteps = errors.New("no steps recorded")
	// ErrStoreFull means the step bank is at capacity.
	ErrStoreFull = errors.New("step bank full")
	// ErrOutOfRange means a step index does not address a stored step.
	ErrOutOfRange = errors.New("step index out of range")
	// ErrCommitFailed means the durable write behind a mutation did not
	// persist; in-memory counters were rolled back where possible.
	ErrCommitFailed = errors.New("storage commit failed")
	// ErrBadCommand means a remote command was unknown or malformed.
	ErrBadCommand = errors.New("unknown or malformed command")
	// ErrNotRunning means the control loop is not servicing requests.
	ErrNotRunning = errors.New("control loop not running")
)

// Reject is returned by the mode controller for every refused trigger.
// It carries enough context for the caller to display a precise
// message: what was attempted, the mode it hit, and the reason.
type Reject struct {
	Trigger TriggerKind
	Mode    Mode
	Reason  error
}

func (r *Reject) Error() string {
	return fmt.Sprintf("%s rejected in %s: %v", r.Trigger, r.Mode, r.Reason)
}

func (r *Reject) Unwrap() error {
	return r.Reason
}
