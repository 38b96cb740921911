package domain

import "fmt"

// TriggerKind identifies one of the events the mode controller
// dispatches on. The remote command surface uses the same spelling, so
// the wire name of a command is its trigger kind.
type TriggerKind string

const (
	TriggerPlayManual   TriggerKind = "play_manual"
	TriggerPlaySemiAuto TriggerKind = "play_semi_auto"
	TriggerPlayFullAuto TriggerKind = "play_full_auto"
	TriggerRecord       TriggerKind = "record"
	TriggerClear        TriggerKind = "clear"
	TriggerStop         TriggerKind = "stop"
	// TriggerStopReset is the stop button's double press: stop and move
	// the playback cursor back to step 0.
	TriggerStopReset  TriggerKind = "stop_reset"
	TriggerToggleMode TriggerKind = "toggle_mode"
	TriggerJumpToStep TriggerKind = "jump_to_step"
	TriggerDeleteStep TriggerKind = "delete_step"
	TriggerUpdateStep TriggerKind = "update_step"

	// TriggerStepComplete is internal: emitted by the playback engine
	// when a manual step has settled.
	TriggerStepComplete TriggerKind = "step_complete"

	// Fault signals, deliverable from any boundary.
	TriggerFaultTransport TriggerKind = "fault_transport"
	TriggerFaultStorage   TriggerKind = "fault_storage"
)

// Trigger is a normalized event for the mode controller. Index is only
// meaningful for jump/delete/update; Pose only for update.
type Trigger struct {
	Kind  TriggerKind
	Index int
	Pose  Pose
}

// remoteCommands is the set of trigger kinds reachable from the remote
// command surface, and whether each requires an index payload.
var remoteCommands = map[TriggerKind]bool{
	TriggerPlayManual:   false,
	TriggerPlaySemiAuto: false,
	TriggerPlayFullAuto: false,
	TriggerRecord:       false,
	TriggerClear:        false,
	TriggerStop:         false,
	TriggerToggleMode:   false,
	TriggerJumpToStep:   true,
	TriggerDeleteStep:   true,
}

// CommandTrigger maps a remote command name to a Trigger. Commands that
// address a step require an index; index is nil otherwise. Unknown
// names and missing payloads return ErrBadCommand.
func CommandTrigger(name string, index *int) (Trigger, error) {
	kind := TriggerKind(name)
	needsIndex, ok := remoteCommands[kind]
	if !ok {
		return Trigger{}, fmt.Errorf("%w: %q", ErrBadCommand, name)
	}
	if needsIndex && index == nil {
		return Trigger{}, fmt.Errorf("%w: %q requires an index", ErrBadCommand, name)
	}
	tr := Trigger{Kind: kind}
	if index != nil {
		tr.Index = *index
	}
	return tr, nil
}
