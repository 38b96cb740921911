package domain

// Mode is the rig's operating state. Exactly one mode is active at a
// time; it is owned exclusively by the mode controller and every
// transition goes through its dispatch entry point.
type Mode string

const (
	// ModeIdle holds position; the rig accepts teach and play triggers.
	ModeIdle Mode = "idle"
	// ModeManualInput tracks the analog sensors: every tick the pots are
	// sampled into the target pose.
	ModeManualInput Mode = "manual_input"
	// ModeRemoteControl accepts position updates from the remote surface
	// only; sensors are ignored.
	ModeRemoteControl Mode = "remote_control"
	// ModePlaybackManual plays one stored step, then returns to idle.
	ModePlaybackManual Mode = "playback_manual"
	// ModePlaybackSemiAuto plays through the stored steps once.
	ModePlaybackSemiAuto Mode = "playback_semi_auto"
	// ModePlaybackFullAuto plays the stored steps in a loop until stopped.
	ModePlaybackFullAuto Mode = "playback_full_auto"
	// ModeClearingStore is held while the step bank is being wiped so no
	// other mutation can interleave with the wipe.
	ModeClearingStore Mode = "clearing_store"
	// ModeFaultTransport is absorbing: entered on transport loss, exited
	// only by an external restart.
	ModeFaultTransport Mode = "fault_transport"
	// ModeFaultStorage is absorbing: entered on unrecoverable storage
	// failure, exited only by an external restart.
	ModeFaultStorage Mode = "fault_storage"
)

// IsPlayback reports whether m is one of the three playback modes.
// Membership is explicit rather than ordinal so reordering the
// constants can never silently change guard behavior.
func (m Mode) IsPlayback() bool {
	switch m {
	case ModePlaybackManual, ModePlaybackSemiAuto, ModePlaybackFullAuto:
		return true
	}
	return false
}

// IsFault reports whether m is an absorbing fault mode.
func (m Mode) IsFault() bool {
	return m == ModeFaultTransport || m == ModeFaultStorage
}

// Ready reports whether the rig is in a mode that accepts teach and
// play triggers: idle, manual input, or remote control.
func (m Mode) Ready() bool {
	switch m {
	case ModeIdle, ModeManualInput, ModeRemoteControl:
		return true
	}
	return false
}

// Label returns the human-readable name shown on the status surface.
func (m Mode) Label() string {
	switch m {
	case ModeIdle:
		return "Idle"
	case ModeManualInput:
		return "Manual input"
	case ModeRemoteControl:
		return "Remote control"
	case ModePlaybackManual:
		return "Step playback"
	case ModePlaybackSemiAuto:
		return "Semi-automatic playback"
	case ModePlaybackFullAuto:
		return "Continuous playback"
	case ModeClearingStore:
		return "Clearing step bank"
	case ModeFaultTransport:
		return "Transport fault"
	case ModeFaultStorage:
		return "Storage fault"
	}
	return "Unknown"
}

// Color is an RGB indicator color. Blink marks states the indicator
// should render as flashing where the hardware supports it; adapters
// that cannot flash show the color steady.
type Color struct {
	R, G, B uint8
	Blink   bool
}

// Indicator palette, one entry per mode.
var (
	ColorDimBlue  = Color{B: 80}
	ColorCyan     = Color{G: 255, B: 255}
	ColorMagenta  = Color{R: 255, B: 255}
	ColorOrange   = Color{R: 255, G: 140}
	ColorYellow   = Color{R: 255, G: 255}
	ColorGreen    = Color{G: 255}
	ColorFlashing = Color{R: 255, G: 140, Blink: true}
	ColorRed      = Color{R: 255}
)

// Color returns the fixed indicator color for the mode.
func (m Mode) Color() Color {
	switch m {
	case ModeIdle:
		return ColorDimBlue
	case ModeManualInput:
		return ColorCyan
	case ModeRemoteControl:
		return ColorMagenta
	case ModePlaybackManual:
		return ColorOrange
	case ModePlaybackSemiAuto:
		return ColorYellow
	case ModePlaybackFullAuto:
		return ColorGreen
	case ModeClearingStore:
		return ColorFlashing
	case ModeFaultTransport, ModeFaultStorage:
		return ColorRed
	}
	return ColorRed
}
