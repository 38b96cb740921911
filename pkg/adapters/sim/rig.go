// Package sim provides an in-memory rig for demos and tests. Pots and
// buttons are driven programmatically, so a TUI or a test feeds the
// same debounce and gesture pipeline the hardware does.
package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/buzzauk/sixarm/pkg/domain"
	"github.com/buzzauk/sixarm/pkg/ports"
)

// ErrOffline is returned by every port while the rig is unplugged.
var ErrOffline = errors.New("sim rig offline")

// Button identifies one panel button.
type Button int

const (
	ButtonRecord Button = iota
	ButtonRun
	ButtonStop
	ButtonClear
)

// Rig implements all four driver ports in memory.
type Rig struct {
	mu      sync.Mutex
	rng     domain.PulseRange
	pose    domain.Pose
	pots    domain.Pose
	levels  ports.ButtonLevels
	color   domain.Color
	offline bool
}

var (
	_ ports.Actuator  = (*Rig)(nil)
	_ ports.Sampler   = (*Rig)(nil)
	_ ports.Buttons   = (*Rig)(nil)
	_ ports.Indicator = (*Rig)(nil)
)

// New returns a rig with every pot centered in rng.
func New(rng domain.PulseRange) *Rig {
	return &Rig{rng: rng, pots: domain.Mid(rng)}
}

// Apply records the pose as the rig's servo state.
func (r *Rig) Apply(_ context.Context, p domain.Pose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.offline {
		return ErrOffline
	}
	r.pose = p
	return nil
}

// Sample returns the current pot values.
func (r *Rig) Sample(_ context.Context) (domain.Pose, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.offline {
		return domain.Pose{}, ErrOffline
	}
	return r.pots, nil
}

// Levels returns the current button levels.
func (r *Rig) Levels(_ context.Context) (ports.ButtonLevels, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.offline {
		return ports.ButtonLevels{}, ErrOffline
	}
	return r.levels, nil
}

// Set records the indicator color.
func (r *Rig) Set(_ context.Context, c domain.Color) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.offline {
		return ErrOffline
	}
	r.color = c
	return nil
}

// Pose returns the last applied servo pose.
func (r *Rig) Pose() domain.Pose {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pose
}

// Pots returns the current pot values.
func (r *Rig) Pots() domain.Pose {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pots
}

// Indicator returns the last indicator color.
func (r *Rig) Indicator() domain.Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.color
}

// SetPot moves one pot, clamped into the pulse range.
func (r *Rig) SetPot(ch int, v uint16) {
	if ch < 0 || ch >= domain.NumChannels {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pots[ch] = r.rng.ClampValue(v)
}

// NudgePot moves one pot by delta, clamped into the pulse range.
func (r *Rig) NudgePot(ch int, delta int) {
	if ch < 0 || ch >= domain.NumChannels {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	v := int(r.pots[ch]) + delta
	if v < 0 {
		v = 0
	}
	r.pots[ch] = r.rng.ClampValue(uint16(v))
}

// SetButton sets one button level.
func (r *Rig) SetButton(b Button, pressed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch b {
	case ButtonRecord:
		r.levels.Record = pressed
	case ButtonRun:
		r.levels.Run = pressed
	case ButtonStop:
		r.levels.Stop = pressed
	case ButtonClear:
		r.levels.Clear = pressed
	}
}

// Tap presses a button now and releases it after hold.
func (r *Rig) Tap(b Button, hold time.Duration) {
	r.SetButton(b, true)
	time.AfterFunc(hold, func() { r.SetButton(b, false) })
}

// SetOffline unplugs or replugs the rig. While offline every port
// returns ErrOffline, which drives the transport fault path.
func (r *Rig) SetOffline(offline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offline = offline
}
