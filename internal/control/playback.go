package control

import (
	"time"

	"github.com/buzzauk/sixarm/internal/store"
	"github.com/buzzauk/sixarm/pkg/domain"
)

// Event is what a playback tick asks the mode controller to do.
type Event int

const (
	// EventNone means playback is still approaching or pacing a step.
	EventNone Event = iota
	// EventStepDone means manual playback finished its single step.
	EventStepDone
	// EventFinished means semi-auto playback ran past the last step.
	EventFinished
)

// Playback sequences stored steps into the target pose. The cursor
// survives mode changes so playback resumes where it left off; it is
// reset on clear and clamped when the step bank shrinks.
type Playback struct {
	store     *store.Store
	stepDelay time.Duration
	tolerance int

	policy    domain.Mode
	cursor    int
	stepStart time.Time
	active    bool
}

// NewPlayback returns an engine over st. tolerance is how close every
// channel must be to its target before a step counts as complete;
// stepDelay paces semi-auto and full-auto advancement.
func NewPlayback(st *store.Store, stepDelay time.Duration, tolerance int) *Playback {
	return &Playback{store: st, stepDelay: stepDelay, tolerance: tolerance}
}

// Cursor returns the index of the next step to play.
func (p *Playback) Cursor() int { return p.cursor }

// SetCursor points the engine at a specific step.
func (p *Playback) SetCursor(i int) { p.cursor = i }

// ResetCursor rewinds to the first step.
func (p *Playback) ResetCursor() { p.cursor = 0 }

// ClampCursor pulls the cursor back into range after the step bank
// shrank.
func (p *Playback) ClampCursor() {
	if n := p.store.Count(); p.cursor > n {
		p.cursor = n
	}
}

// Start begins playback under the given policy mode and returns the
// pose of the step at the cursor. An out-of-range cursor restarts at
// step 0. With no steps recorded it returns ErrNoSteps.
func (p *Playback) Start(policy domain.Mode, now time.Time) (domain.Pose, error) {
	count := p.store.Count()
	if count == 0 {
		return domain.Pose{}, domain.ErrNoSteps
	}
	if p.cursor < 0 || p.cursor >= count {
		p.cursor = 0
	}
	step, err := p.store.Read(p.cursor)
	if err != nil {
		return domain.Pose{}, err
	}
	p.policy = policy
	p.stepStart = now
	p.active = true
	return step, nil
}

// Stop deactivates the engine. The cursor is preserved.
func (p *Playback) Stop() { p.active = false }

// Tick advances playback by one control tick. current is the smoothed
// pose, target the pose being approached. It returns the target for
// the next tick and an event for the mode controller.
func (p *Playback) Tick(current, target domain.Pose, now time.Time) (domain.Pose, Event) {
	if !p.active {
		return target, EventNone
	}
	count := p.store.Count()
	if count == 0 {
		p.active = false
		return target, EventFinished
	}
	if !current.Within(target, p.tolerance) {
		return target, EventNone
	}

	switch p.policy {
	case domain.ModePlaybackManual:
		p.cursor = (p.cursor + 1) % count
		p.active = false
		return target, EventStepDone

	case domain.ModePlaybackSemiAuto, domain.ModePlaybackFullAuto:
		if now.Sub(p.stepStart) < p.stepDelay {
			return target, EventNone
		}
		next := p.cursor + 1
		if next >= count {
			if p.policy == domain.ModePlaybackSemiAuto {
				p.cursor = next
				p.active = false
				return target, EventFinished
			}
			next = 0
		}
		step, err := p.store.Read(next)
		if err != nil {
			p.active = false
			return target, EventFinished
		}
		p.cursor = next
		p.stepStart = now
		return step, EventNone
	}
	return target, EventNone
}
