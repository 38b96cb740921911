// Package control implements the mode controller and the cooperative
// control loop that drives it.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/buzzauk/sixarm/internal/logging"
	"github.com/buzzauk/sixarm/internal/metrics"
	"github.com/buzzauk/sixarm/internal/motion"
	"github.com/buzzauk/sixarm/internal/store"
	"github.com/buzzauk/sixarm/pkg/domain"
)

// Controller owns the operating mode, the target pose and the smoothed
// current pose. Every external trigger goes through Dispatch; per-tick
// work goes through Tick. Both must be called from the single control
// goroutine, never concurrently.
type Controller struct {
	log      *slog.Logger
	met      *metrics.Metrics
	store    *store.Store
	play     *Playback
	smoother *motion.Smoother
	rng      domain.PulseRange

	mode      domain.Mode
	current   domain.Pose
	target    domain.Pose
	pots      domain.Pose
	connected bool
}

// New returns a Controller in idle at the mid-range pose.
func New(st *store.Store, play *Playback, sm *motion.Smoother, rng domain.PulseRange, log *slog.Logger, met *metrics.Metrics) *Controller {
	if log == nil {
		log = logging.NewNop()
	}
	boot := domain.Mid(rng)
	return &Controller{
		log:      log,
		met:      met,
		store:    st,
		play:     play,
		smoother: sm,
		rng:      rng,
		mode:     domain.ModeIdle,
		current:  boot,
		target:   boot,
		pots:     boot,
	}
}

// Mode returns the active operating mode.
func (c *Controller) Mode() domain.Mode { return c.mode }

// Current returns the smoothed pose last written to the actuators.
func (c *Controller) Current() domain.Pose { return c.current }

// Target returns the pose the smoother is approaching.
func (c *Controller) Target() domain.Pose { return c.target }

// StepCount returns the number of stored steps.
func (c *Controller) StepCount() int { return c.store.Count() }

// Steps returns a copy of the stored steps.
func (c *Controller) Steps() []domain.Pose { return c.store.All() }

// ObservePots records the latest analog sample. Manual input tracks
// it every tick; toggling into manual input adopts it immediately.
func (c *Controller) ObservePots(p domain.Pose) { c.pots = p.Clamp(c.rng) }

// SetConnected records the driver link health for status reporting.
func (c *Controller) SetConnected(v bool) { c.connected = v }

// Status returns the externally visible snapshot.
func (c *Controller) Status() domain.Status {
	return domain.Status{
		Mode:      c.mode,
		Label:     c.mode.Label(),
		StepCount: c.store.Count(),
		Cursor:    c.play.Cursor(),
		Current:   c.current,
		Connected: c.connected,
	}
}

// Tick runs the mode-specific action for one control tick, then
// advances the smoother. It returns the pose to write to the
// actuators.
func (c *Controller) Tick(ctx context.Context, now time.Time) domain.Pose {
	switch {
	case c.mode == domain.ModeManualInput:
		c.target = c.pots
	case c.mode.IsPlayback():
		next, ev := c.play.Tick(c.current, c.target, now)
		c.target = next
		switch ev {
		case EventStepDone:
			_, _ = c.Dispatch(ctx, domain.Trigger{Kind: domain.TriggerStepComplete}, now)
		case EventFinished:
			_, _ = c.Dispatch(ctx, domain.Trigger{Kind: domain.TriggerStop}, now)
		}
	}
	c.current, _ = c.smoother.Advance(c.current, c.target)
	return c.current
}

// Dispatch validates tr against the current mode and applies it. The
// returned string is a human-readable outcome for the caller; the
// error, when non-nil, is a *domain.Reject carrying the trigger, the
// mode it hit and the reason.
func (c *Controller) Dispatch(ctx context.Context, tr domain.Trigger, now time.Time) (string, error) {
	msg, err := c.dispatch(ctx, tr, now)
	c.met.Trigger(tr.Kind, err == nil)
	return msg, err
}

func (c *Controller) dispatch(ctx context.Context, tr domain.Trigger, now time.Time) (string, error) {
	// Fault signals are accepted from any mode, repeats included.
	switch tr.Kind {
	case domain.TriggerFaultTransport:
		return c.enterFault(domain.ModeFaultTransport), nil
	case domain.TriggerFaultStorage:
		return c.enterFault(domain.ModeFaultStorage), nil
	}

	// Fault modes absorb everything else until an external restart.
	if c.mode.IsFault() {
		return "", c.reject(tr.Kind, domain.ErrModeConflict)
	}

	switch tr.Kind {
	case domain.TriggerPlayManual:
		return c.startPlayback(domain.ModePlaybackManual, tr.Kind, now)
	case domain.TriggerPlaySemiAuto:
		return c.startPlayback(domain.ModePlaybackSemiAuto, tr.Kind, now)
	case domain.TriggerPlayFullAuto:
		return c.startPlayback(domain.ModePlaybackFullAuto, tr.Kind, now)

	case domain.TriggerRecord:
		if !c.mode.Ready() {
			return "", c.reject(tr.Kind, domain.ErrModeConflict)
		}
		idx, err := c.store.Append(ctx, c.current)
		if err != nil {
			if errors.Is(err, domain.ErrCommitFailed) {
				c.met.CommitFailure()
			}
			return "", c.reject(tr.Kind, err)
		}
		c.met.Steps(c.store.Count())
		return fmt.Sprintf("step %d recorded", idx), nil

	case domain.TriggerToggleMode:
		switch c.mode {
		case domain.ModeIdle, domain.ModeManualInput:
			c.enter(domain.ModeRemoteControl)
			return domain.ModeRemoteControl.Label(), nil
		case domain.ModeRemoteControl:
			// Adopt the live sensors so the arm does not jump to a
			// stale target.
			c.target = c.pots
			c.enter(domain.ModeManualInput)
			return domain.ModeManualInput.Label(), nil
		default:
			return "", c.reject(tr.Kind, domain.ErrModeConflict)
		}

	case domain.TriggerStop:
		return c.stop(false)
	case domain.TriggerStopReset:
		return c.stop(true)

	case domain.TriggerClear:
		if !c.mode.Ready() {
			return "", c.reject(tr.Kind, domain.ErrModeConflict)
		}
		c.enter(domain.ModeClearingStore)
		err := c.store.Clear(ctx)
		c.play.ResetCursor()
		c.enter(domain.ModeIdle)
		if err != nil {
			c.met.CommitFailure()
			return "", c.reject(tr.Kind, err)
		}
		c.met.Steps(0)
		return "steps cleared", nil

	case domain.TriggerJumpToStep:
		if !c.mode.Ready() {
			return "", c.reject(tr.Kind, domain.ErrModeConflict)
		}
		step, err := c.store.Read(tr.Index)
		if err != nil {
			return "", c.reject(tr.Kind, err)
		}
		c.target = step
		c.play.SetCursor((tr.Index + 1) % c.store.Count())
		return fmt.Sprintf("moving to step %d", tr.Index), nil

	case domain.TriggerDeleteStep:
		if !c.mode.Ready() {
			return "", c.reject(tr.Kind, domain.ErrModeConflict)
		}
		if err := c.store.Delete(ctx, tr.Index); err != nil {
			if errors.Is(err, domain.ErrCommitFailed) {
				c.met.CommitFailure()
			}
			return "", c.reject(tr.Kind, err)
		}
		c.play.ClampCursor()
		c.met.Steps(c.store.Count())
		return fmt.Sprintf("step %d deleted", tr.Index), nil

	case domain.TriggerUpdateStep:
		if !c.mode.Ready() {
			return "", c.reject(tr.Kind, domain.ErrModeConflict)
		}
		if err := c.store.Update(ctx, tr.Index, tr.Pose); err != nil {
			if errors.Is(err, domain.ErrCommitFailed) {
				c.met.CommitFailure()
			}
			return "", c.reject(tr.Kind, err)
		}
		return fmt.Sprintf("step %d updated", tr.Index), nil

	case domain.TriggerStepComplete:
		if c.mode != domain.ModePlaybackManual {
			return "", c.reject(tr.Kind, domain.ErrModeConflict)
		}
		c.enter(domain.ModeIdle)
		return "step complete", nil
	}

	return "", c.reject(tr.Kind, domain.ErrBadCommand)
}

func (c *Controller) startPlayback(mode domain.Mode, kind domain.TriggerKind, now time.Time) (string, error) {
	if !c.mode.Ready() {
		return "", c.reject(kind, domain.ErrModeConflict)
	}
	target, err := c.play.Start(mode, now)
	if err != nil {
		return "", c.reject(kind, err)
	}
	c.target = target
	c.enter(mode)
	return fmt.Sprintf("%s started at step %d", mode.Label(), c.play.Cursor()), nil
}

// stop cancels any in-flight motion by freezing the target at the
// current pose. It never snaps the arm.
func (c *Controller) stop(reset bool) (string, error) {
	c.play.Stop()
	c.target = c.current
	if reset {
		c.play.ResetCursor()
	}
	if c.mode != domain.ModeIdle {
		c.enter(domain.ModeIdle)
	}
	if reset {
		return "stopped, cursor rewound", nil
	}
	return "stopped", nil
}

func (c *Controller) enter(mode domain.Mode) {
	c.log.Info("mode change", "from", string(c.mode), "to", string(mode))
	c.mode = mode
	c.met.ModeChange(mode)
}

func (c *Controller) enterFault(mode domain.Mode) string {
	if c.mode == mode {
		return mode.Label()
	}
	// The prior mode is kept for the log line only; faults do not
	// resume.
	c.log.Error("entering fault mode", "fault", string(mode), "prior_mode", string(c.mode))
	c.play.Stop()
	c.target = c.current
	c.enter(mode)
	return mode.Label()
}

func (c *Controller) reject(kind domain.TriggerKind, reason error) error {
	c.log.Warn("trigger rejected", "trigger", string(kind), "mode", string(c.mode), "error", reason)
	return &domain.Reject{Trigger: kind, Mode: c.mode, Reason: reason}
}
