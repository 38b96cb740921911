package control

import (
	"context"
	"log/slog"
	"time"

	"github.com/buzzauk/sixarm/internal/gesture"
	"github.com/buzzauk/sixarm/internal/logging"
	"github.com/buzzauk/sixarm/internal/metrics"
	"github.com/buzzauk/sixarm/pkg/domain"
	"github.com/buzzauk/sixarm/pkg/ports"
)

// maxDriverStrikes is how many consecutive driver failures count as a
// transport loss.
const maxDriverStrikes = 3

// Drivers bundles the driven ports the loop talks to. Indicator may be
// nil when the rig has no light.
type Drivers struct {
	Actuator  ports.Actuator
	Sampler   ports.Sampler
	Buttons   ports.Buttons
	Indicator ports.Indicator
}

// LoopConfig wires the control loop. Zero durations take the package
// defaults.
type LoopConfig struct {
	Controller *Controller
	Drivers    Drivers

	Tick         time.Duration
	Debounce     time.Duration
	DoubleWindow time.Duration
	Hold         time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// OnStatus, when set, is called from the loop goroutine whenever
	// the status snapshot changes. It must not block.
	OnStatus func(domain.Status)
}

type reqKind int

const (
	reqTrigger reqKind = iota
	reqStatus
	reqSteps
)

type request struct {
	kind    reqKind
	trigger domain.Trigger
	reply   chan reply
}

type reply struct {
	msg    string
	status domain.Status
	steps  []domain.Pose
	err    error
}

// Loop is the single cooperative control goroutine. Each tick it
// checks driver health, scans the sensors and buttons, dispatches the
// resulting triggers, runs the mode action and the smoother, writes
// the actuators and refreshes the indicator. Remote requests are
// serviced between ticks on the same goroutine, so exactly one trigger
// is ever in flight and the controller needs no locks.
type Loop struct {
	ctl  *Controller
	drv  Drivers
	log  *slog.Logger
	met  *metrics.Metrics
	tick time.Duration

	recordBtn *gesture.Button
	runBtn    *gesture.Button
	stopBtn   *gesture.Button
	clearBtn  *gesture.HoldButton

	onStatus   func(domain.Status)
	lastStatus domain.Status
	sentStatus bool

	strikes int

	requests chan request
	done     chan struct{}
}

// NewLoop builds the control loop around an existing controller.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Tick <= 0 {
		cfg.Tick = 15 * time.Millisecond
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = gesture.DefaultDebounce
	}
	if cfg.DoubleWindow <= 0 {
		cfg.DoubleWindow = gesture.DefaultDoubleWindow
	}
	if cfg.Hold <= 0 {
		cfg.Hold = gesture.DefaultHoldThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	return &Loop{
		ctl:       cfg.Controller,
		drv:       cfg.Drivers,
		log:       cfg.Logger,
		met:       cfg.Metrics,
		tick:      cfg.Tick,
		recordBtn: gesture.NewButton(cfg.Debounce, cfg.DoubleWindow, cfg.Hold),
		runBtn:    gesture.NewButton(cfg.Debounce, cfg.DoubleWindow, cfg.Hold),
		stopBtn:   gesture.NewButton(cfg.Debounce, cfg.DoubleWindow, cfg.Hold),
		clearBtn:  gesture.NewHoldButton(cfg.Debounce, cfg.Hold),
		onStatus:  cfg.OnStatus,
		requests:  make(chan request),
		done:      make(chan struct{}),
	}
}

// Run drives the loop until ctx is canceled. External callers reach
// the controller only through Do, Status and Steps while Run is up.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	// Boot: put the rig at the starting pose and show the idle color.
	l.apply(ctx, l.ctl.Current())
	l.refreshIndicator(ctx, true)
	l.publishStatus()

	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	l.log.Info("control loop running", "tick", l.tick.String())
	for {
		select {
		case <-ctx.Done():
			l.log.Info("control loop stopped")
			return nil
		case now := <-ticker.C:
			l.step(ctx, now)
		case req := <-l.requests:
			l.serve(ctx, req)
		}
	}
}

// Do submits a trigger and waits for the controller's verdict.
func (l *Loop) Do(ctx context.Context, tr domain.Trigger) (string, error) {
	rep, err := l.roundTrip(ctx, request{kind: reqTrigger, trigger: tr, reply: make(chan reply, 1)})
	if err != nil {
		return "", err
	}
	return rep.msg, rep.err
}

// Status returns the current snapshot.
func (l *Loop) Status(ctx context.Context) (domain.Status, error) {
	rep, err := l.roundTrip(ctx, request{kind: reqStatus, reply: make(chan reply, 1)})
	if err != nil {
		return domain.Status{}, err
	}
	return rep.status, nil
}

// Steps returns the stored steps.
func (l *Loop) Steps(ctx context.Context) ([]domain.Pose, error) {
	rep, err := l.roundTrip(ctx, request{kind: reqSteps, reply: make(chan reply, 1)})
	if err != nil {
		return nil, err
	}
	return rep.steps, nil
}

func (l *Loop) roundTrip(ctx context.Context, req request) (reply, error) {
	select {
	case l.requests <- req:
	case <-ctx.Done():
		return reply{}, ctx.Err()
	case <-l.done:
		return reply{}, domain.ErrNotRunning
	}
	select {
	case rep := <-req.reply:
		return rep, nil
	case <-ctx.Done():
		return reply{}, ctx.Err()
	case <-l.done:
		// The loop may have answered just before exiting.
		select {
		case rep := <-req.reply:
			return rep, nil
		default:
			return reply{}, domain.ErrNotRunning
		}
	}
}

func (l *Loop) step(ctx context.Context, now time.Time) {
	started := time.Now()
	defer func() { l.met.TickDuration(time.Since(started).Seconds()) }()

	before := l.ctl.Mode()

	// (a) connectivity: a run of driver failures is a transport loss.
	l.ctl.SetConnected(l.strikes == 0)
	if l.strikes >= maxDriverStrikes && before != domain.ModeFaultTransport {
		l.logDiagnostics(ctx)
		_, _ = l.ctl.Dispatch(ctx, domain.Trigger{Kind: domain.TriggerFaultTransport}, now)
	}

	// (b) scan inputs.
	if pots, err := l.drv.Sampler.Sample(ctx); err != nil {
		l.driverError("sample", err)
	} else {
		l.driverOK()
		l.ctl.ObservePots(pots)
	}
	levels, lerr := l.drv.Buttons.Levels(ctx)
	if lerr != nil {
		l.driverError("buttons", lerr)
	} else {
		l.driverOK()
	}

	// (c) dispatch the gestures those levels complete. Rejections are
	// already logged by the controller.
	if lerr == nil {
		for _, tr := range l.buttonTriggers(levels, now) {
			_, _ = l.ctl.Dispatch(ctx, tr, now)
		}
	}

	// (d)+(e) mode action, then smoothing.
	pose := l.ctl.Tick(ctx, now)
	l.apply(ctx, pose)

	// (f) indicator tracks mode changes.
	l.refreshIndicator(ctx, l.ctl.Mode() != before)

	l.publishStatus()
}

func (l *Loop) serve(ctx context.Context, req request) {
	switch req.kind {
	case reqTrigger:
		before := l.ctl.Mode()
		msg, err := l.ctl.Dispatch(ctx, req.trigger, time.Now())
		req.reply <- reply{msg: msg, err: err}
		l.refreshIndicator(ctx, l.ctl.Mode() != before)
		l.publishStatus()
	case reqStatus:
		req.reply <- reply{status: l.ctl.Status()}
	case reqSteps:
		req.reply <- reply{steps: l.ctl.Steps()}
	}
}

// buttonTriggers feeds the raw levels through the per-button automata
// and maps completed gestures to controller triggers.
func (l *Loop) buttonTriggers(levels ports.ButtonLevels, now time.Time) []domain.Trigger {
	var out []domain.Trigger

	switch l.recordBtn.Update(levels.Record, now) {
	case gesture.PressSingle:
		out = append(out, domain.Trigger{Kind: domain.TriggerRecord})
	case gesture.PressDoubleQuick:
		out = append(out, domain.Trigger{Kind: domain.TriggerToggleMode})
	case gesture.PressDoubleHeld:
		// Teach undo: drop the most recent step.
		out = append(out, domain.Trigger{Kind: domain.TriggerDeleteStep, Index: l.ctl.StepCount() - 1})
	}

	switch l.runBtn.Update(levels.Run, now) {
	case gesture.PressSingle:
		out = append(out, domain.Trigger{Kind: domain.TriggerPlayManual})
	case gesture.PressDoubleQuick:
		out = append(out, domain.Trigger{Kind: domain.TriggerPlaySemiAuto})
	case gesture.PressDoubleHeld:
		out = append(out, domain.Trigger{Kind: domain.TriggerPlayFullAuto})
	}

	switch l.stopBtn.Update(levels.Stop, now) {
	case gesture.PressSingle:
		out = append(out, domain.Trigger{Kind: domain.TriggerStop})
	case gesture.PressDoubleQuick, gesture.PressDoubleHeld:
		out = append(out, domain.Trigger{Kind: domain.TriggerStopReset})
	}

	if l.clearBtn.Update(levels.Clear, now) {
		out = append(out, domain.Trigger{Kind: domain.TriggerClear})
	}
	return out
}

func (l *Loop) apply(ctx context.Context, p domain.Pose) {
	if err := l.drv.Actuator.Apply(ctx, p); err != nil {
		l.driverError("apply", err)
	} else {
		l.driverOK()
	}
}

func (l *Loop) refreshIndicator(ctx context.Context, changed bool) {
	if !changed || l.drv.Indicator == nil {
		return
	}
	if err := l.drv.Indicator.Set(ctx, l.ctl.Mode().Color()); err != nil {
		l.driverError("indicator", err)
	}
}

func (l *Loop) driverError(op string, err error) {
	l.strikes++
	if l.strikes == 1 {
		l.log.Warn("driver error", "op", op, "error", err)
		return
	}
	l.log.Debug("driver error", "op", op, "error", err, "strikes", l.strikes)
}

func (l *Loop) driverOK() { l.strikes = 0 }

// logDiagnostics pulls the device's error register, when the driver
// has one, so the fault log carries the hardware's own account.
func (l *Loop) logDiagnostics(ctx context.Context) {
	d, ok := l.drv.Actuator.(ports.Diagnoser)
	if !ok {
		return
	}
	if err := d.Errors(ctx); err != nil {
		l.log.Error("driver diagnostics", "error", err)
	}
}

func (l *Loop) publishStatus() {
	if l.onStatus == nil {
		return
	}
	st := l.ctl.Status()
	if l.sentStatus && st == l.lastStatus {
		return
	}
	l.lastStatus = st
	l.sentStatus = true
	l.onStatus(st)
}
