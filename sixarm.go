package sixarm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/buzzauk/sixarm/internal/control"
	"github.com/buzzauk/sixarm/internal/logging"
	"github.com/buzzauk/sixarm/internal/metrics"
	"github.com/buzzauk/sixarm/internal/motion"
	"github.com/buzzauk/sixarm/internal/store"
	"github.com/buzzauk/sixarm/pkg/adapters/memory"
	"github.com/buzzauk/sixarm/pkg/adapters/sim"
	"github.com/buzzauk/sixarm/pkg/domain"
	"github.com/buzzauk/sixarm/pkg/ports"
)

// Version is stamped at build time; "dev" for local builds.
var Version = "dev"

// Drivers bundles the four hardware ports of one rig. Indicator may be
// nil when the rig has no light.
type Drivers struct {
	Actuator  ports.Actuator
	Sampler   ports.Sampler
	Buttons   ports.Buttons
	Indicator ports.Indicator
}

// Rig is the high-level entry point for the sixarm library. It owns
// the step store, the mode controller and the control loop, and
// exposes a goroutine-safe command surface on top of them.
type Rig struct {
	loop *control.Loop
	blob ports.Blob
	log  *slog.Logger
	met  *metrics.Metrics

	rng       domain.PulseRange
	tick      time.Duration
	deadzone  int
	stepDelay time.Duration
	debounce  time.Duration
	double    time.Duration
	hold      time.Duration
	drivers   Drivers

	mu       sync.Mutex
	watchers map[chan domain.Status]struct{}
}

// Option defines a functional option for configuring the Rig.
type Option func(*Rig)

// WithLogger sets a custom structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Rig) {
		r.log = log
	}
}

// WithRegisterer enables Prometheus metrics, registered on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Rig) {
		r.met = metrics.New(reg)
	}
}

// WithBlob sets the storage backend for the step bank, bypassing the
// default in-memory blob.
func WithBlob(blob ports.Blob) Option {
	return func(r *Rig) {
		r.blob = blob
	}
}

// WithDrivers sets the hardware ports, bypassing the default simulated
// rig.
func WithDrivers(d Drivers) Option {
	return func(r *Rig) {
		r.drivers = d
	}
}

// WithPulseRange overrides the servo pulse bounds.
func WithPulseRange(rng domain.PulseRange) Option {
	return func(r *Rig) {
		r.rng = rng
	}
}

// WithTick sets the control loop period.
func WithTick(d time.Duration) Option {
	return func(r *Rig) {
		r.tick = d
	}
}

// WithStepDelay sets the pause between automatic playback steps.
func WithStepDelay(d time.Duration) Option {
	return func(r *Rig) {
		r.stepDelay = d
	}
}

// WithDeadzone sets the settle tolerance in pulse units.
func WithDeadzone(n int) Option {
	return func(r *Rig) {
		r.deadzone = n
	}
}

// WithGestureTiming sets the debounce interval, the double-press
// window and the hold threshold for the panel buttons.
func WithGestureTiming(debounce, double, hold time.Duration) Option {
	return func(r *Rig) {
		r.debounce = debounce
		r.double = double
		r.hold = hold
	}
}

// New builds a rig. It opens and validates the step bank before
// returning; a storage backend that cannot be made consistent fails
// construction and the rig must not start.
func New(ctx context.Context, opts ...Option) (*Rig, error) {
	r := &Rig{
		rng:       domain.DefaultPulseRange(),
		deadzone:  motion.DefaultDeadzone,
		stepDelay: time.Second,
		watchers:  make(map[chan domain.Status]struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.log == nil {
		r.log = logging.NewNop()
	}
	if r.blob == nil {
		r.blob = memory.NewBlob()
	}
	if r.drivers.Actuator == nil && r.drivers.Sampler == nil && r.drivers.Buttons == nil {
		panel := sim.New(r.rng)
		r.drivers = Drivers{Actuator: panel, Sampler: panel, Buttons: panel, Indicator: panel}
	}

	st, err := store.Open(ctx, r.blob, r.rng, r.log)
	if err != nil {
		return nil, fmt.Errorf("failed to open step store: %w", err)
	}
	r.met.Steps(st.Count())

	play := control.NewPlayback(st, r.stepDelay, r.deadzone+2)
	ctl := control.New(st, play, motion.NewSmoother(r.rng, r.deadzone), r.rng, r.log, r.met)
	r.loop = control.NewLoop(control.LoopConfig{
		Controller:   ctl,
		Drivers:      control.Drivers(r.drivers),
		Tick:         r.tick,
		Debounce:     r.debounce,
		DoubleWindow: r.double,
		Hold:         r.hold,
		Logger:       r.log,
		Metrics:      r.met,
		OnStatus:     r.fanOut,
	})
	return r, nil
}

// Run drives the control loop until ctx is canceled.
func (r *Rig) Run(ctx context.Context) error {
	return r.loop.Run(ctx)
}

// Do submits a trigger to the control loop and returns the
// controller's verdict.
func (r *Rig) Do(ctx context.Context, tr domain.Trigger) (string, error) {
	return r.loop.Do(ctx, tr)
}

// Command maps a remote command name onto a trigger and submits it.
func (r *Rig) Command(ctx context.Context, name string, index *int) (string, error) {
	tr, err := domain.CommandTrigger(name, index)
	if err != nil {
		return "", err
	}
	return r.loop.Do(ctx, tr)
}

// UpdateStep overwrites one stored step. The pose is clamped into the
// pulse range before it is written.
func (r *Rig) UpdateStep(ctx context.Context, index int, p domain.Pose) (string, error) {
	return r.loop.Do(ctx, domain.Trigger{Kind: domain.TriggerUpdateStep, Index: index, Pose: p})
}

// Fault reports an external fault condition to the controller, for
// example when the remote transport dies underneath the rig.
func (r *Rig) Fault(ctx context.Context, kind domain.TriggerKind) {
	_, _ = r.loop.Do(ctx, domain.Trigger{Kind: kind})
}

// Status returns the current status snapshot.
func (r *Rig) Status(ctx context.Context) (domain.Status, error) {
	return r.loop.Status(ctx)
}

// Steps returns the stored steps in order.
func (r *Rig) Steps(ctx context.Context) ([]domain.Pose, error) {
	return r.loop.Steps(ctx)
}

// Watch returns a channel of status snapshots, one per change. The
// channel closes when ctx is canceled. Watchers that cannot keep up
// lose intermediate snapshots rather than stalling the loop.
func (r *Rig) Watch(ctx context.Context) <-chan domain.Status {
	ch := make(chan domain.Status, 8)
	r.mu.Lock()
	r.watchers[ch] = struct{}{}
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.watchers, ch)
		r.mu.Unlock()
		close(ch)
	}()
	return ch
}

// Close releases the storage backend. Call it after Run has returned.
func (r *Rig) Close() error {
	return r.blob.Close()
}

func (r *Rig) fanOut(st domain.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.watchers {
		select {
		case ch <- st:
		default:
		}
	}
}
