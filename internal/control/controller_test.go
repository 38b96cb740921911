package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buzzauk/sixarm/internal/motion"
	"github.com/buzzauk/sixarm/internal/store"
	"github.com/buzzauk/sixarm/pkg/adapters/memory"
	"github.com/buzzauk/sixarm/pkg/domain"
	"github.com/buzzauk/sixarm/pkg/ports"
)

type harness struct {
	ctl   *Controller
	play  *Playback
	store *store.Store
	ms    int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessOn(t, memory.NewBlob())
}

func newHarnessOn(t *testing.T, blob ports.Blob) *harness {
	t.Helper()
	rng := domain.DefaultPulseRange()
	st, err := store.Open(context.Background(), blob, rng, nil)
	require.NoError(t, err)
	play := NewPlayback(st, time.Second, motion.DefaultDeadzone+2)
	sm := motion.NewSmoother(rng, motion.DefaultDeadzone)
	ctl := New(st, play, sm, rng, nil, nil)
	return &harness{ctl: ctl, play: play, store: st}
}

func (h *harness) do(t *testing.T, kind domain.TriggerKind) string {
	t.Helper()
	msg, err := h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: kind}, at(h.ms))
	require.NoError(t, err)
	return msg
}

// tick advances the controller n control ticks of 15ms.
func (h *harness) tick(n int) {
	for i := 0; i < n; i++ {
		h.ms += 15
		h.ctl.Tick(context.Background(), at(h.ms))
	}
}

// tickUntilTarget ticks until the controller's target equals want.
func (h *harness) tickUntilTarget(t *testing.T, want domain.Pose) {
	t.Helper()
	for i := 0; i < 400; i++ {
		if h.ctl.Target() == want {
			return
		}
		h.tick(1)
	}
	t.Fatalf("target never became %v (is %v)", want, h.ctl.Target())
}

func (h *harness) seed(t *testing.T, steps ...domain.Pose) {
	t.Helper()
	for _, p := range steps {
		_, err := h.store.Append(context.Background(), p)
		require.NoError(t, err)
	}
}

func TestBootState(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, domain.ModeIdle, h.ctl.Mode())
	assert.Equal(t, domain.Mid(domain.DefaultPulseRange()), h.ctl.Current())
	assert.Equal(t, h.ctl.Current(), h.ctl.Target())
}

func TestRecordAppendsCurrentPose(t *testing.T) {
	h := newHarness(t)

	msg := h.do(t, domain.TriggerRecord)
	assert.Equal(t, "step 0 recorded", msg)

	got, err := h.store.Read(0)
	require.NoError(t, err)
	assert.Equal(t, h.ctl.Current(), got)
}

func TestRecordRejectedDuringFullAuto(t *testing.T) {
	h := newHarness(t)
	h.seed(t, uniform(1000))

	h.do(t, domain.TriggerPlayFullAuto)
	require.Equal(t, domain.ModePlaybackFullAuto, h.ctl.Mode())

	_, err := h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: domain.TriggerRecord}, at(h.ms))
	require.Error(t, err)

	var rej *domain.Reject
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, domain.TriggerRecord, rej.Trigger)
	assert.Equal(t, domain.ModePlaybackFullAuto, rej.Mode)
	assert.ErrorIs(t, err, domain.ErrModeConflict)
	assert.Equal(t, domain.ModePlaybackFullAuto, h.ctl.Mode(), "mode unchanged")
}

func TestPlayWithNoStepsRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: domain.TriggerPlayManual}, at(0))
	assert.ErrorIs(t, err, domain.ErrNoSteps)
	assert.Equal(t, domain.ModeIdle, h.ctl.Mode())
}

func TestRecordAtCapacityRejected(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < store.Capacity; i++ {
		h.seed(t, uniform(1000))
	}

	_, err := h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: domain.TriggerRecord}, at(0))
	assert.ErrorIs(t, err, domain.ErrStoreFull)
	assert.Equal(t, domain.ModeIdle, h.ctl.Mode())
}

func TestToggleModeCycle(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "Remote control", h.do(t, domain.TriggerToggleMode))
	assert.Equal(t, domain.ModeRemoteControl, h.ctl.Mode())

	pots := uniform(900)
	h.ctl.ObservePots(pots)
	assert.Equal(t, "Manual input", h.do(t, domain.TriggerToggleMode))
	assert.Equal(t, domain.ModeManualInput, h.ctl.Mode())
	assert.Equal(t, pots, h.ctl.Target(), "entering manual input adopts the sensors")

	assert.Equal(t, "Remote control", h.do(t, domain.TriggerToggleMode))
	assert.Equal(t, domain.ModeRemoteControl, h.ctl.Mode())
}

func TestToggleRejectedDuringPlayback(t *testing.T) {
	h := newHarness(t)
	h.seed(t, uniform(1000))
	h.do(t, domain.TriggerPlaySemiAuto)

	_, err := h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: domain.TriggerToggleMode}, at(h.ms))
	assert.ErrorIs(t, err, domain.ErrModeConflict)
}

func TestManualInputTracksPots(t *testing.T) {
	h := newHarness(t)
	h.do(t, domain.TriggerToggleMode)
	h.do(t, domain.TriggerToggleMode)
	require.Equal(t, domain.ModeManualInput, h.ctl.Mode())

	h.ctl.ObservePots(uniform(800))
	h.tick(1)
	assert.Equal(t, uniform(800), h.ctl.Target())

	h.ctl.ObservePots(uniform(2200))
	h.tick(1)
	assert.Equal(t, uniform(2200), h.ctl.Target())
}

func TestManualPlaybackReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	a, b := uniform(1400), uniform(1600)
	h.seed(t, a, b)

	msg := h.do(t, domain.TriggerPlayManual)
	assert.Equal(t, "Step playback started at step 0", msg)
	assert.Equal(t, domain.ModePlaybackManual, h.ctl.Mode())
	assert.Equal(t, a, h.ctl.Target())

	// 1500 -> 1400 converges well inside 400 ticks; the engine then
	// emits step-complete and the controller drops back to idle.
	for i := 0; i < 400 && h.ctl.Mode() != domain.ModeIdle; i++ {
		h.tick(1)
	}
	assert.Equal(t, domain.ModeIdle, h.ctl.Mode())
	assert.Equal(t, 1, h.play.Cursor(), "cursor points at the next step")

	// Re-trigger plays the next step.
	h.do(t, domain.TriggerPlayManual)
	assert.Equal(t, b, h.ctl.Target())
}

func TestFullAutoWrapsThroughAllSteps(t *testing.T) {
	h := newHarness(t)
	a, b, c := uniform(1000), uniform(1400), uniform(1800)
	h.seed(t, a, b, c)

	h.do(t, domain.TriggerPlayFullAuto)
	assert.Equal(t, a, h.ctl.Target())

	h.tickUntilTarget(t, b)
	assert.Equal(t, 1, h.play.Cursor())

	h.tickUntilTarget(t, c)
	assert.Equal(t, 2, h.play.Cursor())

	h.tickUntilTarget(t, a)
	assert.Equal(t, 0, h.play.Cursor(), "wraps exactly at the count boundary")
	assert.Equal(t, domain.ModePlaybackFullAuto, h.ctl.Mode(), "full auto keeps playing")
}

func TestSemiAutoStopsAfterLastStep(t *testing.T) {
	h := newHarness(t)
	a, b := uniform(1300), uniform(1700)
	h.seed(t, a, b)

	h.do(t, domain.TriggerPlaySemiAuto)
	h.tickUntilTarget(t, b)

	for i := 0; i < 400 && h.ctl.Mode() != domain.ModeIdle; i++ {
		h.tick(1)
	}
	assert.Equal(t, domain.ModeIdle, h.ctl.Mode())
	assert.Equal(t, 2, h.play.Cursor())
	assert.Equal(t, h.ctl.Current(), h.ctl.Target(), "finish freezes the target")
}

func TestJumpThenStop(t *testing.T) {
	h := newHarness(t)
	a, b, c := uniform(1000), uniform(1400), uniform(1800)
	h.seed(t, a, b, c)

	msg, err := h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: domain.TriggerJumpToStep, Index: 1}, at(0))
	require.NoError(t, err)
	assert.Equal(t, "moving to step 1", msg)
	assert.Equal(t, b, h.ctl.Target())
	assert.Equal(t, 2, h.play.Cursor())
	assert.Equal(t, domain.ModeIdle, h.ctl.Mode(), "jump does not change mode")

	h.do(t, domain.TriggerStop)
	assert.Equal(t, h.ctl.Current(), h.ctl.Target(), "stop cancels in-flight motion")
	assert.Equal(t, domain.ModeIdle, h.ctl.Mode())
}

func TestJumpOutOfRangeRejected(t *testing.T) {
	h := newHarness(t)
	h.seed(t, uniform(1000))

	_, err := h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: domain.TriggerJumpToStep, Index: 1}, at(0))
	assert.ErrorIs(t, err, domain.ErrOutOfRange)
}

func TestStopResetRewindsCursor(t *testing.T) {
	h := newHarness(t)
	h.seed(t, uniform(1000), uniform(1400))

	_, err := h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: domain.TriggerJumpToStep, Index: 1}, at(0))
	require.NoError(t, err)
	require.Equal(t, 2, h.play.Cursor())

	h.do(t, domain.TriggerStopReset)
	assert.Equal(t, 0, h.play.Cursor())
	assert.Equal(t, domain.ModeIdle, h.ctl.Mode())
}

func TestDeleteStepClampsCursor(t *testing.T) {
	h := newHarness(t)
	h.seed(t, uniform(1000), uniform(1400), uniform(1800))

	_, err := h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: domain.TriggerJumpToStep, Index: 1}, at(0))
	require.NoError(t, err)
	require.Equal(t, 2, h.play.Cursor())

	for i := 0; i < 2; i++ {
		_, err = h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: domain.TriggerDeleteStep, Index: 0}, at(0))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, h.store.Count())
	assert.Equal(t, 1, h.play.Cursor(), "cursor clamped to the shrunken bank")
}

func TestDeleteRejectedDuringPlayback(t *testing.T) {
	h := newHarness(t)
	h.seed(t, uniform(1000), uniform(1400))
	h.do(t, domain.TriggerPlayFullAuto)

	_, err := h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: domain.TriggerDeleteStep, Index: 0}, at(h.ms))
	assert.ErrorIs(t, err, domain.ErrModeConflict)
	assert.Equal(t, 2, h.store.Count())
}

func TestUpdateStepGuarded(t *testing.T) {
	h := newHarness(t)
	h.seed(t, uniform(1000))

	up := domain.Trigger{Kind: domain.TriggerUpdateStep, Index: 0, Pose: uniform(2000)}
	_, err := h.ctl.Dispatch(context.Background(), up, at(0))
	require.NoError(t, err)
	got, err := h.store.Read(0)
	require.NoError(t, err)
	assert.Equal(t, uniform(2000), got)

	h.do(t, domain.TriggerPlayFullAuto)
	_, err = h.ctl.Dispatch(context.Background(), up, at(h.ms))
	assert.ErrorIs(t, err, domain.ErrModeConflict)
}

func TestClearAlwaysExitsToIdle(t *testing.T) {
	h := newHarness(t)
	h.seed(t, uniform(1000), uniform(1400))
	h.do(t, domain.TriggerToggleMode)
	require.Equal(t, domain.ModeRemoteControl, h.ctl.Mode())

	msg := h.do(t, domain.TriggerClear)
	assert.Equal(t, "steps cleared", msg)
	assert.Equal(t, domain.ModeIdle, h.ctl.Mode())
	assert.Equal(t, 0, h.store.Count())
	assert.Equal(t, 0, h.play.Cursor())
}

func TestClearCommitFailureStillExitsToIdle(t *testing.T) {
	blob := &flakyBlob{Blob: memory.NewBlob()}
	h := newHarnessOn(t, blob)
	h.seed(t, uniform(1000))

	blob.fail = true
	_, err := h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: domain.TriggerClear}, at(0))
	assert.ErrorIs(t, err, domain.ErrCommitFailed)
	assert.Equal(t, domain.ModeIdle, h.ctl.Mode(), "clear exits to idle even on failure")
}

func TestRecordCommitFailureKeepsMode(t *testing.T) {
	blob := &flakyBlob{Blob: memory.NewBlob()}
	h := newHarnessOn(t, blob)

	blob.fail = true
	_, err := h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: domain.TriggerRecord}, at(0))
	assert.ErrorIs(t, err, domain.ErrCommitFailed)
	assert.Equal(t, domain.ModeIdle, h.ctl.Mode(), "storage errors never force a mode change")
	assert.Equal(t, 0, h.store.Count())
}

func TestFaultAbsorbsEverything(t *testing.T) {
	h := newHarness(t)
	h.seed(t, uniform(1000))

	_, err := h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: domain.TriggerJumpToStep, Index: 0}, at(0))
	require.NoError(t, err)
	require.NotEqual(t, h.ctl.Current(), h.ctl.Target())

	msg, err := h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: domain.TriggerFaultTransport}, at(0))
	require.NoError(t, err)
	assert.NotEmpty(t, msg)
	assert.Equal(t, domain.ModeFaultTransport, h.ctl.Mode())
	assert.Equal(t, h.ctl.Current(), h.ctl.Target(), "fault halts movement")

	for _, kind := range []domain.TriggerKind{
		domain.TriggerRecord,
		domain.TriggerPlayManual,
		domain.TriggerToggleMode,
		domain.TriggerStop,
		domain.TriggerClear,
		domain.TriggerStepComplete,
	} {
		_, err := h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: kind}, at(0))
		assert.ErrorIs(t, err, domain.ErrModeConflict, "kind %s", kind)
	}

	// Repeat delivery of the same fault is accepted, not a crash.
	_, err = h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: domain.TriggerFaultTransport}, at(0))
	assert.NoError(t, err)
	assert.Equal(t, domain.ModeFaultTransport, h.ctl.Mode())
}

func TestStepCompleteOnlyInManualPlayback(t *testing.T) {
	h := newHarness(t)

	_, err := h.ctl.Dispatch(context.Background(), domain.Trigger{Kind: domain.TriggerStepComplete}, at(0))
	assert.ErrorIs(t, err, domain.ErrModeConflict)
}

func TestStatusSnapshot(t *testing.T) {
	h := newHarness(t)
	h.seed(t, uniform(1000), uniform(1400))
	h.ctl.SetConnected(true)

	st := h.ctl.Status()
	assert.Equal(t, domain.ModeIdle, st.Mode)
	assert.Equal(t, "Idle", st.Label)
	assert.Equal(t, 2, st.StepCount)
	assert.Equal(t, 0, st.Cursor)
	assert.Equal(t, h.ctl.Current(), st.Current)
	assert.True(t, st.Connected)
}

type flakyBlob struct {
	*memory.Blob
	fail bool
}

func (f *flakyBlob) Commit(ctx context.Context) error {
	if f.fail {
		return errors.New("commit refused")
	}
	return f.Blob.Commit(ctx)
}
