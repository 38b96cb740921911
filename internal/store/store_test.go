package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buzzauk/sixarm/internal/store"
	"github.com/buzzauk/sixarm/pkg/adapters/memory"
	"github.com/buzzauk/sixarm/pkg/domain"
)

// countOffset mirrors the persisted layout: 100 slots of 12 bytes,
// then the count byte.
const countOffset = 1200

// flakyBlob forwards to a memory blob but refuses commits on demand.
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

func step(v uint16) domain.Pose {
	var p domain.Pose
	for i := range p {
		p[i] = v
	}
	return p
}

func openTestStore(t *testing.T) (*store.Store, *memory.Blob) {
	t.Helper()
	blob := memory.NewBlob()
	s, err := store.Open(context.Background(), blob, domain.DefaultPulseRange(), nil)
	require.NoError(t, err)
	return s, blob
}

func TestOpenEmpty(t *testing.T) {
	s, _ := openTestStore(t)
	assert.Equal(t, 0, s.Count())
	assert.Empty(t, s.All())
}

func TestAppendReadRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	// One channel below and one above the pulse range.
	in := domain.Pose{500, 9999, 1500, 1600, 1700, 1800}
	idx, err := s.Append(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 1, s.Count())

	got, err := s.Read(idx)
	require.NoError(t, err)
	assert.Equal(t, domain.Pose{600, 2400, 1500, 1600, 1700, 1800}, got)
}

func TestAppendPersistsLittleEndian(t *testing.T) {
	s, blob := openTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, step(1500))
	require.NoError(t, err)

	raw := make([]byte, 2)
	_, err = blob.ReadAt(ctx, raw, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDC, 0x05}, raw, "1500 is 0x05DC, stored low byte first")

	count := make([]byte, 1)
	_, err = blob.ReadAt(ctx, count, countOffset)
	require.NoError(t, err)
	assert.Equal(t, byte(1), count[0])
}

func TestAppendAtCapacity(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < store.Capacity; i++ {
		_, err := s.Append(ctx, step(1000))
		require.NoError(t, err)
	}
	require.Equal(t, store.Capacity, s.Count())

	_, err := s.Append(ctx, step(1000))
	assert.ErrorIs(t, err, domain.ErrStoreFull)
	assert.Equal(t, store.Capacity, s.Count())
}

func TestDeleteShiftsLaterSteps(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	a, b, c, d := step(1000), step(1100), step(1200), step(1300)
	for _, p := range []domain.Pose{a, b, c, d} {
		_, err := s.Append(ctx, p)
		require.NoError(t, err)
	}

	require.NoError(t, s.Delete(ctx, 1))
	assert.Equal(t, 3, s.Count())

	for i, want := range []domain.Pose{a, c, d} {
		got, err := s.Read(i)
		require.NoError(t, err)
		assert.Equal(t, want, got, "slot %d", i)
	}
	_, err := s.Read(3)
	assert.ErrorIs(t, err, domain.ErrOutOfRange)
}

func TestUpdateReplaces(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, step(1000))
	require.NoError(t, err)
	_, err = s.Append(ctx, step(1100))
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, 1, step(2000)))

	got, err := s.Read(1)
	require.NoError(t, err)
	assert.Equal(t, step(2000), got)
	assert.Equal(t, 2, s.Count())
}

func TestIndexBounds(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, step(1000))
	require.NoError(t, err)

	_, err = s.Read(-1)
	assert.ErrorIs(t, err, domain.ErrOutOfRange)
	_, err = s.Read(1)
	assert.ErrorIs(t, err, domain.ErrOutOfRange)
	assert.ErrorIs(t, s.Update(ctx, 1, step(1000)), domain.ErrOutOfRange)
	assert.ErrorIs(t, s.Delete(ctx, 1), domain.ErrOutOfRange)
}

func TestClearZeroesPayload(t *testing.T) {
	s, blob := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, step(1500))
		require.NoError(t, err)
	}

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Count())

	raw := make([]byte, countOffset+1)
	_, err := blob.ReadAt(ctx, raw, 0)
	require.NoError(t, err)
	for i, b := range raw {
		require.Zero(t, b, "byte %d", i)
	}
}

func TestClearCommitFailureKeepsSteps(t *testing.T) {
	ctx := context.Background()
	blob := &flakyBlob{Blob: memory.NewBlob()}
	s, err := store.Open(ctx, blob, domain.DefaultPulseRange(), nil)
	require.NoError(t, err)

	a, b := step(1000), step(1100)
	_, err = s.Append(ctx, a)
	require.NoError(t, err)
	_, err = s.Append(ctx, b)
	require.NoError(t, err)

	blob.fail = true
	assert.ErrorIs(t, s.Clear(ctx), domain.ErrCommitFailed)

	// The rolled-back count still addresses the original poses, not
	// zeroed slots.
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, []domain.Pose{a, b}, s.All())
}

func TestReopenRestoresSteps(t *testing.T) {
	s, blob := openTestStore(t)
	ctx := context.Background()

	a, b := step(700), step(2300)
	_, err := s.Append(ctx, a)
	require.NoError(t, err)
	_, err = s.Append(ctx, b)
	require.NoError(t, err)

	reopened, err := store.Open(ctx, blob, domain.DefaultPulseRange(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Count())
	assert.Equal(t, []domain.Pose{a, b}, reopened.All())
}

func TestOpenResetsCorruptCount(t *testing.T) {
	ctx := context.Background()
	blob := memory.NewBlob()
	_, err := blob.WriteAt(ctx, []byte{250}, countOffset)
	require.NoError(t, err)

	s, err := store.Open(ctx, blob, domain.DefaultPulseRange(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count())

	// The reset must be durable, not just in memory.
	raw := make([]byte, 1)
	_, err = blob.ReadAt(ctx, raw, countOffset)
	require.NoError(t, err)
	assert.Equal(t, byte(0), raw[0])
}

func TestOpenFailsWhenCorruptCountResetCannotCommit(t *testing.T) {
	ctx := context.Background()
	blob := &flakyBlob{Blob: memory.NewBlob()}
	_, err := blob.WriteAt(ctx, []byte{201}, countOffset)
	require.NoError(t, err)

	blob.fail = true
	_, err = store.Open(ctx, blob, domain.DefaultPulseRange(), nil)
	assert.Error(t, err)
}

func TestAppendCommitFailureRollsBackCount(t *testing.T) {
	ctx := context.Background()
	blob := &flakyBlob{Blob: memory.NewBlob()}
	s, err := store.Open(ctx, blob, domain.DefaultPulseRange(), nil)
	require.NoError(t, err)

	_, err = s.Append(ctx, step(1000))
	require.NoError(t, err)

	blob.fail = true
	_, err = s.Append(ctx, step(1100))
	assert.ErrorIs(t, err, domain.ErrCommitFailed)
	assert.Equal(t, 1, s.Count())
	_, err = s.Read(1)
	assert.ErrorIs(t, err, domain.ErrOutOfRange)
}

func TestDeleteCommitFailureLeavesShiftedPayload(t *testing.T) {
	ctx := context.Background()
	blob := &flakyBlob{Blob: memory.NewBlob()}
	s, err := store.Open(ctx, blob, domain.DefaultPulseRange(), nil)
	require.NoError(t, err)

	a, b := step(1000), step(1100)
	_, err = s.Append(ctx, a)
	require.NoError(t, err)
	_, err = s.Append(ctx, b)
	require.NoError(t, err)

	blob.fail = true
	err = s.Delete(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrCommitFailed)

	// The count rolls back but the shifted slots do not: slot 0 now
	// holds what was in slot 1, and the tail keeps a stale duplicate.
	assert.Equal(t, 2, s.Count())
	got0, err := s.Read(0)
	require.NoError(t, err)
	got1, err := s.Read(1)
	require.NoError(t, err)
	assert.Equal(t, b, got0)
	assert.Equal(t, b, got1)
}
