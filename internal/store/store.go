// Package store persists the ordered sequence of recorded poses.
package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/buzzauk/sixarm/internal/logging"
	"github.com/buzzauk/sixarm/pkg/domain"
	"github.com/buzzauk/sixarm/pkg/ports"
)

// Capacity is the maximum number of stored steps.
const Capacity = 100

// Persisted layout: Capacity slots of 12 bytes (six little-endian
// channel values), then one byte holding the count of valid slots.
const (
	slotSize    = domain.NumChannels * 2
	countOffset = Capacity * slotSize
)

// Store keeps an ordered, capacity-bounded sequence of poses mirrored
// between memory and a persisted byte range.
//
// Every mutation writes through to the Blob and then commits. When a
// commit fails only the in-memory count rolls back: payload bytes
// already written (an appended slot, shifted slots after a delete)
// stay written, in memory and maybe in storage, until the next
// successful mutation overwrites them. A failed clear keeps the
// in-memory slots even though the storage bytes may already be
// zeroed.
//
// A Store is owned by the control loop and is not safe for concurrent
// use.
type Store struct {
	blob  ports.Blob
	rng   domain.PulseRange
	log   *slog.Logger
	slots [Capacity]domain.Pose
	count int
}

// Open loads the persisted steps from blob. A stored count outside
// [0, Capacity] is treated as corrupt and durably reset to 0; if that
// reset cannot be committed, Open fails, since running on an
// unvalidated store is not safe.
func Open(ctx context.Context, blob ports.Blob, rng domain.PulseRange, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = logging.NewNop()
	}
	s := &Store{blob: blob, rng: rng, log: log}

	var cb [1]byte
	if _, err := blob.ReadAt(ctx, cb[:], countOffset); err != nil {
		return nil, fmt.Errorf("reading step count: %w", err)
	}
	count := int(cb[0])
	if count > Capacity {
		log.Warn("stored step count out of range, resetting", "count", count, "capacity", Capacity)
		if err := s.writeCount(ctx, 0); err != nil {
			return nil, fmt.Errorf("resetting corrupt step count: %w", err)
		}
		if err := blob.Commit(ctx); err != nil {
			return nil, fmt.Errorf("resetting corrupt step count: %w", err)
		}
		count = 0
	}
	s.count = count

	if count > 0 {
		buf := make([]byte, count*slotSize)
		if _, err := blob.ReadAt(ctx, buf, 0); err != nil {
			return nil, fmt.Errorf("reading steps: %w", err)
		}
		for i := 0; i < count; i++ {
			s.slots[i] = decodeSlot(buf[i*slotSize:])
		}
	}
	return s, nil
}

// Count returns the number of stored steps.
func (s *Store) Count() int { return s.count }

// Read returns the pose at index.
func (s *Store) Read(index int) (domain.Pose, error) {
	if index < 0 || index >= s.count {
		return domain.Pose{}, domain.ErrOutOfRange
	}
	return s.slots[index], nil
}

// All returns a copy of the stored steps in order.
func (s *Store) All() []domain.Pose {
	out := make([]domain.Pose, s.count)
	copy(out, s.slots[:s.count])
	return out
}

// Append stores p, clamped to the pulse range, in the next free slot
// and returns that slot's index.
func (s *Store) Append(ctx context.Context, p domain.Pose) (int, error) {
	if s.count >= Capacity {
		return 0, domain.ErrStoreFull
	}
	p = p.Clamp(s.rng)
	idx := s.count
	s.slots[idx] = p
	if err := s.writeSlot(ctx, idx, p); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCommitFailed, err)
	}
	s.count = idx + 1
	if err := s.seal(ctx, idx); err != nil {
		return 0, err
	}
	return idx, nil
}

// Update replaces the pose at index with p, clamped to the pulse
// range.
func (s *Store) Update(ctx context.Context, index int, p domain.Pose) error {
	if index < 0 || index >= s.count {
		return domain.ErrOutOfRange
	}
	p = p.Clamp(s.rng)
	s.slots[index] = p
	if err := s.writeSlot(ctx, index, p); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCommitFailed, err)
	}
	return s.seal(ctx, s.count)
}

// Delete removes the pose at index; every later slot shifts down one.
func (s *Store) Delete(ctx context.Context, index int) error {
	if index < 0 || index >= s.count {
		return domain.ErrOutOfRange
	}
	for i := index; i < s.count-1; i++ {
		s.slots[i] = s.slots[i+1]
		if err := s.writeSlot(ctx, i, s.slots[i]); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrCommitFailed, err)
		}
	}
	prev := s.count
	s.count--
	return s.seal(ctx, prev)
}

// Clear removes every step and zeroes the payload bytes. The
// in-memory slots are wiped only once the commit lands, so a failed
// clear leaves the bank readable at its rolled-back count.
func (s *Store) Clear(ctx context.Context) error {
	zero := make([]byte, countOffset)
	if _, err := s.blob.WriteAt(ctx, zero, 0); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCommitFailed, err)
	}
	prev := s.count
	s.count = 0
	if err := s.seal(ctx, prev); err != nil {
		return err
	}
	s.slots = [Capacity]domain.Pose{}
	return nil
}

// seal writes the count byte and commits. On failure the in-memory
// count rolls back to prev and the error wraps ErrCommitFailed.
func (s *Store) seal(ctx context.Context, prev int) error {
	err := s.writeCount(ctx, s.count)
	if err == nil {
		err = s.blob.Commit(ctx)
	}
	if err != nil {
		s.log.Warn("step store commit failed, rolling back count", "error", err, "count", prev)
		s.count = prev
		return fmt.Errorf("%w: %v", domain.ErrCommitFailed, err)
	}
	return nil
}

func (s *Store) writeSlot(ctx context.Context, i int, p domain.Pose) error {
	_, err := s.blob.WriteAt(ctx, encodeSlot(p), int64(i*slotSize))
	return err
}

func (s *Store) writeCount(ctx context.Context, n int) error {
	_, err := s.blob.WriteAt(ctx, []byte{byte(n)}, countOffset)
	return err
}

func encodeSlot(p domain.Pose) []byte {
	b := make([]byte, slotSize)
	for i, v := range p {
		binary.LittleEndian.PutUint16(b[i*2:], v)
	}
	return b
}

func decodeSlot(b []byte) domain.Pose {
	var p domain.Pose
	for i := range p {
		p[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return p
}
