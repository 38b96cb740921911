// Package memory provides an in-memory Blob, the default backend for
// tests and ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Blob is a growable in-memory byte range. Commit is a no-op since
// there is nothing more durable to reach.
type Blob struct {
	mu  sync.Mutex
	buf []byte
}

// NewBlob returns an empty Blob.
func NewBlob() *Blob {
	return &Blob{}
}

// ReadAt fills p from offset off. Bytes past the written extent read
// as zeros.
func (b *Blob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range p {
		p[i] = 0
	}
	if off < int64(len(b.buf)) {
		copy(p, b.buf[off:])
	}
	return len(p), nil
}

// WriteAt stores p at offset off, growing the range as needed.
func (b *Blob) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if need := off + int64(len(p)); need > int64(len(b.buf)) {
		grown := make([]byte, need)
		copy(grown, b.buf)
		b.buf = grown
	}
	copy(b.buf[off:], p)
	return len(p), nil
}

// Commit is a no-op.
func (b *Blob) Commit(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (b *Blob) Close() error { return nil }
