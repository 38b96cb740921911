// Package file provides a Blob backed by a single file on disk. This
// is the default backend for production runs.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Blob is a random-access file. Reads past the end of the file return
// zeros so callers can treat it as a fixed-size range regardless of
// how much has actually been written.
type Blob struct {
	f *os.File
}

// Open opens or creates the file at path, creating parent directories
// as needed.
func Open(path string) (*Blob, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to ensure storage directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage file: %w", err)
	}
	return &Blob{f: f}, nil
}

// ReadAt fills p from offset off, zero-filling whatever lies beyond
// the current end of the file.
func (b *Blob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := b.f.ReadAt(p, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("failed to read storage file: %w", err)
	}
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

// WriteAt stores p at offset off, extending the file as needed.
func (b *Blob) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := b.f.WriteAt(p, off)
	if err != nil {
		return n, fmt.Errorf("failed to write storage file: %w", err)
	}
	return n, nil
}

// Commit flushes buffered writes to stable storage.
func (b *Blob) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync storage file: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (b *Blob) Close() error {
	return b.f.Close()
}
