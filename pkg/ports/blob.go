package ports

import "context"

// Blob is a persisted, random-access byte range. The step store lays
// its slots out inside one Blob and calls Commit after every mutation;
// a failed Commit means the bytes may or may not have reached durable
// storage, and the caller must reconcile its in-memory view.
//
// Reads past the written extent return zero bytes, not an error, so a
// fresh backend behaves like an erased one.
type Blob interface {
	// ReadAt fills p from the range starting at off. It returns the
	// number of bytes read, which is len(p) unless ctx is done or the
	// backend fails.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)

	// WriteAt stores p at off, extending the range if needed. The
	// write is not durable until Commit succeeds.
	WriteAt(ctx context.Context, p []byte, off int64) (int, error)

	// Commit makes all preceding writes durable.
	Commit(ctx context.Context) error

	// Close releases the backend. The Blob is unusable afterwards.
	Close() error
}
