// Package redis provides a Blob stored under a single Redis key, for
// installations where the step bank should outlive the controller
// host.
package redis

import (
	"context"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// Blob implements ports.Blob on top of one Redis string value using
// ranged reads and writes.
type Blob struct {
	client *backend.Client
	key    string
}

type Option func(*Blob)

// WithKey overrides the Redis key holding the step bank.
func WithKey(key string) Option {
	return func(b *Blob) {
		b.key = key
	}
}

// New creates a Blob talking to the given Redis server.
func New(address, password string, db int, opts ...Option) *Blob {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Blob from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Blob {
	blob := &Blob{
		client: client,
		key:    "sixarm:steps",
	}

	for _, opt := range opts {
		opt(blob)
	}

	return blob
}

// ReadAt fills p from offset off. GETRANGE answers short when the
// value is smaller than the requested range; the remainder reads as
// zeros.
func (b *Blob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	val, err := b.client.GetRange(ctx, b.key, off, off+int64(len(p))-1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read from redis: %w", err)
	}
	n := copy(p, val)
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

// WriteAt stores p at offset off. SETRANGE zero-pads the value when
// off lies past its current end.
func (b *Blob) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if err := b.client.SetRange(ctx, b.key, off, string(p)).Err(); err != nil {
		return 0, fmt.Errorf("failed to write to redis: %w", err)
	}
	return len(p), nil
}

// Commit verifies the server is still reachable. Redis applies writes
// as they land, so a successful round trip is as durable as this
// backend gets.
func (b *Blob) Commit(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to confirm redis write: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (b *Blob) Close() error {
	return b.client.Close()
}
