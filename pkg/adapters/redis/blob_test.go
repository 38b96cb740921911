package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buzzauk/sixarm/pkg/adapters/redis"
	"github.com/buzzauk/sixarm/pkg/ports"
)

func newTestBlob(t *testing.T, opts ...redis.Option) *redis.Blob {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return redis.NewFromClient(client, opts...)
}

func TestBlobContract(t *testing.T) {
	ports.RunBlobContract(t, newTestBlob(t))
}

func TestBlobKeyOption(t *testing.T) {
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	blob := redis.NewFromClient(client, redis.WithKey("rig-7:steps"))

	_, err = blob.WriteAt(ctx, []byte{0xAB}, 0)
	require.NoError(t, err)

	val, err := mr.Get("rig-7:steps")
	require.NoError(t, err)
	assert.Equal(t, "\xab", val)
}

func TestBlobCommitFailsWhenServerGone(t *testing.T) {
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	blob := redis.NewFromClient(client)

	require.NoError(t, blob.Commit(ctx))

	mr.Close()
	assert.Error(t, blob.Commit(ctx))
}
