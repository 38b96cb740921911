package ports

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBlobContract runs a suite of tests to verify that a Blob
// implementation adheres to the defined interface contract. Call it
// from an adapter's test with a freshly created, empty Blob.
func RunBlobContract(t *testing.T, blob Blob) {
	ctx := context.Background()

	t.Run("Read Unwritten Is Zero", func(t *testing.T) {
		p := []byte{0xFF, 0xFF, 0xFF, 0xFF}
		n, err := blob.ReadAt(ctx, p, 100)
		require.NoError(t, err, "ReadAt on unwritten range should not return error")
		assert.Equal(t, len(p), n)
		assert.Equal(t, []byte{0, 0, 0, 0}, p, "unwritten range should read as zeros")
	})

	t.Run("Write and Read Back", func(t *testing.T) {
		data := []byte{0x58, 0x02, 0xDC, 0x05}
		n, err := blob.WriteAt(ctx, data, 12)
		require.NoError(t, err)
		require.Equal(t, len(data), n)

		got := make([]byte, len(data))
		n, err = blob.ReadAt(ctx, got, 12)
		require.NoError(t, err)
		assert.Equal(t, len(data), n)
		assert.Equal(t, data, got)
	})

	t.Run("Overlapping Write Wins", func(t *testing.T) {
		_, err := blob.WriteAt(ctx, bytes.Repeat([]byte{0xAA}, 8), 40)
		require.NoError(t, err)
		_, err = blob.WriteAt(ctx, []byte{0x01, 0x02}, 43)
		require.NoError(t, err)

		got := make([]byte, 8)
		_, err = blob.ReadAt(ctx, got, 40)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xAA, 0xAA, 0xAA, 0x01, 0x02, 0xAA, 0xAA, 0xAA}, got)
	})

	t.Run("Read Straddles Written Edge", func(t *testing.T) {
		_, err := blob.WriteAt(ctx, []byte{0x07}, 199)
		require.NoError(t, err)

		got := []byte{0xFF, 0xFF, 0xFF, 0xFF}
		n, err := blob.ReadAt(ctx, got, 198)
		require.NoError(t, err)
		assert.Equal(t, len(got), n)
		assert.Equal(t, []byte{0x00, 0x07, 0x00, 0x00}, got)
	})

	t.Run("Commit", func(t *testing.T) {
		_, err := blob.WriteAt(ctx, []byte{0x64}, 1200)
		require.NoError(t, err)
		require.NoError(t, blob.Commit(ctx), "Commit should not return error")

		got := make([]byte, 1)
		_, err = blob.ReadAt(ctx, got, 1200)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x64}, got, "committed write should survive")
	})
}
