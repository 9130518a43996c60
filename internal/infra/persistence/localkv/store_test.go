package localkv

import (
	"context"
	"testing"

	"beacon/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

func TestBlobStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewWithBucket(memblob.OpenBucket(nil))

	require.NoError(t, store.Set(ctx, "outbox/sos", []byte(`[{"a":1}]`)))

	got, err := store.Get(ctx, "outbox/sos")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[{"a":1}]`), got)

	// Overwrite replaces the previous value.
	require.NoError(t, store.Set(ctx, "outbox/sos", []byte(`[]`)))
	got, err = store.Get(ctx, "outbox/sos")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), got)
}

func TestBlobStore_MissingKey(t *testing.T) {
	ctx := context.Background()
	store := NewWithBucket(memblob.OpenBucket(nil))

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrKeyNotFound)
}

func TestBlobStore_RemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewWithBucket(memblob.OpenBucket(nil))

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	require.NoError(t, store.Remove(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, repository.ErrKeyNotFound)

	// Removing a missing key is a no-op.
	assert.NoError(t, store.Remove(ctx, "k"))
}
