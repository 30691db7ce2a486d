package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "discs/7/original-3.jpg", OriginalKey("discs", 7, 3, "jpg"))
	assert.Equal(t, "discs/7/cropped-3.jpg", CroppedKey("discs", 7, 3, "jpg"))
	assert.Equal(t, "discs/7/", DiscPrefix("discs", 7))
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	key := OriginalKey("discs", 1, 2, "jpg")
	require.NoError(t, store.Put(ctx, key, []byte("hello"), "image/jpeg"))

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.Error(t, err)
}

func TestLocalStoreDeletePrefix(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, OriginalKey("discs", 5, 1, "jpg"), []byte("a"), ""))
	require.NoError(t, store.Put(ctx, CroppedKey("discs", 5, 1, "jpg"), []byte("b"), ""))

	require.NoError(t, store.DeletePrefix(ctx, DiscPrefix("discs", 5)))

	_, err = store.Get(ctx, OriginalKey("discs", 5, 1, "jpg"))
	assert.Error(t, err)
}
