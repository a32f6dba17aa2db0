package cache_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/directional-star/diggit/pkg/cache"
)

type corpus struct {
	Head    string
	Entries [][]string
}

func openStores(t *testing.T) map[string]cache.Store {
	t.Helper()

	bolt, err := cache.Open(cache.BackendBolt, filepath.Join(t.TempDir(), "nested", "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, bolt.Close()) })

	memory, err := cache.Open(cache.BackendMemory, "")
	require.NoError(t, err)

	return map[string]cache.Store{cache.BackendBolt: bolt, cache.BackendMemory: memory}
}

func TestStoreGetPut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for name, store := range openStores(t) {
		value, ok, err := store.Get(ctx, "missing")
		require.NoError(t, err, name)
		assert.False(t, ok, name)
		assert.Nil(t, value, name)

		payload := []byte("payload")
		require.NoError(t, store.Put(ctx, "k", payload), name)

		payload[0] = 'X'

		value, ok, err = store.Get(ctx, "k")
		require.NoError(t, err, name)
		assert.True(t, ok, name)
		assert.Equal(t, []byte("payload"), value, name)

		require.NoError(t, store.Put(ctx, "k", []byte("replaced")), name)

		value, _, err = store.Get(ctx, "k")
		require.NoError(t, err, name)
		assert.Equal(t, []byte("replaced"), value, name)
	}
}

func TestLoadSave(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for name, store := range openStores(t) {
		key := cache.ChangesetsKey("rails/rails")

		var got corpus

		ok, err := cache.Load(ctx, store, key, &got)
		require.NoError(t, err, name)
		assert.False(t, ok, name)

		want := corpus{Head: "abc", Entries: [][]string{{"a.rb", "b.rb"}, {"c.rb"}}}
		require.NoError(t, cache.Save(ctx, store, key, want), name)

		ok, err = cache.Load(ctx, store, key, &got)
		require.NoError(t, err, name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
}

func TestLoadCorruptValue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := cache.NewMemoryStore()

	require.NoError(t, store.Put(ctx, "k", []byte("garbage")))

	var got corpus

	_, err := cache.Load(ctx, store, "k", &got)
	require.Error(t, err)
}

func TestBoltStorePersistsAcrossOpen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	first, err := cache.NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, cache.Save(ctx, first, "key", []string{"x", "y"}))
	require.NoError(t, first.Close())

	second, err := cache.NewBoltStore(path)
	require.NoError(t, err)

	defer second.Close()

	var got []string

	ok, err := cache.Load(ctx, second, "key", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestBoltStoreCancelledContext(t *testing.T) {
	t.Parallel()

	store, err := cache.NewBoltStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)

	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, store.Put(ctx, "k", []byte("v")), context.Canceled)
}

func TestOpenUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := cache.Open("redis", "")
	require.ErrorIs(t, err, cache.ErrUnknownBackend)
}

func TestKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "rails/rails/changesets", cache.ChangesetsKey("rails/rails"))
	assert.Equal(t, "rails/rails/itemsets", cache.ItemsetsKey("rails/rails"))
}
