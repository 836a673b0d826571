package kv_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/kv"
	"github.com/dmitrymomot/meterkit/pkg/meter"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryStore_GetPut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing key returns nil", func(t *testing.T) {
		store := kv.NewMemoryStore(kv.WithCleanupInterval(0))
		defer store.Close()

		val, err := store.Get(ctx, "missing")
		assert.NoError(t, err)
		assert.Nil(t, val)
	})

	t.Run("stores a copy of the value", func(t *testing.T) {
		store := kv.NewMemoryStore(kv.WithCleanupInterval(0))
		defer store.Close()

		val := []byte("hello")
		require.NoError(t, store.Put(ctx, "k", val, 0))
		val[0] = 'j'

		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), got)
	})

	t.Run("expires after ttl", func(t *testing.T) {
		clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		store := kv.NewMemoryStore(kv.WithCleanupInterval(0), kv.WithClock(clock.Now))
		defer store.Close()

		require.NoError(t, store.Put(ctx, "k", []byte("v"), time.Minute))
		assert.Equal(t, 1, store.Len())

		clock.Advance(time.Minute)

		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("rejects empty key", func(t *testing.T) {
		store := kv.NewMemoryStore(kv.WithCleanupInterval(0))
		defer store.Close()

		assert.ErrorIs(t, store.Put(ctx, "", []byte("v"), 0), kv.ErrEmptyKey)
	})

	t.Run("closed store is unavailable", func(t *testing.T) {
		store := kv.NewMemoryStore(kv.WithCleanupInterval(0))
		store.Close()
		store.Close()

		_, err := store.Get(ctx, "k")
		assert.ErrorIs(t, err, kv.ErrStoreUnavailable)
		assert.ErrorIs(t, err, meter.ErrServerError)
	})
}

func TestMemoryStore_CompareAndSwap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kv.NewMemoryStore(kv.WithCleanupInterval(0))
	defer store.Close()

	ok, err := store.CompareAndSwap(ctx, "k", nil, []byte("a"), 0)
	require.NoError(t, err)
	assert.True(t, ok, "absent key accepts nil old")

	ok, err = store.CompareAndSwap(ctx, "k", nil, []byte("b"), 0)
	require.NoError(t, err)
	assert.False(t, ok, "present key rejects nil old")

	ok, err = store.CompareAndSwap(ctx, "k", []byte("x"), []byte("b"), 0)
	require.NoError(t, err)
	assert.False(t, ok, "mismatched old is rejected")

	ok, err = store.CompareAndSwap(ctx, "k", []byte("a"), []byte("b"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got)
}

func TestMemoryStore_CleanupRemovesExpired(t *testing.T) {
	t.Parallel()

	store := kv.NewMemoryStore(kv.WithCleanupInterval(10 * time.Millisecond))
	defer store.Close()

	require.NoError(t, store.Put(context.Background(), "short", []byte("v"), 5*time.Millisecond))

	assert.Eventually(t, func() bool {
		return store.Len() == 0
	}, time.Second, 10*time.Millisecond)
}
