package kv_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/kv"
	"github.com/dmitrymomot/meterkit/pkg/meter"
)

func incr(cur []byte) ([]byte, error) {
	n := 0
	if cur != nil {
		if err := json.Unmarshal(cur, &n); err != nil {
			n = 0
		}
	}
	return json.Marshal(n + 1)
}

// plainStore hides the Swapper implementation of the wrapped store.
type plainStore struct{ kv.Store }

// racingStore lets a rival writer land between Get and CompareAndSwap.
type racingStore struct {
	*kv.MemoryStore
	rivalWrites atomic.Int32
	rounds      int32
}

func (s *racingStore) CompareAndSwap(ctx context.Context, key string, old, val []byte, ttl time.Duration) (bool, error) {
	if n := s.rivalWrites.Add(1); n <= s.rounds {
		rival := fmt.Sprintf(`{"v":%d,"d":0}`, 100+n)
		if err := s.MemoryStore.Put(ctx, key, []byte(rival), ttl); err != nil {
			return false, err
		}
	}
	return s.MemoryStore.CompareAndSwap(ctx, key, old, val, ttl)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (brokenStore) Put(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("creates and bumps version", func(t *testing.T) {
		store := kv.NewMemoryStore(kv.WithCleanupInterval(0))
		defer store.Close()

		v, err := kv.Update(ctx, store, "counter", 0, incr)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v.Version)

		v, err = kv.Update(ctx, store, "counter", 0, incr)
		require.NoError(t, err)
		assert.Equal(t, int64(2), v.Version)
		assert.JSONEq(t, "2", string(v.Data))

		loaded, err := kv.Load(ctx, store, "counter")
		require.NoError(t, err)
		assert.Equal(t, int64(2), loaded.Version)
		assert.JSONEq(t, "2", string(loaded.Data))
	})

	t.Run("fn error aborts without writing", func(t *testing.T) {
		store := kv.NewMemoryStore(kv.WithCleanupInterval(0))
		defer store.Close()

		abort := errors.New("abort")
		_, err := kv.Update(ctx, store, "k", 0, func([]byte) ([]byte, error) { return nil, abort })
		assert.ErrorIs(t, err, abort)

		raw, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Nil(t, raw)
	})

	t.Run("corrupt value is treated as absent", func(t *testing.T) {
		store := kv.NewMemoryStore(kv.WithCleanupInterval(0))
		defer store.Close()

		require.NoError(t, store.Put(ctx, "k", []byte("not json"), 0))

		loaded, err := kv.Load(ctx, store, "k")
		require.NoError(t, err)
		assert.True(t, loaded.Corrupt)
		assert.Nil(t, loaded.Data)

		var corrupted bool
		v, err := kv.Update(ctx, store, "k", 0, incr, kv.WithCorruptHook(func(string) { corrupted = true }))
		require.NoError(t, err)
		assert.True(t, corrupted)
		assert.JSONEq(t, "1", string(v.Data))
	})

	t.Run("retries after lost swap", func(t *testing.T) {
		store := &racingStore{MemoryStore: kv.NewMemoryStore(kv.WithCleanupInterval(0)), rounds: 2}
		defer store.Close()

		var conflicts int
		v, err := kv.Update(ctx, store, "k", 0, incr, kv.WithConflictHook(func(string, int) { conflicts++ }))
		require.NoError(t, err)
		assert.Equal(t, 2, conflicts)
		assert.Equal(t, int64(103), v.Version)
		assert.JSONEq(t, "1", string(v.Data))
	})

	t.Run("gives up after retries", func(t *testing.T) {
		store := &racingStore{MemoryStore: kv.NewMemoryStore(kv.WithCleanupInterval(0)), rounds: 10}
		defer store.Close()

		_, err := kv.Update(ctx, store, "k", 0, incr, kv.WithRetries(1))
		assert.ErrorIs(t, err, kv.ErrConflict)
		assert.ErrorIs(t, err, meter.ErrServerError)
	})

	t.Run("falls back to put without swapper", func(t *testing.T) {
		mem := kv.NewMemoryStore(kv.WithCleanupInterval(0))
		defer mem.Close()

		store := plainStore{mem}
		v, err := kv.Update(ctx, store, "k", 0, incr)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v.Version)
	})

	t.Run("store failure is server error", func(t *testing.T) {
		_, err := kv.Update(ctx, brokenStore{}, "k", 0, incr)
		assert.ErrorIs(t, err, kv.ErrStoreUnavailable)
		assert.Equal(t, meter.CodeServerError, meter.Code(err))
	})
}

func TestUpdate_ConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping concurrency test in short mode")
	}
	t.Parallel()

	ctx := context.Background()
	store := kv.NewMemoryStore(kv.WithCleanupInterval(0))
	defer store.Close()

	const writers = 20
	var wg sync.WaitGroup
	var failed atomic.Int32
	wg.Add(writers)
	for range writers {
		go func() {
			defer wg.Done()
			if _, err := kv.Update(ctx, store, "counter", 0, incr, kv.WithRetries(writers)); err != nil {
				failed.Add(1)
			}
		}()
	}
	wg.Wait()

	loaded, err := kv.Load(ctx, store, "counter")
	require.NoError(t, err)
	n, err := strconv.Atoi(string(loaded.Data))
	require.NoError(t, err)
	assert.Equal(t, writers-int(failed.Load()), n)
	assert.Equal(t, int32(0), failed.Load())
}

func TestPutIfAbsent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kv.NewMemoryStore(kv.WithCleanupInterval(0))
	defer store.Close()

	ok, err := kv.PutIfAbsent(ctx, store, "k", []byte("first"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = kv.PutIfAbsent(ctx, store, "k", []byte("second"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}
