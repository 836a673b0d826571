package usage_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/kv"
	"github.com/dmitrymomot/meterkit/pkg/meter"
	"github.com/dmitrymomot/meterkit/pkg/usage"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newStore(t *testing.T) (*usage.Store, *kv.MemoryStore, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	mem := kv.NewMemoryStore(kv.WithCleanupInterval(0), kv.WithClock(c.Now))
	t.Cleanup(mem.Close)
	return usage.NewStore(mem, usage.WithClock(c.Now)), mem, c
}

func TestStore_Increment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("starts a fresh window", func(t *testing.T) {
		t.Parallel()
		store, _, c := newStore(t)

		w, err := store.Increment(ctx, "k", 5, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(5), w.Count)
		assert.Equal(t, c.Now().Add(time.Hour), w.ResetAt)
	})

	t.Run("adds to an open window and keeps reset time", func(t *testing.T) {
		t.Parallel()
		store, _, c := newStore(t)

		first, err := store.Increment(ctx, "k", 5, time.Hour)
		require.NoError(t, err)
		c.Advance(10 * time.Minute)

		w, err := store.Increment(ctx, "k", 3, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(8), w.Count)
		assert.Equal(t, first.ResetAt, w.ResetAt)
	})

	t.Run("expired window restarts", func(t *testing.T) {
		t.Parallel()
		store, _, c := newStore(t)

		_, err := store.Increment(ctx, "k", 5, time.Hour)
		require.NoError(t, err)

		c.Advance(time.Hour)

		u, err := store.Get(ctx, "k", 100)
		require.NoError(t, err)
		assert.Equal(t, int64(0), u.Used, "reads past reset see an empty window")

		w, err := store.Increment(ctx, "k", 2, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(2), w.Count)
		assert.Equal(t, c.Now().Add(time.Hour), w.ResetAt)
	})

	t.Run("rejects negative amounts and windows", func(t *testing.T) {
		t.Parallel()
		store, _, _ := newStore(t)

		_, err := store.Increment(ctx, "k", -1, time.Hour)
		assert.ErrorIs(t, err, meter.ErrValidation)

		_, err = store.Increment(ctx, "k", 1, 0)
		assert.ErrorIs(t, err, usage.ErrInvalidWindow)
	})
}

func TestStore_IncrementWithin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("within limit", func(t *testing.T) {
		t.Parallel()
		store, _, _ := newStore(t)

		w, err := store.IncrementWithin(ctx, "k", 50, 1000, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(50), w.Count)
	})

	t.Run("over limit leaves count unchanged", func(t *testing.T) {
		t.Parallel()
		store, _, _ := newStore(t)

		_, err := store.Increment(ctx, "k", 990, time.Hour)
		require.NoError(t, err)

		_, err = store.IncrementWithin(ctx, "k", 50, 1000, time.Hour)
		assert.ErrorIs(t, err, usage.ErrLimitExceeded)
		assert.ErrorIs(t, err, meter.ErrInsufficientQuota)

		u, err := store.Get(ctx, "k", 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(990), u.Used)
		assert.Equal(t, int64(10), u.Remaining)
	})

	t.Run("exactly at limit is allowed", func(t *testing.T) {
		t.Parallel()
		store, _, _ := newStore(t)

		_, err := store.IncrementWithin(ctx, "k", 1000, 1000, time.Hour)
		require.NoError(t, err)

		u, err := store.Get(ctx, "k", 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(0), u.Remaining)
	})

	t.Run("unlimited", func(t *testing.T) {
		t.Parallel()
		store, _, _ := newStore(t)

		_, err := store.IncrementWithin(ctx, "k", 1_000_000, usage.Unlimited, time.Hour)
		require.NoError(t, err)

		u, err := store.Get(ctx, "k", usage.Unlimited)
		require.NoError(t, err)
		assert.Equal(t, usage.Unlimited, u.Remaining)
	})
}

func TestStore_Get(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing window", func(t *testing.T) {
		t.Parallel()
		store, _, _ := newStore(t)

		u, err := store.Get(ctx, "k", 10)
		require.NoError(t, err)
		assert.Equal(t, usage.Usage{Used: 0, Limit: 10, Remaining: 10}, u)
	})

	t.Run("corrupt value reads as empty", func(t *testing.T) {
		t.Parallel()
		store, mem, _ := newStore(t)

		require.NoError(t, mem.Put(ctx, "k", []byte("{garbage"), 0))

		u, err := store.Get(ctx, "k", 10)
		require.NoError(t, err)
		assert.Equal(t, int64(0), u.Used)

		w, err := store.Increment(ctx, "k", 1, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, int64(1), w.Count)
	})
}

func TestPeriod(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 12, 31, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "2026-12-31", usage.Daily.Bucket(now))
	assert.Equal(t, "2026-12", usage.Monthly.Bucket(now))
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), usage.Daily.Next(now))
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), usage.Monthly.Next(now))
	assert.Equal(t, 30*time.Minute, usage.Daily.Remaining(now))

	account := meter.Key{Class: meter.ClassGuest, ID: "abc"}
	assert.Equal(t, "usage:enhance:guest:abc:monthly:2026-12", usage.Key("enhance", account, usage.Monthly, now))
	assert.NotEqual(t,
		usage.Key("enhance", account, usage.Daily, now),
		usage.Key("enhance", account, usage.Daily, now.Add(time.Hour)),
		"daily key changes at the UTC day boundary",
	)
}
