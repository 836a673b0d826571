package audit_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/audit"
)

type countingStorage struct {
	*audit.MemoryStorage
	mu      sync.Mutex
	batches int
	err     error
}

func (s *countingStorage) StoreBatch(ctx context.Context, events []audit.Event) error {
	s.mu.Lock()
	s.batches++
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStorage.StoreBatch(ctx, events)
}

func (s *countingStorage) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

func event(i int) audit.Event {
	return audit.Event{
		ID:        fmt.Sprintf("evt-%d", i),
		EventType: "credits.adjusted",
		Actor:     "ops",
		Action:    "grant",
		CreatedAt: fixedNow,
	}
}

func TestAsyncWriter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("batches concurrent writes", func(t *testing.T) {
		t.Parallel()
		storage := &countingStorage{MemoryStorage: audit.NewMemoryStorage()}
		w, closeWriter := audit.NewAsyncWriter(storage, audit.AsyncOptions{
			BatchSize:    10,
			BatchTimeout: 50 * time.Millisecond,
		})

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, w.Store(ctx, event(i)))
			}()
		}
		wg.Wait()

		require.NoError(t, closeWriter(ctx))
		assert.Len(t, storage.Events(), 20)
		assert.Less(t, storage.batchCount(), 20)
	})

	t.Run("propagates storage errors", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		storage := &countingStorage{MemoryStorage: audit.NewMemoryStorage(), err: boom}
		w, closeWriter := audit.NewAsyncWriter(storage, audit.AsyncOptions{BatchTimeout: 10 * time.Millisecond})
		defer closeWriter(ctx)

		assert.ErrorIs(t, w.Store(ctx, event(1)), boom)
	})

	t.Run("rejects writes after close", func(t *testing.T) {
		t.Parallel()
		storage := &countingStorage{MemoryStorage: audit.NewMemoryStorage()}
		w, closeWriter := audit.NewAsyncWriter(storage, audit.AsyncOptions{})

		require.NoError(t, closeWriter(ctx))
		require.NoError(t, closeWriter(ctx))
		assert.ErrorIs(t, w.Store(ctx, event(1)), audit.ErrStorageNotAvailable)
	})

	t.Run("works behind a logger", func(t *testing.T) {
		t.Parallel()
		storage := &countingStorage{MemoryStorage: audit.NewMemoryStorage()}
		w, closeWriter := audit.NewAsyncWriter(storage, audit.AsyncOptions{BatchTimeout: 10 * time.Millisecond})

		log := audit.NewLogger(w)
		require.NoError(t, log.Log(ctx, "credits.adjusted", "grant", audit.WithActor("ops")))
		require.NoError(t, closeWriter(ctx))

		assert.Len(t, storage.Events(), 1)
	})
}
