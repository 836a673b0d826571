package kv

import (
	"bytes"
	"context"
	"sync"
	"time"
)

type entry struct {
	val       []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore implements Store and Swapper in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
	closed  bool

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often expired keys are purged.
// Set to 0 to disable automatic cleanup.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStore creates a new in-memory store with optional cleanup.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		entries:         make(map[string]entry),
		now:             time.Now,
		cleanupInterval: 5 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ms)
	}

	if ms.cleanupInterval > 0 {
		go ms.cleanup()
	}

	return ms
}

func (ms *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, Unavailable(ErrClosed)
	}

	e, ok := ms.entries[key]
	if !ok || e.expired(ms.now()) {
		return nil, nil
	}
	return bytes.Clone(e.val), nil
}

func (ms *MemoryStore) Put(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return Unavailable(ErrClosed)
	}

	ms.set(key, val, ttl)
	return nil
}

func (ms *MemoryStore) CompareAndSwap(ctx context.Context, key string, old, val []byte, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return false, Unavailable(ErrClosed)
	}

	e, ok := ms.entries[key]
	present := ok && !e.expired(ms.now())
	switch {
	case old == nil && present:
		return false, nil
	case old != nil && (!present || !bytes.Equal(e.val, old)):
		return false, nil
	}

	ms.set(key, val, ttl)
	return true, nil
}

// set must be called with the write lock held.
func (ms *MemoryStore) set(key string, val []byte, ttl time.Duration) {
	e := entry{val: bytes.Clone(val)}
	if ttl > 0 {
		e.expiresAt = ms.now().Add(ttl)
	}
	ms.entries[key] = e
}

// Len returns the number of unexpired keys.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	now := ms.now()
	n := 0
	for _, e := range ms.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

func (ms *MemoryStore) cleanup() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.removeExpired()
		case <-ms.stopCleanup:
			return
		}
	}
}

func (ms *MemoryStore) removeExpired() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	for key, e := range ms.entries {
		if e.expired(now) {
			delete(ms.entries, key)
		}
	}
}

// Close stops the cleanup goroutine and rejects further calls.
// Safe to call multiple times.
func (ms *MemoryStore) Close() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.closed = true
	select {
	case <-ms.stopCleanup:
		// Already closed
	default:
		close(ms.stopCleanup)
	}
}
