package kv

import (
	"context"
	"time"
)

// Store is the minimal key-value contract. Get returns nil, nil for absent or
// expired keys. A ttl of zero means the key never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Swapper is implemented by stores that can atomically replace a single key.
// CompareAndSwap writes val only when the current value equals old; a nil old
// means the key must be absent. It reports whether the write happened.
type Swapper interface {
	CompareAndSwap(ctx context.Context, key string, old, val []byte, ttl time.Duration) (bool, error)
}
