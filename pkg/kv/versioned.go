package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultRetries is the number of compare-and-swap retries Update performs
// after the first attempt.
const DefaultRetries = 3

// envelope is the stored shape of every versioned value.
type envelope struct {
	Version int64           `json:"v"`
	Data    json.RawMessage `json:"d"`
}

// Versioned is a decoded versioned value.
type Versioned struct {
	Data    []byte // nil when absent or unreadable
	Version int64
	Corrupt bool // the stored bytes could not be decoded and were treated as absent
}

func decode(raw []byte) Versioned {
	if raw == nil {
		return Versioned{}
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Data) == 0 {
		return Versioned{Corrupt: true}
	}
	return Versioned{Data: env.Data, Version: env.Version}
}

// Load reads a versioned value. Absent keys and undecodable values both yield
// empty Data; the latter sets Corrupt.
func Load(ctx context.Context, store Store, key string) (Versioned, error) {
	raw, err := store.Get(ctx, key)
	if err != nil {
		return Versioned{}, Unavailable(err)
	}
	return decode(raw), nil
}

// UpdateFunc receives the current data (nil when absent or corrupt) and
// returns the JSON to store. Returning an error aborts the update without
// writing.
type UpdateFunc func(current []byte) ([]byte, error)

type updateConfig struct {
	retries    int
	onConflict func(key string, attempt int)
	onCorrupt  func(key string)
}

// UpdateOption configures Update.
type UpdateOption func(*updateConfig)

// WithRetries sets the number of retries after a lost compare-and-swap.
func WithRetries(n int) UpdateOption {
	return func(c *updateConfig) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithConflictHook is called after every lost compare-and-swap.
func WithConflictHook(fn func(key string, attempt int)) UpdateOption {
	return func(c *updateConfig) {
		c.onConflict = fn
	}
}

// WithCorruptHook is called when the stored value could not be decoded.
func WithCorruptHook(fn func(key string)) UpdateOption {
	return func(c *updateConfig) {
		c.onCorrupt = fn
	}
}

// Update performs a versioned read-modify-write of key. With a Swapper store
// the write only lands if nobody else wrote in between; otherwise fn is
// re-run against the fresh value, up to the configured retries, after which
// ErrConflict is returned. Stores without Swapper get a plain Put.
func Update(ctx context.Context, store Store, key string, ttl time.Duration, fn UpdateFunc, opts ...UpdateOption) (Versioned, error) {
	cfg := updateConfig{retries: DefaultRetries}
	for _, opt := range opts {
		opt(&cfg)
	}

	swapper, canSwap := store.(Swapper)

	for attempt := 0; ; attempt++ {
		raw, err := store.Get(ctx, key)
		if err != nil {
			return Versioned{}, Unavailable(err)
		}

		cur := decode(raw)
		if cur.Corrupt && cfg.onCorrupt != nil {
			cfg.onCorrupt(key)
		}

		next, err := fn(cur.Data)
		if err != nil {
			return Versioned{}, err
		}

		written := Versioned{Data: next, Version: cur.Version + 1}
		b, err := json.Marshal(envelope{Version: written.Version, Data: next})
		if err != nil {
			return Versioned{}, fmt.Errorf("kv: encode %q: %w", key, err)
		}

		if !canSwap {
			if err := store.Put(ctx, key, b, ttl); err != nil {
				return Versioned{}, Unavailable(err)
			}
			return written, nil
		}

		ok, err := swapper.CompareAndSwap(ctx, key, raw, b, ttl)
		if err != nil {
			return Versioned{}, Unavailable(err)
		}
		if ok {
			return written, nil
		}

		if cfg.onConflict != nil {
			cfg.onConflict(key, attempt)
		}
		if attempt >= cfg.retries {
			return Versioned{}, fmt.Errorf("%w: key %q after %d attempts", ErrConflict, key, attempt+1)
		}
		if err := ctx.Err(); err != nil {
			return Versioned{}, err
		}
	}
}

// PutIfAbsent writes val only when key does not exist yet. Stores without
// Swapper degrade to a plain Put and always report true.
func PutIfAbsent(ctx context.Context, store Store, key string, val []byte, ttl time.Duration) (bool, error) {
	if swapper, ok := store.(Swapper); ok {
		written, err := swapper.CompareAndSwap(ctx, key, nil, val, ttl)
		if err != nil {
			return false, Unavailable(err)
		}
		return written, nil
	}
	if err := store.Put(ctx, key, val, ttl); err != nil {
		return false, Unavailable(err)
	}
	return true, nil
}
