package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/kv"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/meter"
)

// Store reads and increments usage windows.
type Store struct {
	kv         kv.Store
	now        func() time.Time
	logger     *slog.Logger
	retries    int
	onConflict func(key string, attempt int)
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRetries sets the compare-and-swap retry budget for increments.
func WithRetries(n int) Option {
	return func(s *Store) { s.retries = n }
}

// WithConflictHook is called after every lost compare-and-swap.
func WithConflictHook(fn func(key string, attempt int)) Option {
	return func(s *Store) { s.onConflict = fn }
}

// NewStore creates a window store over store.
func NewStore(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:      store,
		now:     time.Now,
		logger:  slog.Default(),
		retries: kv.DefaultRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the usage of key against limit. An expired window reads as
// reset; storage is not touched.
func (s *Store) Get(ctx context.Context, key string, limit int64) (Usage, error) {
	v, err := kv.Load(ctx, s.kv, key)
	if err != nil {
		return Usage{}, err
	}
	if v.Corrupt {
		s.corrupt(ctx, key)
	}
	return s.current(v.Data).Usage(limit), nil
}

// Increment adds amount to the window at key. An expired or missing window
// is replaced by a fresh one ending window from now.
func (s *Store) Increment(ctx context.Context, key string, amount int64, window time.Duration) (Window, error) {
	return s.increment(ctx, key, amount, Unlimited, window)
}

// IncrementWithin is Increment that refuses, without writing, to push the
// count above limit.
func (s *Store) IncrementWithin(ctx context.Context, key string, amount, limit int64, window time.Duration) (Window, error) {
	return s.increment(ctx, key, amount, limit, window)
}

func (s *Store) increment(ctx context.Context, key string, amount, limit int64, window time.Duration) (Window, error) {
	if err := meter.ValidateAmount(amount); err != nil {
		return Window{}, err
	}
	if window <= 0 {
		return Window{}, ErrInvalidWindow
	}

	var written Window
	_, err := kv.Update(ctx, s.kv, key, window, func(cur []byte) ([]byte, error) {
		w := s.current(cur)
		if w.ResetAt.IsZero() {
			w.ResetAt = s.now().Add(window)
		}
		if limit != Unlimited && w.Count+amount > limit {
			return nil, fmt.Errorf("%w: %d + %d > %d", ErrLimitExceeded, w.Count, amount, limit)
		}
		w.Count += amount
		written = w
		return json.Marshal(w)
	},
		kv.WithRetries(s.retries),
		kv.WithConflictHook(s.onConflict),
		kv.WithCorruptHook(func(key string) { s.corrupt(ctx, key) }),
	)
	if err != nil {
		return Window{}, err
	}
	return written, nil
}

// current decodes a stored window, yielding a zero window when it is absent,
// unreadable or expired.
func (s *Store) current(data []byte) Window {
	if data == nil {
		return Window{}
	}
	var w Window
	if err := json.Unmarshal(data, &w); err != nil || w.Count < 0 {
		return Window{}
	}
	if w.Expired(s.now()) {
		return Window{}
	}
	return w
}

func (s *Store) corrupt(ctx context.Context, key string) {
	s.logger.WarnContext(ctx, "usage window unreadable, treating as empty", logger.Key(key))
}
