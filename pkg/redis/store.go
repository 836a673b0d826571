package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/meterkit/pkg/kv"
)

// casScript replaces KEYS[1] with ARGV[3] only when its current value matches.
// ARGV[1] is "1" when the key is expected to be absent, ARGV[2] is the
// expected value otherwise and ARGV[4] the expiry in milliseconds (0 = none).
var casScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if ARGV[1] == '1' then
	if cur then return 0 end
elseif (not cur) or cur ~= ARGV[2] then
	return 0
end
local ttl = tonumber(ARGV[4])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[3], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[3])
end
return 1
`)

// Store implements kv.Store and kv.Swapper on top of Redis.
type Store struct {
	db     redis.UniversalClient
	prefix string
}

var (
	_ kv.Store   = (*Store)(nil)
	_ kv.Swapper = (*Store)(nil)
)

// NewStore wraps a Redis client. Every key is prefixed with prefix.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{db: client, prefix: prefix}
}

// NewStoreWithConfig creates a Store using the key prefix from cfg.
func NewStoreWithConfig(client redis.UniversalClient, cfg Config) *Store {
	return NewStore(client, cfg.KeyPrefix)
}

// Get returns nil for missing values (redis.Nil becomes nil).
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, kv.ErrEmptyKey
	}
	val, err := s.db.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, kv.Unavailable(err)
	}
	return val, nil
}

// Put stores key-value with expiration. Zero duration means no expiration.
func (s *Store) Put(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if key == "" {
		return kv.ErrEmptyKey
	}
	if err := s.db.Set(ctx, s.prefix+key, val, ttl).Err(); err != nil {
		return kv.Unavailable(err)
	}
	return nil
}

// CompareAndSwap runs the swap as a single server-side script.
func (s *Store) CompareAndSwap(ctx context.Context, key string, old, val []byte, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, kv.ErrEmptyKey
	}

	expectAbsent := "0"
	if old == nil {
		expectAbsent = "1"
	}

	res, err := casScript.Run(ctx, s.db, []string{s.prefix + key},
		expectAbsent, old, val, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, kv.Unavailable(err)
	}

	switch res {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, ErrUnexpectedScriptResult
	}
}

// Conn returns the underlying Redis client for advanced operations.
func (s *Store) Conn() redis.UniversalClient {
	return s.db
}
