package kv

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

var (
	// ErrStoreUnavailable wraps any failure reported by the backing store.
	ErrStoreUnavailable = fmt.Errorf("%w: store unavailable", meter.ErrServerError)

	// ErrConflict is returned when compare-and-swap retries are exhausted.
	ErrConflict = fmt.Errorf("%w: concurrent update conflict", meter.ErrServerError)

	// ErrEmptyKey is returned for empty storage keys.
	ErrEmptyKey = errors.New("empty storage key")

	// ErrClosed is returned by a MemoryStore after Close.
	ErrClosed = errors.New("store closed")
)

// Unavailable joins err with ErrStoreUnavailable unless it already carries it.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return errors.Join(ErrStoreUnavailable, err)
}
