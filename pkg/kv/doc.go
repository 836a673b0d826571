// Package kv is the key-value substrate the metering packages run on.
//
// The contract is deliberately small: Get and Put with an optional per-key
// expiry. Values are opaque bytes (JSON in practice). There are no multi-key
// transactions. Stores that can additionally compare-and-swap a single key
// implement Swapper, and Update takes advantage of it.
//
// # Versioned writes
//
// Every mutation in this module is read-modify-write. Update wraps the value in
// a small envelope carrying a monotonically increasing version and writes it
// back with compare-and-swap when the store supports it, retrying a bounded
// number of times when a concurrent writer got there first:
//
//	data, err := kv.Update(ctx, store, "credits:user:42", 0, func(cur []byte) ([]byte, error) {
//	    // decode cur (nil when absent), mutate, encode
//	    return next, nil
//	}, kv.WithRetries(3))
//
// Stores without Swapper fall back to last-write-wins; the gap between read and
// write is then a lost-update window.
//
// # Implementations
//
// MemoryStore is a process-local map for tests and single-instance
// deployments. The redis package provides the persistent implementation.
// Pick one at wiring time; nothing in this module detects the backend at
// runtime.
package kv
