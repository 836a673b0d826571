// Package meterkit gates metered features with plan entitlements, rolling
// usage windows and a prepaid credit ledger kept in tenths of a credit.
//
// The packages are layered leaves first:
//
//   - pkg/meter: account keys, tenths helpers and the error taxonomy.
//   - pkg/kv: the key-value abstraction with versioned compare-and-swap updates.
//   - pkg/redis: the persistent kv store.
//   - pkg/entitlements: (owner class, plan) -> entitlements.
//   - pkg/usage: lazily resetting daily and monthly counters.
//   - pkg/charges: idempotent settlement markers.
//   - pkg/credits: expiring credit packs consumed soonest-expiry first.
//   - pkg/gate: charges credits when the balance covers the cost and falls back to the monthly quota.
//   - pkg/adjust: audited admin grants and deductions.
//   - pkg/audit: audit events with memory, Postgres and MongoDB storages.
//
// A charge on a fresh account with no credits:
//
//	store := kv.NewMemoryStore()
//	recorder, _ := charges.NewRecorder(store, 24*time.Hour)
//	ledger := credits.NewLedger(store, recorder)
//	g := gate.New(catalog, ledger, usage.NewStore(store), recorder)
//
//	out, err := g.AuthorizeAndCharge(ctx, meter.Key{Class: meter.ClassUser, ID: "42"}, 5, "req-1")
//	if errors.Is(err, meter.ErrInsufficientQuota) {
//		// neither credits nor quota can pay
//	}
//
// cmd/meterd wires these packages to Redis, Postgres or MongoDB and serves
// health, readiness and Prometheus endpoints.
package meterkit
