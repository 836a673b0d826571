// Package credits implements the prepaid credit pack ledger.
//
// Every account owns a collection of packs, each an independently expiring
// grant measured in tenths of a credit. The balance is derived on read: the
// sum of packs that have not expired. Consumption drains packs in ascending
// expiry order, with packs that never expire spent last, so that bonuses are
// not stranded.
//
// The pack collection is one versioned document per account, mutated through
// kv.Update. On stores that support compare-and-swap a concurrent writer
// forces a re-read instead of a lost update; see package kv.
//
//	ledger := credits.NewLedger(store, recorder)
//
//	pack, err := ledger.Grant(ctx, account, 100, &expiresAt)
//	res, err := ledger.Consume(ctx, account, 50, "job-123")
//	// res.Breakdown lists the packs that were drawn from.
//
// Consume is idempotent per operation id for as long as the charge recorder
// keeps its markers.
package credits
