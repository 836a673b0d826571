// Package usage implements lazily resetting usage windows over a kv.Store.
//
// A window is a counter with a reset time. Reads past the reset time observe a
// zero count without any write; the next increment starts a fresh window.
// Keys are namespaced by feature, account and period bucket, so the daily key
// changes at the UTC day boundary and the monthly key at the calendar month
// boundary:
//
//	key := usage.Key("enhance", account, usage.Monthly, now)
//	win, err := store.IncrementWithin(ctx, key, cost, limit, usage.Monthly.Remaining(now))
//	if errors.Is(err, usage.ErrLimitExceeded) {
//	    // nothing was written
//	}
//
// Counts are integers; for credit quotas they are tenths of a credit.
// Corrupt stored values are treated as an empty window.
package usage
