// Package adjust is the administrative credit adjustment API.
//
// It talks to the credit ledger directly, bypassing the quota fallback in
// package gate, and emits an audit event for every adjustment that changed
// the ledger.
//
//	svc := adjust.New(ledger, auditLog)
//
//	res, err := svc.GrantCredits(ctx, "ops@example.com", account, 100, &expiresAt)
//
//	// Strict by default: fails with meter.ErrInsufficientCredits when the
//	// balance is short.
//	res, err = svc.DeductCredits(ctx, "ops@example.com", account, 1000)
//
//	// Best effort: takes what is available and reports it in Actual.
//	res, err = svc.DeductCredits(ctx, "ops@example.com", account, 1000, adjust.NonStrict())
//	if res.Actual < res.Requested {
//	    // partial
//	}
//
// Audit failures are logged and do not fail an adjustment that already
// landed in the ledger.
package adjust
