// Package gate authorizes and charges priced actions.
//
// AuthorizeAndCharge is the single entry point for metered work. It prefers
// prepaid credits and falls back to the plan's monthly quota:
//
//	START -> CHECK_CREDITS -> CHARGE_CREDITS ----------------> SETTLED
//	                       \-> CHECK_QUOTA -> CHARGE_QUOTA ---> SETTLED
//	                                      \-> REJECT
//
// A balance below the cost is not combined with quota; the whole cost is
// charged to one source. The quota step is a single bounded increment, so a
// charge that would overrun the plan's monthly credits leaves the window
// untouched and fails with ErrInsufficientQuota.
//
// Callers pass a stable operation id derived from their own job id. A retry
// with the same id returns the recorded Outcome without charging again:
//
//	out, err := g.AuthorizeAndCharge(ctx, account, 50, job.ID)
//	switch {
//	case errors.Is(err, meter.ErrInsufficientQuota):
//	    // render upgrade prompt
//	case err != nil:
//	    return err
//	}
//
// UsageOverview renders window state for display and TrackRequest enforces the
// daily burst cap and the monthly request allowance.
package gate
