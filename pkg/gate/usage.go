package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrymomot/meterkit/pkg/entitlements"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/meter"
	"github.com/dmitrymomot/meterkit/pkg/usage"
)

// UsageOverview returns the account's window for feature and period against
// its plan limit, for display. The quota feature always reports the monthly
// credits window. When no window exists yet, ResetAt is the next boundary.
func (g *Gate) UsageOverview(ctx context.Context, account meter.Key, feature string, period usage.Period) (usage.Usage, error) {
	if err := account.Validate(); err != nil {
		return usage.Usage{}, err
	}
	if err := validateFeature(feature); err != nil {
		return usage.Usage{}, err
	}

	ent, err := g.entitlements(ctx, account)
	if err != nil {
		return usage.Usage{}, err
	}

	period, limit := g.limitFor(ent, feature, period)
	now := g.now()

	u, err := g.windows.Get(ctx, usage.Key(feature, account, period, now), limit)
	if err != nil {
		return usage.Usage{}, err
	}
	if u.ResetAt.IsZero() {
		u.ResetAt = period.Next(now)
	}
	return u, nil
}

// TrackRequest counts one metered request of feature against the daily burst
// cap and the monthly allowance. A request over either limit is not counted.
// It returns the daily window after the increment.
//
// The monthly allowance is checked by a read before the daily increment, so
// concurrent requests can overshoot it slightly.
func (g *Gate) TrackRequest(ctx context.Context, account meter.Key, feature string) (usage.Usage, error) {
	if err := account.Validate(); err != nil {
		return usage.Usage{}, err
	}
	if err := validateFeature(feature); err != nil {
		return usage.Usage{}, err
	}
	if feature == g.quotaFeature {
		return usage.Usage{}, fmt.Errorf("%w: %q is reserved for credits quota", ErrInvalidFeature, feature)
	}

	ent, err := g.entitlements(ctx, account)
	if err != nil {
		return usage.Usage{}, err
	}

	now := g.now()
	monthlyKey := usage.Key(feature, account, usage.Monthly, now)

	if ent.MonthlyAllowance != entitlements.Unlimited {
		m, err := g.windows.Get(ctx, monthlyKey, ent.MonthlyAllowance)
		if err != nil {
			return usage.Usage{}, err
		}
		if m.Used >= ent.MonthlyAllowance {
			g.metrics.ChargeRejected("monthly_allowance")
			return usage.Usage{}, fmt.Errorf("%w: %d of %d", ErrMonthlyAllowanceUsed, m.Used, ent.MonthlyAllowance)
		}
	}

	daily, err := g.windows.IncrementWithin(ctx,
		usage.Key(feature, account, usage.Daily, now), 1, ent.DailyBurstCap, usage.Daily.Remaining(now))
	if errors.Is(err, usage.ErrLimitExceeded) {
		g.metrics.ChargeRejected("daily_burst_cap")
		return usage.Usage{}, fmt.Errorf("%w: cap %d", ErrDailyCapReached, ent.DailyBurstCap)
	}
	if err != nil {
		return usage.Usage{}, err
	}

	if _, err := g.windows.Increment(ctx, monthlyKey, 1, usage.Monthly.Remaining(now)); err != nil {
		g.logger.ErrorContext(ctx, "failed to count monthly request",
			logger.Account(account),
			logger.Error(err),
		)
		return usage.Usage{}, err
	}

	return daily.Usage(ent.DailyBurstCap), nil
}

func (g *Gate) limitFor(ent entitlements.PlanEntitlements, feature string, period usage.Period) (usage.Period, int64) {
	switch {
	case feature == g.quotaFeature:
		return usage.Monthly, ent.MonthlyCreditsTenths
	case period == usage.Daily:
		return usage.Daily, ent.DailyBurstCap
	default:
		return usage.Monthly, ent.MonthlyAllowance
	}
}
