package gate

import (
	"context"

	"github.com/dmitrymomot/meterkit/pkg/credits"
	"github.com/dmitrymomot/meterkit/pkg/entitlements"
	"github.com/dmitrymomot/meterkit/pkg/meter"
)

// Source is what paid for a charge.
type Source string

const (
	SourceCredits Source = "credits"
	SourceQuota   Source = "quota"
)

// Outcome is the settled result of AuthorizeAndCharge.
type Outcome struct {
	Source        Source `json:"source"`
	CreditsTenths int64  `json:"credits_tenths"` // taken from credit packs, 0 for quota
	QuotaTenths   int64  `json:"quota_tenths"`   // added to the monthly window, 0 for credits
	Quota         bool   `json:"quota"`

	// RemainingTenths is the credit balance after a credits charge, or the
	// monthly quota left after a quota charge (-1 when unlimited).
	RemainingTenths int64 `json:"remaining_tenths"`

	Breakdown  []credits.PackConsumption `json:"breakdown,omitempty"`
	Idempotent bool                      `json:"-"` // replayed from an earlier settlement
}

// Credits returns the whole credits charged, floored.
func (o Outcome) Credits() int64 {
	return meter.Whole(o.CreditsTenths)
}

// Resolver maps an owner class and plan to entitlements.
type Resolver interface {
	Resolve(class meter.OwnerClass, plan string) (entitlements.PlanEntitlements, error)
}

// Ledger is the part of the credit ledger the controller uses.
type Ledger interface {
	Balance(ctx context.Context, account meter.Key) (int64, error)
	Consume(ctx context.Context, account meter.Key, amountTenths int64, operationID string) (credits.ConsumptionResult, error)
	Settled(ctx context.Context, account meter.Key, operationID string) (bool, error)
}

// Metrics receives charge outcomes.
type Metrics interface {
	ChargeSettled(source string, tenths int64)
	ChargeRejected(reason string)
	ChargeReplayed()
}

type noopMetrics struct{}

func (noopMetrics) ChargeSettled(string, int64) {}
func (noopMetrics) ChargeRejected(string)       {}
func (noopMetrics) ChargeReplayed()             {}

// state is a step of the charge flow.
type state string

const (
	stateStart         state = "START"
	stateCheckCredits  state = "CHECK_CREDITS"
	stateChargeCredits state = "CHARGE_CREDITS"
	stateCheckQuota    state = "CHECK_QUOTA"
	stateChargeQuota   state = "CHARGE_QUOTA"
	stateReject        state = "REJECT"
	stateSettled       state = "SETTLED"
)
