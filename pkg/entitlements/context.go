package entitlements

import (
	"context"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

type planCtxKey struct{}

// SetPlanToContext stores the caller's plan id for downstream resolution.
func SetPlanToContext(ctx context.Context, plan string) context.Context {
	return context.WithValue(ctx, planCtxKey{}, plan)
}

// PlanFromContext retrieves the plan id from the context, if present.
func PlanFromContext(ctx context.Context) (string, bool) {
	plan, ok := ctx.Value(planCtxKey{}).(string)
	return plan, ok
}

// PlanResolver returns the plan id of an account.
type PlanResolver func(ctx context.Context, key meter.Key) (string, error)

// ContextPlanResolver reads the plan from the context. A missing plan yields
// an empty id, which resolves to the owner class default.
func ContextPlanResolver(ctx context.Context, _ meter.Key) (string, error) {
	plan, _ := PlanFromContext(ctx)
	return plan, nil
}
