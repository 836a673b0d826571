package entitlements

import (
	"fmt"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

// Unlimited disables a limit.
const Unlimited int64 = -1

// PlanEntitlements is what a plan grants. It is resolved per request and never
// persisted per account.
type PlanEntitlements struct {
	DailyBurstCap        int64 `yaml:"daily_burst_cap" json:"daily_burst_cap"`               // metered requests per UTC day
	MonthlyAllowance     int64 `yaml:"monthly_allowance" json:"monthly_allowance"`           // metered requests per calendar month
	MonthlyCreditsTenths int64 `yaml:"monthly_credits_tenths" json:"monthly_credits_tenths"` // quota spent when the account has no credits
	MaxUpscale           int   `yaml:"max_upscale" json:"max_upscale"`
	FaceEnhance          bool  `yaml:"face_enhance" json:"face_enhance"`
}

// Validate checks limits and the upscale factor.
func (p PlanEntitlements) Validate() error {
	for name, v := range map[string]int64{
		"daily_burst_cap":        p.DailyBurstCap,
		"monthly_allowance":      p.MonthlyAllowance,
		"monthly_credits_tenths": p.MonthlyCreditsTenths,
	} {
		if v < Unlimited {
			return fmt.Errorf("%w: %s must be >= -1, got %d", ErrInvalidPlanConfiguration, name, v)
		}
	}
	if p.MaxUpscale != 2 && p.MaxUpscale != 4 {
		return fmt.Errorf("%w: max_upscale must be 2 or 4, got %d", ErrInvalidPlanConfiguration, p.MaxUpscale)
	}
	return nil
}

// AllowsUpscale reports whether factor is within the plan's upscale limit.
func (p PlanEntitlements) AllowsUpscale(factor int) bool {
	return factor > 0 && factor <= p.MaxUpscale
}

// Plans maps plan ids to entitlements.
type Plans map[string]PlanEntitlements

// Config is the full entitlement configuration.
type Config struct {
	Defaults map[meter.OwnerClass]string `yaml:"defaults"`
	Plans    map[meter.OwnerClass]Plans  `yaml:"plans"`
}
