package entitlements

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

// Catalog resolves plan entitlements. It is safe for concurrent use; Reload
// swaps the configuration atomically.
type Catalog struct {
	src Source
	cfg atomic.Pointer[Config]
}

// NewCatalog loads and validates the configuration from src.
func NewCatalog(ctx context.Context, src Source) (*Catalog, error) {
	c := &Catalog{src: src}
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload loads the configuration from the source again. An invalid
// configuration is rejected and the current one stays in effect.
func (c *Catalog) Reload(ctx context.Context) error {
	cfg, err := c.src.Load(ctx)
	if err != nil {
		return errors.Join(ErrFailedToLoadPlans, err)
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	c.cfg.Store(&cfg)
	return nil
}

// Resolve returns the entitlements of plan for the owner class. An empty or
// unknown plan resolves to the class default.
func (c *Catalog) Resolve(class meter.OwnerClass, plan string) (PlanEntitlements, error) {
	cfg := c.cfg.Load()
	plans := cfg.Plans[class]
	if ent, ok := plans[plan]; ok && plan != "" {
		return ent, nil
	}
	if def, ok := cfg.Defaults[class]; ok {
		if ent, ok := plans[def]; ok {
			return ent, nil
		}
	}
	return PlanEntitlements{}, fmt.Errorf("%w: %s/%q", ErrPlanNotFound, class, plan)
}

func validateConfig(cfg Config) error {
	for class, plans := range cfg.Plans {
		if !class.Valid() {
			return fmt.Errorf("%w: unknown owner class %q", ErrInvalidPlanConfiguration, class)
		}
		for id, ent := range plans {
			if id == "" {
				return fmt.Errorf("%w: empty plan id for %s", ErrInvalidPlanConfiguration, class)
			}
			if err := ent.Validate(); err != nil {
				return fmt.Errorf("%s/%s: %w", class, id, err)
			}
		}
	}
	for class, def := range cfg.Defaults {
		if _, ok := cfg.Plans[class][def]; !ok {
			return fmt.Errorf("%w: default plan %q for %s is not defined", ErrInvalidPlanConfiguration, def, class)
		}
	}
	return nil
}
