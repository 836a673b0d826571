package entitlements

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

var (
	ErrPlanNotFound             = fmt.Errorf("%w: plan not found", meter.ErrValidation)
	ErrInvalidPlanConfiguration = errors.New("entitlements: invalid plan configuration")
	ErrFailedToLoadPlans        = errors.New("entitlements: failed to load plans")
	ErrWatch                    = errors.New("entitlements: failed to watch plan file")
)
