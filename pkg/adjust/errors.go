package adjust

import (
	"fmt"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

var (
	ErrActorRequired  = fmt.Errorf("%w: actor is required", meter.ErrValidation)
	ErrAmountRequired = fmt.Errorf("%w: amount must be positive", meter.ErrValidation)
)
