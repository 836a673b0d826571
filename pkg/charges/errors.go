package charges

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

var (
	ErrTTLRequired        = errors.New("charges: settlement ttl must be positive")
	ErrInvalidOperationID = fmt.Errorf("%w: invalid operation id", meter.ErrValidation)
)
