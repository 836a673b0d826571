package credits

import (
	"fmt"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

var (
	// ErrInsufficientCredits is returned when the live balance cannot cover a
	// strict consumption. Nothing is written.
	ErrInsufficientCredits = fmt.Errorf("%w: balance too low", meter.ErrInsufficientCredits)

	ErrInvalidGrant       = fmt.Errorf("%w: invalid credit grant", meter.ErrValidation)
	ErrOperationIDMissing = fmt.Errorf("%w: operation id is required", meter.ErrValidation)
)
