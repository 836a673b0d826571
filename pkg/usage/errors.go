package usage

import (
	"fmt"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

var (
	// ErrLimitExceeded is returned by IncrementWithin when the increment would
	// push the window over its limit.
	ErrLimitExceeded = fmt.Errorf("%w: usage limit exceeded", meter.ErrInsufficientQuota)

	// ErrInvalidWindow is returned for non-positive window lengths.
	ErrInvalidWindow = fmt.Errorf("%w: window length must be positive", meter.ErrValidation)
)
