package gate

import (
	"fmt"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

var (
	ErrInsufficientQuota    = fmt.Errorf("%w: monthly credits exhausted", meter.ErrInsufficientQuota)
	ErrDailyCapReached      = fmt.Errorf("%w: daily burst cap reached", meter.ErrInsufficientQuota)
	ErrMonthlyAllowanceUsed = fmt.Errorf("%w: monthly allowance used", meter.ErrInsufficientQuota)
	ErrOperationIDMissing   = fmt.Errorf("%w: operation id is required", meter.ErrValidation)
	ErrInvalidFeature       = fmt.Errorf("%w: invalid feature key", meter.ErrValidation)
)
