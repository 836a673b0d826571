package meter

import "fmt"

// TenthsPerCredit is the fixed-point scale of every amount in this module.
const TenthsPerCredit = 10

// Whole converts tenths to whole credits for display, flooring toward zero.
func Whole(tenths int64) int64 {
	return tenths / TenthsPerCredit
}

// FromWhole converts whole credits to tenths.
func FromWhole(credits int64) int64 {
	return credits * TenthsPerCredit
}

// ValidateAmount rejects negative amounts before they reach storage.
func ValidateAmount(tenths int64) error {
	if tenths < 0 {
		return fmt.Errorf("%w: amount must not be negative, got %d", ErrValidation, tenths)
	}
	return nil
}
