package meter

import "errors"

// Taxonomy errors. Component packages join these with their own sentinels.
var (
	// ErrInsufficientCredits is internal to the ledger and fallback controller.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrInsufficientQuota is terminal and user facing.
	ErrInsufficientQuota = errors.New("insufficient quota")
	// ErrServerError covers unreachable storage and exhausted write retries.
	ErrServerError = errors.New("server error")
	// ErrValidation covers malformed account keys and negative amounts.
	ErrValidation = errors.New("validation error")
)

// Error codes returned by Code.
const (
	CodeInsufficientCredits = "insufficient_credits"
	CodeInsufficientQuota   = "insufficient_quota"
	CodeServerError         = "server_error"
	CodeValidation          = "validation_error"
)

// Code maps err to its taxonomy code. Unclassified non-nil errors are
// reported as server errors; nil yields an empty string.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientQuota):
		return CodeInsufficientQuota
	case errors.Is(err, ErrInsufficientCredits):
		return CodeInsufficientCredits
	case errors.Is(err, ErrValidation):
		return CodeValidation
	default:
		return CodeServerError
	}
}
