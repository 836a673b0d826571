package audit

import "errors"

var (
	ErrStorageNotAvailable = errors.New("audit: storage is unavailable")
	ErrEventValidation     = errors.New("audit: event validation failed")
	ErrInvalidHasherKey    = errors.New("audit: hasher key must be 1 to 64 bytes")
)
