package metrics

import "errors"

var ErrRegistration = errors.New("metrics: collector registration failed")
