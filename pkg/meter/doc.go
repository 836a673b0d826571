// Package meter holds the vocabulary shared by the metering packages: account
// keys, fixed-point tenths helpers and the error taxonomy.
//
// All quantities are integer tenths of a credit. One whole credit is ten tenths,
// so fractional prices are representable without floating point:
//
//	cost := int64(15)        // 1.5 credits
//	meter.Whole(cost)        // 1, floor division for display
//
// An account key identifies the metered subject. Guests are identified by a
// cookie-derived id and are therefore a weaker identity than users:
//
//	key := meter.Key{Class: meter.ClassUser, ID: "42"}
//	if err := key.Validate(); err != nil {
//	    // errors.Is(err, meter.ErrValidation) == true
//	}
//
// # Errors
//
// Every package in this module joins its own sentinel errors with one of the
// taxonomy errors defined here, so callers can branch on the category:
//
//	switch meter.Code(err) {
//	case meter.CodeInsufficientQuota:
//	    // render upgrade prompt
//	case meter.CodeServerError:
//	    // retry later
//	}
package meter
