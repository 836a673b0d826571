package logger

import (
	"log/slog"
	"strconv"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error records err under the key "error" together with its taxonomy code.
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return Group("error",
		slog.String("message", err.Error()),
		slog.String("code", meter.Code(err)),
	)
}

// Account records the metered account under the key "account".
func Account(key meter.Key) slog.Attr {
	return slog.String("account", key.String())
}

// OperationID records the caller supplied operation id.
// If id is empty, it returns an empty Attr.
func OperationID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("operation_id", id)
}

// Tenths records an amount in tenths of a credit.
func Tenths(name string, v int64) slog.Attr {
	return slog.Int64(name+"_tenths", v)
}

// Actor records who performed an administrative action.
func Actor(actor string) slog.Attr {
	return slog.String("actor", actor)
}

// Source records how a charge was settled.
func Source(source string) slog.Attr {
	return slog.String("source", source)
}

// Key records a storage key.
func Key(key string) slog.Attr {
	return slog.String("key", key)
}

// RetryCount records the retry count under the key "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
