package logger

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

type operationCtxKey struct{}

type operation struct {
	account meter.Key
	id      string
}

// WithOperation stores the account and operation id being processed so
// OperationExtractor can attach them to every record logged with ctx.
func WithOperation(ctx context.Context, account meter.Key, operationID string) context.Context {
	return context.WithValue(ctx, operationCtxKey{}, operation{account: account, id: operationID})
}

// OperationExtractor adds the "op" group set by WithOperation.
func OperationExtractor(ctx context.Context) (slog.Attr, bool) {
	op, ok := ctx.Value(operationCtxKey{}).(operation)
	if !ok {
		return slog.Attr{}, false
	}
	return Group("op", Account(op.account), OperationID(op.id)), true
}
