package logger_test

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/meter"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("req", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "req", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	assert.True(t, logger.Errors(nil).Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := fmt.Errorf("%w: cap reached", meter.ErrInsufficientQuota)
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)

	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err.Error(), g[0].Value.String())
	assert.Equal(t, meter.CodeInsufficientQuota, g[1].Value.String())

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestDomainAttrs(t *testing.T) {
	attr := logger.Account(meter.Key{Class: meter.ClassUser, ID: "7"})
	assert.Equal(t, "account", attr.Key)
	assert.Equal(t, "user:7", attr.Value.String())

	assert.Equal(t, "operation_id", logger.OperationID("op").Key)
	assert.True(t, logger.OperationID("").Equal(slog.Attr{}))

	tenths := logger.Tenths("cost", 50)
	assert.Equal(t, "cost_tenths", tenths.Key)
	assert.Equal(t, int64(50), tenths.Value.Int64())

	assert.Equal(t, "actor", logger.Actor("admin@example.com").Key)
	assert.Equal(t, "quota", logger.Source("quota").Value.String())
}
