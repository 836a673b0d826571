package meter_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/meter"
)

func TestKey_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     meter.Key
		wantErr bool
	}{
		{"user", meter.Key{Class: meter.ClassUser, ID: "42"}, false},
		{"guest", meter.Key{Class: meter.ClassGuest, ID: "c0ffee"}, false},
		{"admin is not meterable", meter.Key{Class: "admin", ID: "1"}, true},
		{"empty id", meter.Key{Class: meter.ClassUser}, true},
		{"separator in id", meter.Key{Class: meter.ClassUser, ID: "a:b"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.key.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, meter.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseKey(t *testing.T) {
	t.Parallel()

	key := meter.Key{Class: meter.ClassGuest, ID: "abc"}
	parsed, err := meter.ParseKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = meter.ParseKey("no-separator")
	assert.ErrorIs(t, err, meter.ErrValidation)
}

func TestWhole(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(0), meter.Whole(9))
	assert.Equal(t, int64(1), meter.Whole(15))
	assert.Equal(t, int64(5), meter.Whole(50))
	assert.Equal(t, int64(50), meter.FromWhole(5))
}

func TestCode(t *testing.T) {
	t.Parallel()

	assert.Empty(t, meter.Code(nil))
	assert.Equal(t, meter.CodeInsufficientQuota, meter.Code(fmt.Errorf("wrap: %w", meter.ErrInsufficientQuota)))
	assert.Equal(t, meter.CodeInsufficientCredits, meter.Code(errors.Join(errors.New("x"), meter.ErrInsufficientCredits)))
	assert.Equal(t, meter.CodeValidation, meter.Code(meter.ValidateAmount(-1)))
	assert.Equal(t, meter.CodeServerError, meter.Code(errors.New("boom")))
}
