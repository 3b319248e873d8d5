package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuards(t *testing.T) {
	var nilMap map[string]string
	var nilPtr *Payment

	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"not empty", NotEmpty("name", "x"), false},
		{"blank", NotEmpty("name", "  "), true},
		{"not nil", NotNil("value", 1), false},
		{"nil", NotNil("value", nil), true},
		{"typed nil map", NotNil("value", nilMap), true},
		{"typed nil pointer", NotNil("value", nilPtr), true},
		{"non negative zero", NonNegative("qty", 0), false},
		{"negative", NonNegative("qty", -1), true},
		{"positive", Positive("qty", int64(1)), false},
		{"zero not positive", Positive("qty", 0.0), true},
		{"in range", InRange("pct", 50, 0, 100), false},
		{"out of range", InRange("pct", 101, 0, 100), true},
		{"max length runes", MaxLength("name", "héllo", 5), false},
		{"too long", MaxLength("name", "héllo!", 5), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.wantErr {
				assert.NoError(t, tt.err)
				return
			}
			var dErr *Error
			assert.True(t, errors.As(tt.err, &dErr))
			assert.Equal(t, ErrCodeInvalid, dErr.Code)
			assert.NotEmpty(t, dErr.Field)
		})
	}
}

func TestDefaultIfEmpty(t *testing.T) {
	assert.Equal(t, "card", DefaultIfEmpty(" ", "card"))
	assert.Equal(t, "wallet", DefaultIfEmpty("wallet", "card"))
}

func TestFirstError(t *testing.T) {
	first := NotEmpty("a", "")
	assert.Equal(t, first, FirstError(nil, first, NotEmpty("b", "")))
	assert.NoError(t, FirstError(nil, nil))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeConflict, CodeOf(ErrConcurrentModification))
	assert.Equal(t, ErrCodeInvalidTransition, CodeOf(newTransitionError(KindPayment, "refund", "pending", "refunded")))
	assert.Equal(t, ErrCodeInvariant, CodeOf(violation(ErrStockExceeded, "detail")))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("boom")))
}
