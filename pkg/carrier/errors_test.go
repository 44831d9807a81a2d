package carrier_test

import (
	"errors"
	"testing"

	"github.com/parceldeck/broker/pkg/carrier"
	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := carrier.NewError(carrier.KeyGlovo, "INVALID_ADDRESS", "Invalid postal code")
	assert.Equal(t, "glovo error (INVALID_ADDRESS): Invalid postal code", err.Error())
}

func TestError_ErrorWithCause(t *testing.T) {
	cause := errors.New("network timeout")
	err := carrier.NewError(carrier.KeyGlovo, "API_ERROR", "API call failed").WithCause(cause)
	assert.Contains(t, err.Error(), "API call failed")
	assert.Contains(t, err.Error(), "network timeout")
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("network timeout")
	err := carrier.NewError(carrier.KeyGlovo, "API_ERROR", "API call failed").WithCause(cause)
	assert.True(t, errors.Is(err, cause))
}

func TestError_Is(t *testing.T) {
	err1 := carrier.NewError(carrier.KeyGlovo, "INVALID_ADDRESS", "Invalid postal code")
	err2 := carrier.NewError(carrier.KeyDhl, "INVALID_ADDRESS", "Different message")

	// Same code should match
	assert.True(t, errors.Is(err1, err2))
}

func TestError_IsNot(t *testing.T) {
	err1 := carrier.NewError(carrier.KeyGlovo, "INVALID_ADDRESS", "Invalid postal code")
	err2 := carrier.NewError(carrier.KeyGlovo, "DIFFERENT_CODE", "Different error")

	// Different codes should not match
	assert.False(t, errors.Is(err1, err2))
}

func TestError_WithStatusCode(t *testing.T) {
	err := carrier.NewError(carrier.KeyGlovo, "AUTH_ERROR", "Unauthorized").WithStatusCode(401)
	assert.Equal(t, 401, err.StatusCode)
}

func TestError_WithRetryable(t *testing.T) {
	err := carrier.NewError(carrier.KeyGlovo, "RATE_LIMIT", "Too many requests").WithRetryable(true)
	assert.True(t, err.Retryable)
}

func TestIsRetryable_CarrierError(t *testing.T) {
	err := carrier.NewError(carrier.KeyGlovo, "RATE_LIMIT", "Too many requests").WithRetryable(true)
	assert.True(t, carrier.IsRetryable(err))
}

func TestIsRetryable_CarrierErrorNotRetryable(t *testing.T) {
	err := carrier.NewError(carrier.KeyGlovo, "INVALID_ADDRESS", "Bad address").WithRetryable(false)
	assert.False(t, carrier.IsRetryable(err))
}

func TestIsRetryable_ServiceUnavailable(t *testing.T) {
	assert.True(t, carrier.IsRetryable(carrier.ErrServiceUnavailable))
}

func TestIsRetryable_RateLimited(t *testing.T) {
	assert.True(t, carrier.IsRetryable(carrier.ErrRateLimited))
}

func TestIsRetryable_InvalidAddress(t *testing.T) {
	assert.False(t, carrier.IsRetryable(carrier.ErrInvalidAddress))
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrUnknownCarrier", carrier.ErrUnknownCarrier},
		{"ErrInvalidAddress", carrier.ErrInvalidAddress},
		{"ErrAddressConflict", carrier.ErrAddressConflict},
		{"ErrUnsupportedRoute", carrier.ErrUnsupportedRoute},
		{"ErrServiceUnavailable", carrier.ErrServiceUnavailable},
		{"ErrRateLimited", carrier.ErrRateLimited},
		{"ErrOrderNotFound", carrier.ErrOrderNotFound},
		{"ErrCancellationNotAllowed", carrier.ErrCancellationNotAllowed},
		{"ErrAuthenticationFailed", carrier.ErrAuthenticationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}
