package carrier

import (
	"errors"
	"fmt"
)

// Error represents an error from a delivery provider.
type Error struct {
	Carrier    Key
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new provider Error.
func NewError(key Key, code, message string) *Error {
	return &Error{
		Carrier: key,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// Sentinel errors for common provider scenarios.
var (
	// ErrUnknownCarrier indicates the requested provider is not registered.
	ErrUnknownCarrier = errors.New("unknown carrier")

	// ErrInvalidAddress indicates the address is invalid or incomplete.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrAddressConflict indicates the address already exists in the
	// provider's address book under a different account.
	ErrAddressConflict = errors.New("address already registered")

	// ErrUnsupportedRoute indicates the provider does not serve the route.
	ErrUnsupportedRoute = errors.New("unsupported route")

	// ErrServiceUnavailable indicates the provider is temporarily unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrRateLimited indicates the provider's rate limit was exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrOrderNotFound indicates the external order id was not found.
	ErrOrderNotFound = errors.New("order not found")

	// ErrCancellationNotAllowed indicates the order cannot be cancelled.
	ErrCancellationNotAllowed = errors.New("cancellation not allowed")

	// ErrAuthenticationFailed indicates provider authentication failed.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Retryable
	}
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimited)
}
