package llm

import (
	"errors"
	"time"
)

// ErrorType categorizes provider failures so retry and fallback decisions do
// not depend on which SDK produced them.
type ErrorType string

const (
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	ErrorTypeProvider       ErrorType = "provider"
	ErrorTypeNetwork        ErrorType = "network"
	ErrorTypeTimeout        ErrorType = "timeout"
	ErrorTypeUnknown        ErrorType = "unknown"
)

// Error is the provider-neutral failure shape every adapter maps onto.
// RetryAfter carries the provider's rate-limit hint when one was given.
type Error struct {
	Type        ErrorType
	Message     string
	Retryable   bool
	RetryAfter  *time.Duration
	StatusCode  int
	ProviderErr error
}

func (e *Error) Error() string {
	if e.ProviderErr == nil {
		return e.Message
	}
	return e.Message + ": " + e.ProviderErr.Error()
}

func (e *Error) Unwrap() error {
	return e.ProviderErr
}

// asError unwraps any error chain down to the llm error, if one is present.
func asError(err error) *Error {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}
	return nil
}

// IsRateLimitError reports whether err is a provider rate limit.
func IsRateLimitError(err error) bool {
	e := asError(err)
	return e != nil && e.Type == ErrorTypeRateLimit
}

// IsRetryableError reports whether a retry could plausibly succeed. Errors
// from outside this package are never retryable.
func IsRetryableError(err error) bool {
	e := asError(err)
	return e != nil && e.Retryable
}

// ExtractRetryAfter returns the provider's retry-after hint, or nil.
func ExtractRetryAfter(err error) *time.Duration {
	if e := asError(err); e != nil {
		return e.RetryAfter
	}
	return nil
}

// NewRateLimitError builds a retryable rate-limit error carrying the
// provider's retry-after hint.
func NewRateLimitError(message string, retryAfter *time.Duration, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeRateLimit,
		Message:     message,
		Retryable:   true,
		RetryAfter:  retryAfter,
		ProviderErr: providerErr,
	}
}

// NewProviderError builds an upstream provider error; retryability depends on
// the status the provider returned.
func NewProviderError(message string, retryable bool, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeProvider,
		Message:     message,
		Retryable:   retryable,
		ProviderErr: providerErr,
	}
}

// NewNetworkError builds a retryable transport-level error.
func NewNetworkError(message string, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeNetwork,
		Message:     message,
		Retryable:   true,
		ProviderErr: providerErr,
	}
}

// NewInvalidRequestError builds a non-retryable caller error.
func NewInvalidRequestError(message string, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeInvalidRequest,
		Message:     message,
		Retryable:   false,
		ProviderErr: providerErr,
	}
}
