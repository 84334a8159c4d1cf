package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error codes for upstream failures. Transient codes are retried with
// backoff; everything else propagates immediately, because retrying an
// ambiguous partial failure risks double-charging the vendor without gaining
// correctness.
const (
	ErrCodeRateLimit       = "rate_limit"
	ErrCodeServerError     = "server_error"
	ErrCodeTimeout         = "timeout"
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeMalformedOutput = "malformed_output"
)

// APIError represents a failure of the upstream AI call.
type APIError struct {
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream error: %s", e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

func newAPIError(code, message string, statusCode int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  isRetryableCode(code),
	}
}

func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeRateLimit, ErrCodeServerError, ErrCodeTimeout:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether an upstream error is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// IsMalformedOutput reports whether the upstream returned something that is
// not the promised JSON object.
func IsMalformedOutput(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == ErrCodeMalformedOutput
}
