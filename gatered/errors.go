package gatered

import (
	"errors"
	"fmt"
	"net/http"
)

// Error types for the gateway and PushShift clients
var (
	ErrRateLimited = fmt.Errorf("rate limited")
	ErrForbidden   = fmt.Errorf("forbidden")
	ErrNotFound    = fmt.Errorf("not found")
	ErrBadRequest  = fmt.Errorf("bad request")
	ErrServerError = fmt.Errorf("server error")
)

// APIError represents an error response returned by one of the upstream APIs
type APIError struct {
	StatusCode int
	Message    string
	Response   []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gatered API error: status=%d message=%s", e.StatusCode, e.Message)
}

// NewAPIError creates a new APIError from an HTTP response
func NewAPIError(resp *http.Response, body []byte) error {
	var baseErr error
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		baseErr = ErrRateLimited
	case http.StatusForbidden:
		baseErr = ErrForbidden
	case http.StatusNotFound:
		baseErr = ErrNotFound
	case http.StatusBadRequest:
		baseErr = ErrBadRequest
	default:
		if resp.StatusCode >= 500 {
			baseErr = ErrServerError
		} else {
			baseErr = fmt.Errorf("unexpected status")
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    baseErr.Error(),
		Response:   body,
	}
}

// IsRateLimitError returns true if the error is a rate limit error
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	return errors.Is(err, ErrRateLimited) || (errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests)
}

// IsForbiddenError returns true if the error is a forbidden error. The gateway
// responds with 403 when it blocks a client, typically by IP.
func IsForbiddenError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	return errors.Is(err, ErrForbidden) || (errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden)
}

// IsNotFoundError returns true if the error is a not found error
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	return errors.Is(err, ErrNotFound) || (errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound)
}

// IsServerError returns true if the error is a server error
func IsServerError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	return errors.Is(err, ErrServerError) || (errors.As(err, &apiErr) && apiErr.StatusCode >= 500)
}

// IsRetryableError returns true if the error should trigger a retry
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return isRetryableStatusCode(apiErr.StatusCode)
	}
	return false
}

// isRetryableStatusCode checks if a status code should trigger a retry
func isRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests, // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusGatewayTimeout:      // 504
		return true
	default:
		return false
	}
}

// IsTemporaryError returns true if the error is likely temporary
func IsTemporaryError(err error) bool {
	return IsRateLimitError(err) || IsServerError(err) || IsRetryableError(err)
}
