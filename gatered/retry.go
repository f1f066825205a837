package gatered

import (
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// RetryConfig controls how failed requests are retried.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// BaseDelay is the starting delay for exponential backoff.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// JitterFactor adds randomness to the delay to avoid thundering herds.
	// A value of 0.1 varies the delay by up to +/-5%.
	JitterFactor float64

	// RetryableCodes lists the HTTP status codes that trigger a retry.
	RetryableCodes []int

	// RespectRetryAfter makes the client honor Retry-After and X-Retry-After
	// headers on 429 responses instead of the computed backoff.
	RespectRetryAfter bool
}

// DefaultRetryConfig returns the retry behavior used for the Reddit gateway:
// five attempts in total, honoring Retry-After on 429 and backing off on
// transient 5xx responses.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:   4,
		BaseDelay:    5 * time.Second,
		MaxDelay:     60 * time.Second,
		JitterFactor: 0.1,
		RetryableCodes: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusGatewayTimeout,
		},
		RespectRetryAfter: true,
	}
}

// DefaultPushshiftRetryConfig returns the retry behavior used for the
// PushShift archive, which throttles aggressively and sends no Retry-After.
func DefaultPushshiftRetryConfig() *RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.BaseDelay = 15 * time.Second
	cfg.RespectRetryAfter = false
	return cfg
}

// isRetryable checks if a status code should trigger a retry
func (rc *RetryConfig) isRetryable(statusCode int) bool {
	if rc == nil {
		return false
	}
	for _, code := range rc.RetryableCodes {
		if code == statusCode {
			return true
		}
	}
	return false
}

// delay calculates the wait before the next attempt with exponential backoff
// and jitter. A positive retryAfter from the server wins when configured.
func (rc *RetryConfig) delay(attempt int, retryAfter time.Duration) time.Duration {
	if rc == nil {
		return 0
	}

	if retryAfter > 0 && rc.RespectRetryAfter {
		return retryAfter
	}

	d := time.Duration(float64(rc.BaseDelay) * math.Pow(2, float64(attempt)))
	if d > rc.MaxDelay {
		d = rc.MaxDelay
	}

	if rc.JitterFactor > 0 {
		jitter := time.Duration(float64(d) * rc.JitterFactor * (rand.Float64() - 0.5))
		d += jitter
	}

	return d
}

// parseRetryAfter parses a Retry-After style header value into a duration.
// Both delta-seconds and HTTP-date forms are accepted.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := time.Parse(time.RFC1123, header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

// retryAfterFromHeaders reads the standard Retry-After header, falling back
// to the X-Retry-After variant the gateway has been seen to use.
func retryAfterFromHeaders(headers http.Header) time.Duration {
	if d := parseRetryAfter(headers.Get("Retry-After")); d > 0 {
		return d
	}
	return parseRetryAfter(headers.Get("X-Retry-After"))
}
