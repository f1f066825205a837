package gatered

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a client-side ceiling on request throughput. The
// gateway publishes no quota headers, so limits here are purely preventative.
// After a 429 the limiter can additionally be frozen until a deadline.
type RateLimiter struct {
	limiter *rate.Limiter

	mu        sync.Mutex
	notBefore time.Time
}

// NewRateLimiter creates a new rate limiter with the specified rate and burst
func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	rps := float64(requestsPerMinute) / 60.0
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// backoffRemaining returns how long the limiter is still frozen.
func (r *RateLimiter) backoffRemaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Until(r.notBefore)
}

// Wait blocks until a request can be made according to the rate limit
func (r *RateLimiter) Wait(ctx context.Context) error {
	if d := r.backoffRemaining(); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		slog.WarnContext(ctx, "rate limit wait aborted",
			"error", err,
			"current_limit", r.limiter.Limit(),
			"current_burst", r.limiter.Burst(),
		)
		return err
	}
	return nil
}

// Allow returns true if a request can be made according to the rate limit
func (r *RateLimiter) Allow() bool {
	if r.backoffRemaining() > 0 {
		return false
	}
	return r.limiter.Allow()
}

// Reserve returns a Reservation that tells the caller how long to wait before
// making the request
func (r *RateLimiter) Reserve() *rate.Reservation {
	return r.limiter.Reserve()
}

// Backoff freezes the limiter until the given time. Normal operation resumes
// once the deadline passes. Used after a 429 so the next attempts do not
// immediately re-trip the server-side limit.
func (r *RateLimiter) Backoff(until time.Time) {
	if time.Until(until) <= 0 {
		return
	}

	r.mu.Lock()
	if until.After(r.notBefore) {
		r.notBefore = until
	}
	r.mu.Unlock()

	slog.Debug("rate limiter backing off", "until", until)
}
