package collector

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// defaultRemaining is the authenticated rate limit (5000/hour).
	defaultRemaining = 5000

	// proactiveRate throttles requests to ~1.2/sec (4320/hour) so a long
	// harvest stays under the hourly quota without ever hitting it.
	proactiveRate = 1.2

	// minRemaining is the reserve below which Wait blocks until the reset.
	minRemaining = 5

	// maxResetWait caps how long Wait sleeps for a reset. Beyond this the
	// call proceeds and the retry executor deals with any 403.
	maxResetWait = 5 * time.Minute
)

// RateLimiter manages GitHub API rate limiting. It combines a proactive
// token bucket with reactive remaining/reset tracking updated from response
// headers.
type RateLimiter struct {
	mu        sync.Mutex
	remaining int
	resetTime time.Time
	bucket    *rate.Limiter
}

// NewRateLimiter creates a new rate limiter assuming a full quota.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		remaining: defaultRemaining,
		bucket:    rate.NewLimiter(rate.Limit(proactiveRate), 1),
	}
}

// Wait blocks until it's safe to make another API call.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	remaining := r.remaining
	resetTime := r.resetTime
	r.mu.Unlock()

	if remaining <= minRemaining && time.Now().Before(resetTime) {
		waitDuration := time.Until(resetTime)
		if waitDuration > maxResetWait {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitDuration):
		}
	}

	return nil
}

// UpdateLimit updates the rate limit state from API response headers.
func (r *RateLimiter) UpdateLimit(remaining int, resetTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = remaining
	r.resetTime = resetTime
}

// ResetTime returns the last reset time reported by the API.
func (r *RateLimiter) ResetTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetTime
}
