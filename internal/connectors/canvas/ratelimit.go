package canvas

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestsPerSecond is the proactive throttle rate.
	DefaultRequestsPerSecond = 10

	// DefaultRateLimitThreshold is the remaining quota below which the
	// client slows down.
	DefaultRateLimitThreshold = 100

	// DefaultThrottleDelay is the pause taken when quota runs low.
	DefaultThrottleDelay = 2 * time.Second

	// DefaultRetryAfter is used when a throttled 403 carries no Retry-After header.
	DefaultRetryAfter = 60 * time.Second

	// HeaderRateRemaining is the remaining quota header (float-formatted).
	HeaderRateRemaining = "X-Rate-Limit-Remaining"

	// HeaderRequestCost is the cost Canvas charged for the request.
	HeaderRequestCost = "X-Request-Cost"

	// HeaderRetryAfter is the retry-after header (seconds).
	HeaderRetryAfter = "Retry-After"
)

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext is the default sleepFunc.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RateLimiter tracks the Canvas quota for one token.
// It combines a proactive token bucket with the quota the API reports
// and any pending Retry-After deadline.
type RateLimiter struct {
	mu        sync.Mutex
	remaining float64       // From API header, -1 until first seen
	lastCost  float64       // From API header
	retryAt   time.Time     // Set by a 403
	bucket    *rate.Limiter // Proactive throttling
	threshold float64
	sleep     sleepFunc
}

// NewRateLimiter creates a rate limiter. A non-positive rps disables
// proactive throttling.
func NewRateLimiter(rps, threshold float64) *RateLimiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RateLimiter{
		remaining: -1,
		bucket:    rate.NewLimiter(limit, 1),
		threshold: threshold,
		sleep:     sleepContext,
	}
}

// Wait blocks until it's safe to make a request.
// A pending Retry-After deadline blocks every caller, not just the one
// that received the 403.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		if err := r.sleep(ctx, d); err != nil {
			return err
		}
	}

	return r.bucket.Wait(ctx)
}

// UpdateFromResponse updates quota state from response headers.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if remaining := resp.Header.Get(HeaderRateRemaining); remaining != "" {
		if val, err := strconv.ParseFloat(strings.TrimSpace(remaining), 64); err == nil {
			r.remaining = val
		}
	}
	if cost := resp.Header.Get(HeaderRequestCost); cost != "" {
		if val, err := strconv.ParseFloat(strings.TrimSpace(cost), 64); err == nil {
			r.lastCost = val
		}
	}
}

// BelowThreshold reports whether the last reported quota is under the
// configured threshold.
func (r *RateLimiter) BelowThreshold() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining >= 0 && r.remaining < r.threshold
}

// RecordRetryAfter sets the deadline before which no request is sent.
// A later deadline already recorded is kept.
func (r *RateLimiter) RecordRetryAfter(d time.Duration) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	at := time.Now().Add(d)
	if at.After(r.retryAt) {
		r.retryAt = at
	}
	return r.retryAt
}

// Remaining returns the last reported quota, or -1 if none was seen yet.
func (r *RateLimiter) Remaining() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

// LastCost returns the cost of the most recent request.
func (r *RateLimiter) LastCost() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastCost
}

// RetryAt returns the pending retry deadline.
func (r *RateLimiter) RetryAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryAt
}

// rateLimitExceeded reports whether a 403 is a throttle rather than a
// permission failure: a Retry-After header, an exhausted quota header or
// the "Rate Limit Exceeded" message Canvas sends with throttled requests.
func rateLimitExceeded(h http.Header, body []byte) bool {
	if strings.TrimSpace(h.Get(HeaderRetryAfter)) != "" {
		return true
	}
	if v := strings.TrimSpace(h.Get(HeaderRateRemaining)); v != "" {
		if remaining, err := strconv.ParseFloat(v, 64); err == nil && remaining <= 0 {
			return true
		}
	}
	return strings.Contains(strings.ToLower(string(body)), "rate limit exceeded")
}

// parseRetryAfter reads Retry-After as seconds (integer or decimal).
// HTTP-date values are also accepted.
func parseRetryAfter(h http.Header, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(h.Get(HeaderRetryAfter))
	if v == "" {
		return fallback
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}
