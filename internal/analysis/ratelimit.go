package analysis

import (
	"sync"
	"time"
)

// RateLimiter enforces a sliding-window budget on model calls. The window
// prune and the append happen under one lock, so check-then-record is
// atomic with respect to concurrent callers. The clock is injectable for
// tests.
type RateLimiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	now         func() time.Time
	requests    []time.Time
}

// NewRateLimiter creates a limiter allowing maxRequests per window
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// CanMakeRequest prunes timestamps older than the window and reports
// whether the count is below the cap.
func (r *RateLimiter) CanMakeRequest() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune()
	return len(r.requests) < r.maxRequests
}

// RecordRequest appends the current timestamp
func (r *RateLimiter) RecordRequest() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, r.now())
}

// Allow performs check-then-record as a single atomic operation and
// reports whether the call may proceed.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune()
	if len(r.requests) >= r.maxRequests {
		return false
	}
	r.requests = append(r.requests, r.now())
	return true
}

// Limit returns the configured cap and window
func (r *RateLimiter) Limit() (int, time.Duration) {
	return r.maxRequests, r.window
}

// prune drops timestamps outside the window. Caller holds the lock.
func (r *RateLimiter) prune() {
	cutoff := r.now().Add(-r.window)
	kept := r.requests[:0]
	for _, t := range r.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.requests = kept
}
