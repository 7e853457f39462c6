package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces operations out to a fixed per-minute budget. The history
// fetcher uses it to stay under the market-data API quota.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration // minimum gap between operations
	next     time.Time     // earliest time the next operation may proceed
}

// NewRateLimiter creates a RateLimiter allowing perMinute operations per
// minute. A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute int) *RateLimiter {
	var interval time.Duration
	if perMinute > 0 {
		interval = time.Minute / time.Duration(perMinute)
	}
	return &RateLimiter{interval: interval}
}

// Wait blocks until the caller's slot arrives or the context is cancelled.
// Concurrent callers are serialised in arrival order of their reservations.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.interval == 0 {
		return ctx.Err()
	}

	rl.mu.Lock()
	now := time.Now()
	at := rl.next
	if at.Before(now) {
		at = now
	}
	rl.next = at.Add(rl.interval)
	rl.mu.Unlock()

	wait := time.Until(at)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
