package security

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	tokens         int
	maxTokens      int
	refillInterval time.Duration
	mu             sync.Mutex
	lastRefill     time.Time
	now            func() time.Time
}

// NewRateLimiter creates a new rate limiter
// maxRequests: maximum number of requests allowed
// perDuration: time window for the max requests
func NewRateLimiter(maxRequests int, perDuration time.Duration) *RateLimiter {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &RateLimiter{
		tokens:         maxRequests,
		maxTokens:      maxRequests,
		refillInterval: perDuration / time.Duration(maxRequests),
		lastRefill:     time.Now(),
		now:            time.Now,
	}
}

// Allow consumes a token if one is available without waiting.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	if r.tokens <= 0 {
		return false
	}
	r.tokens--
	return true
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		if r.Allow() {
			return nil
		}

		timer := time.NewTimer(r.refillInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refill adds tokens based on time elapsed (caller must hold lock)
func (r *RateLimiter) refill() {
	now := r.now()
	elapsed := now.Sub(r.lastRefill)
	if r.refillInterval <= 0 {
		r.tokens = r.maxTokens
		r.lastRefill = now
		return
	}

	tokensToAdd := int(elapsed / r.refillInterval)
	if tokensToAdd > 0 {
		r.tokens += tokensToAdd
		if r.tokens > r.maxTokens {
			r.tokens = r.maxTokens
		}
		r.lastRefill = now
	}
}

// SampleLimiter limits on-demand platform sampling requested through the
// MCP server. Each sample may run external commands.
func SampleLimiter() *RateLimiter {
	return NewRateLimiter(5, 1*time.Second)
}
