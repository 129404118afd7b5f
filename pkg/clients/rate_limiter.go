package clients

import (
	"context"
	"sync"
	"time"
)

// RateLimiter defines the interface for request rate limiting.
type RateLimiter interface {
	// Allow checks if a request is allowed without blocking
	Allow() bool

	// Wait blocks until a request is allowed or the context is cancelled
	Wait(ctx context.Context) error

	// GetStats returns rate limiter statistics
	GetStats() RateLimiterStats
}

// RateLimiterStats provides statistics about rate limiter behavior.
type RateLimiterStats struct {
	Rate            float64 `json:"rate"`
	Burst           int     `json:"burst"`
	AllowedRequests int64   `json:"allowed_requests"`
	BlockedRequests int64   `json:"blocked_requests"`
}

// NewRateLimiter creates a token bucket rate limiter with the specified rate
// (requests per second) and burst size.
func NewRateLimiter(rate int, burst int) RateLimiter {
	return &tokenBucketLimiter{
		rate:     float64(rate),
		burst:    burst,
		tokens:   float64(burst),
		lastTime: time.Now(),
	}
}

// tokenBucketLimiter implements the token bucket algorithm. Tokens refill at
// a constant rate and each request consumes one.
type tokenBucketLimiter struct {
	rate     float64
	burst    int
	tokens   float64
	lastTime time.Time

	allowedRequests int64
	blockedRequests int64

	mu sync.Mutex
}

func (tb *tokenBucketLimiter) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		tb.allowedRequests++
		return true
	}
	tb.blockedRequests++
	return false
}

func (tb *tokenBucketLimiter) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		tb.refill()
		if tb.tokens >= 1 {
			tb.tokens--
			tb.allowedRequests++
			tb.mu.Unlock()
			return nil
		}
		// Time until the next token is available
		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.blockedRequests++
		tb.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (tb *tokenBucketLimiter) GetStats() RateLimiterStats {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return RateLimiterStats{
		Rate:            tb.rate,
		Burst:           tb.burst,
		AllowedRequests: tb.allowedRequests,
		BlockedRequests: tb.blockedRequests,
	}
}

// refill adds tokens for elapsed time; caller must hold the lock
func (tb *tokenBucketLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastTime).Seconds()
	tb.lastTime = now

	tb.tokens += elapsed * tb.rate
	if tb.tokens > float64(tb.burst) {
		tb.tokens = float64(tb.burst)
	}
}
