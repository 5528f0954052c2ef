package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements a token-bucket rate limiter that replenishes one
// token at a fixed rate. The download drivers use it to pace per-symbol
// provider requests.
type RateLimiter struct {
	interval time.Duration // time to earn one token
	tokens   float64
	lastTime time.Time
	mu       sync.Mutex
}

// NewRateLimiter creates a RateLimiter that allows perMinute operations per
// minute.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimiter{
		interval: time.Minute / time.Duration(perMinute),
		tokens:   1, // first request goes through immediately
		lastTime: time.Now(),
	}
}

// Wait blocks until a rate-limit token is available or the context is
// cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		rl.tokens += float64(now.Sub(rl.lastTime)) / float64(rl.interval)
		if rl.tokens > 1 {
			rl.tokens = 1
		}
		rl.lastTime = now

		if rl.tokens >= 1 {
			rl.tokens -= 1
			rl.mu.Unlock()
			return nil
		}

		// Sleep exactly until the next token is earned instead of polling.
		wait := time.Duration((1 - rl.tokens) * float64(rl.interval))
		rl.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
