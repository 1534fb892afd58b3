package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by concurrent workers. A nil *Limiter
// never blocks.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter; returns nil if rps is not positive.
func New(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until one token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether one token can be consumed at now without waiting.
func (l *Limiter) Allow(now time.Time) bool {
	if l == nil {
		return true
	}
	return l.limiter.AllowN(now, 1)
}
