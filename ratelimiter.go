package mitiq

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

/*
RateLimiter throttles backend calls with a token bucket. Hardware providers
commonly cap submissions per second; the limiter keeps an Executor under
that cap without the backend having to sleep itself.
*/
type RateLimiter struct {
	limiter   *rate.Limiter
	throttled atomic.Int64
}

// NewRateLimiter allows perSecond calls per second with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Limit consumes a token if one is available and reports whether the
// caller should hold off instead.
func (rl *RateLimiter) Limit() bool {
	return !rl.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	reservation := rl.limiter.Reserve()
	if !reservation.OK() {
		return fmt.Errorf("%w: rate limiter burst is zero", ErrConfiguration)
	}

	delay := reservation.Delay()
	if delay <= 0 {
		return nil
	}

	rl.throttled.Add(1)
	rateLimitWaits.Inc()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		reservation.Cancel()
		return ctx.Err()
	}
}

// Throttled is the number of calls Wait had to delay.
func (rl *RateLimiter) Throttled() int64 {
	return rl.throttled.Load()
}
