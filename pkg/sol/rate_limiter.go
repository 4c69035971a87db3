package sol

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles chain RPC calls with a token bucket. Every wrapper
// in rpc_wrapper.go waits on it before hitting the endpoint, so a burst of
// mirrored trades cannot trip the provider's request ceiling.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows requestsPerSecond sustained, with an equal burst.
func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// Wait blocks until the rate limiter allows the request or the context ends.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}
