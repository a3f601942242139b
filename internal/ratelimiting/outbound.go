// Package ratelimiting paces outbound requests to the studio API.
package ratelimiting

import (
	"context"

	"golang.org/x/time/rate"
)

// OutboundLimiter delays a caller until it may issue another request.
type OutboundLimiter interface {
	Wait(ctx context.Context) error
}

type RefillPerSecond int
type BurstSize int

type tokenBucketLimiter struct {
	limiter *rate.Limiter
}

func (l *tokenBucketLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// NewTokenBucketLimiter paces requests at refillPerSecond with the given
// burst. Applied to the request/response calls, not the long-lived stream.
func NewTokenBucketLimiter(refillPerSecond RefillPerSecond, burstSize BurstSize) OutboundLimiter {
	return &tokenBucketLimiter{
		limiter: rate.NewLimiter(rate.Limit(refillPerSecond), int(burstSize)),
	}
}

// NewUnlimited never delays. Used by one-shot CLI invocations.
func NewUnlimited() OutboundLimiter {
	return &tokenBucketLimiter{
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
}
