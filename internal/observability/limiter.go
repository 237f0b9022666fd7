package observability

import (
	"context"

	"go-todo-app/internal/core/ports"
)

// InstrumentedLimiter is a decorator that counts rate limit decisions.
type InstrumentedLimiter struct {
	inner ports.RateLimiter
}

var _ ports.RateLimiter = (*InstrumentedLimiter)(nil)

func NewInstrumentedLimiter(inner ports.RateLimiter) *InstrumentedLimiter {
	return &InstrumentedLimiter{inner: inner}
}

func (l *InstrumentedLimiter) Allow(ctx context.Context, key string) (ports.RateLimitResult, error) {
	res, err := l.inner.Allow(ctx, key)
	switch {
	case err != nil:
		rateLimitDecisions.WithLabelValues("error").Inc()
	case res.Allowed:
		rateLimitDecisions.WithLabelValues("allowed").Inc()
	default:
		rateLimitDecisions.WithLabelValues("limited").Inc()
	}
	return res, err
}
