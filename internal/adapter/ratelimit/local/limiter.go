package local

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"go-todo-app/internal/core/ports"
)

const idleTTL = 10 * time.Minute

var _ ports.RateLimiter = (*Limiter)(nil)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key in process memory. It is the
// fallback when no Redis is configured, so limits are per instance.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	now      func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewLimiter starts a limiter with a background sweep of idle keys. Call
// Close to stop the sweep.
func NewLimiter(rps float64, burst int) *Limiter {
	l := &Limiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *Limiter) Allow(_ context.Context, key string) (ports.RateLimitResult, error) {
	now := l.now()
	lim := l.get(key, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return ports.RateLimitResult{RetryAfter: time.Second}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return ports.RateLimitResult{RetryAfter: delay}, nil
	}

	return ports.RateLimitResult{
		Allowed:   true,
		Remaining: int64(lim.TokensAt(now)),
	}, nil
}

func (l *Limiter) Close() error {
	l.once.Do(func() { close(l.stop) })
	return nil
}

func (l *Limiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep(l.now())
		}
	}
}

func (l *Limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > idleTTL {
			delete(l.visitors, key)
		}
	}
}
