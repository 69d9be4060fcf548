package api

import (
	"sync"

	"fonteyn/internal/config"

	"golang.org/x/time/rate"
)

// loginLimiter keeps a token bucket per client key. Entries are never
// evicted; the key space is bounded by the set of client addresses seen
// between restarts.
type loginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newLoginLimiter(cfg config.RateLimitConfig) *loginLimiter {
	return &loginLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(cfg.RPS),
		burst:    cfg.Burst,
	}
}

func (l *loginLimiter) Allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}
