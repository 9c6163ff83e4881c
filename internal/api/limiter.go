package api

import (
	"sync"

	"golang.org/x/time/rate"

	"healthops/internal/config"
)

// bucketKey separates budgets per client and per permission, so a burst of
// exports does not lock the same operator out of reading views.
type bucketKey struct {
	client     string
	permission string
}

type rateLimiter struct {
	mu      sync.Mutex
	buckets map[bucketKey]*rate.Limiter
	cfg     config.APIRateLimitConfig
}

func newRateLimiter(cfg config.APIRateLimitConfig) *rateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.ExportRPS <= 0 {
		cfg.ExportRPS = cfg.RPS
	}
	return &rateLimiter{cfg: cfg, buckets: make(map[bucketKey]*rate.Limiter)}
}

func (l *rateLimiter) enabled() bool {
	return l.cfg.RPS > 0
}

// allow spends one token from the client's bucket for permission.
func (l *rateLimiter) allow(client, permission string) bool {
	key := bucketKey{client: client, permission: permission}

	l.mu.Lock()
	lim, ok := l.buckets[key]
	if !ok {
		rps := l.cfg.RPS
		if permission == permExport {
			rps = l.cfg.ExportRPS
		}
		lim = rate.NewLimiter(rate.Limit(rps), l.cfg.Burst)
		l.buckets[key] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}
