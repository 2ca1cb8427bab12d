package http

import (
	"sync"
	"sync/atomic"
	"time"
)

// Mutation endpoints are limited per client IP; reads are never throttled so
// balance polling stays cheap.
const (
	maxRequestsPerMinute = 60
	limiterSweepInterval = 5 * time.Minute
	limiterStaleAfter    = 10 * time.Minute
)

// rateLimiter counts requests per client IP within a one-minute window.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	quit     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	seen  time.Time
	count int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		quit:     make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// sweep periodically drops visitors that have gone quiet, so the map does not
// grow with every IP ever seen.
func (rl *rateLimiter) sweep() {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.dropStale()
		case <-rl.quit:
			return
		}
	}
}

func (rl *rateLimiter) dropStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-limiterStaleAfter)
	for ip, v := range rl.visitors {
		if v.seen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

// stop shuts down the sweep goroutine. Safe to call more than once.
func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() {
		close(rl.quit)
	})
}

// allow reports whether a request from the given IP is within the limit. The
// window restarts once a visitor has been idle for a full minute.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, ok := rl.visitors[clientIP]
	if !ok || now.Sub(v.seen) > time.Minute {
		rl.visitors[clientIP] = &visitor{seen: now, count: 1}
		return true
	}

	v.count++
	v.seen = now

	if v.count > maxRequestsPerMinute {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}
