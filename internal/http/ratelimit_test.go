package http

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()
	metrics := &securityMetrics{}

	for i := 0; i < maxRequestsPerMinute; i++ {
		if !rl.allow("10.0.0.1", metrics) {
			t.Fatalf("request %d denied within limit", i+1)
		}
	}
	if rl.allow("10.0.0.1", metrics) {
		t.Fatal("request above limit allowed")
	}
	if got := atomic.LoadInt64(&metrics.rateLimitHits); got != 1 {
		t.Fatalf("rateLimitHits = %d, want 1", got)
	}

	// Other clients are counted independently.
	if !rl.allow("10.0.0.2", metrics) {
		t.Fatal("fresh client denied")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i <= maxRequestsPerMinute; i++ {
		rl.allow("10.0.0.1", nil)
	}

	// A full minute of silence restarts the window.
	rl.mu.Lock()
	rl.visitors["10.0.0.1"].seen = time.Now().Add(-2 * time.Minute)
	rl.mu.Unlock()

	if !rl.allow("10.0.0.1", nil) {
		t.Fatal("request after idle window denied")
	}
}

func TestRateLimiterDropStale(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	rl.allow("10.0.0.1", nil)
	rl.mu.Lock()
	rl.visitors["10.0.0.1"].seen = time.Now().Add(-limiterStaleAfter - time.Minute)
	rl.mu.Unlock()

	rl.dropStale()

	rl.mu.Lock()
	_, ok := rl.visitors["10.0.0.1"]
	rl.mu.Unlock()
	if ok {
		t.Fatal("stale visitor survived the sweep")
	}
}
