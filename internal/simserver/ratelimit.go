package simserver

import (
	"sync"
	"time"
)

// bucket tracks the token-bucket state for a single client.
type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// RateLimiter implements an in-memory token-bucket rate limiter keyed by
// client address. Tokens refill at a rate of (limit / window) per second.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	window  time.Duration
}

// NewRateLimiter creates a rate limiter with the given refill window.
func NewRateLimiter(window time.Duration) *RateLimiter {
	l := &RateLimiter{
		buckets: make(map[string]*bucket),
		window:  window,
	}
	go l.cleanup()
	return l
}

// Allow checks whether the given client has remaining capacity. It consumes
// one token on success.
func (l *RateLimiter) Allow(key string, limit int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, exists := l.buckets[key]
	if !exists {
		l.buckets[key] = &bucket{
			tokens:    float64(limit - 1),
			lastCheck: now,
		}
		return true
	}

	elapsed := now.Sub(b.lastCheck)
	b.lastCheck = now

	rate := float64(limit) / l.window.Seconds()
	b.tokens += elapsed.Seconds() * rate
	if b.tokens > float64(limit) {
		b.tokens = float64(limit)
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// cleanup periodically drops buckets that have been idle for several
// windows so the map does not grow without bound.
func (l *RateLimiter) cleanup() {
	ticker := time.NewTicker(l.window * 4)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-l.window * 4)
		l.mu.Lock()
		for key, b := range l.buckets {
			if b.lastCheck.Before(cutoff) {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}
