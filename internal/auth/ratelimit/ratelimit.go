// Package ratelimit implements an in-memory token-bucket rate limiter
// keyed by API key ID.
package ratelimit

import (
	"sync"
	"time"
)

// bucket tracks the token state for a single key.
type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// Limiter refills each key's bucket continuously at limit/window tokens
// per second, where limit is supplied per call so each API key can carry
// its own quota.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	window  time.Duration
}

// New creates a rate limiter with the given refill window and starts a
// background sweep of stale buckets.
func New(window time.Duration) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		window:  window,
	}
	go l.sweep()
	return l
}

// Allow consumes one token for key if any remain and reports whether the
// request may proceed.
func (l *Limiter) Allow(key string, limit int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{
			tokens:   float64(limit - 1),
			lastSeen: now,
		}
		return true
	}

	elapsed := now.Sub(b.lastSeen)
	b.lastSeen = now

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

// Reset clears the bucket for a specific key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// sweep removes buckets idle for more than two windows.
func (l *Limiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		cutoff := time.Now().Add(-2 * l.window)
		for key, b := range l.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}
