// Package ratelimit implements an in-memory per-key token bucket.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// entry tracks the token-bucket state for a single key.
type entry struct {
	tokens    float64
	lastCheck time.Time
}

// Limiter refills every key at rate tokens per second up to burst.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	rate    float64
	burst   float64
	now     func() time.Time
}

// New creates a limiter. Stale keys are evicted until ctx is done.
func New(ctx context.Context, rate float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	l := &Limiter{
		entries: make(map[string]*entry),
		rate:    rate,
		burst:   float64(burst),
		now:     time.Now,
	}
	go l.cleanup(ctx)
	return l
}

// Allow consumes one token for key and reports whether one was available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, exists := l.entries[key]
	if !exists {
		l.entries[key] = &entry{tokens: l.burst - 1, lastCheck: now}
		return true
	}

	elapsed := now.Sub(e.lastCheck)
	e.lastCheck = now
	e.tokens += elapsed.Seconds() * l.rate
	if e.tokens > l.burst {
		e.tokens = l.burst
	}

	if e.tokens < 1 {
		return false
	}
	e.tokens--
	return true
}

// RetryAfter is the wait until one token refills.
func (l *Limiter) RetryAfter() time.Duration {
	if l.rate <= 0 {
		return time.Minute
	}
	return time.Duration(float64(time.Second) / l.rate)
}

// Reset clears the state of key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

func (l *Limiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict(10 * time.Minute)
		}
	}
}

// evict drops keys idle for longer than idle.
func (l *Limiter) evict(idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idle)
	for key, e := range l.entries {
		if e.lastCheck.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}
