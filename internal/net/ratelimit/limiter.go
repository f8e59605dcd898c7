// Package ratelimit provides per-client token-bucket limiting for the report
// API. Report builds are O(rows × dimensions), so a chatty dashboard client
// must not be able to monopolize the server.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter hands each client key its own token bucket.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewLimiter creates a limiter with the given per-client rate and burst.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

func (l *Limiter) get(client string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[client]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, exists := l.limiters[client]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.limiters[client] = limiter
	return limiter
}

// Allow reports whether the client may proceed right now.
func (l *Limiter) Allow(client string) bool {
	return l.get(client).Allow()
}

// Wait blocks until the client may proceed or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context, client string) error {
	return l.get(client).Wait(ctx)
}

// Reset drops all client buckets.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters = make(map[string]*rate.Limiter)
}
