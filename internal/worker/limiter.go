package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter applies a per-host request rate so outbound calls to one service
// stay polite no matter how many pool workers are hitting it. Each host gets
// its own token bucket, created on first use.
type Limiter struct {
	mu           sync.RWMutex
	limiters     map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter handing out defaultRate requests per second
// with the given burst to every host that has no custom rate.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until the host's bucket allows one more request or ctx ends.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	return l.limiterFor(host).Wait(ctx)
}

// Allow reports whether one request to host may proceed right now.
func (l *Limiter) Allow(host string) bool {
	return l.limiterFor(host).Allow()
}

// SetHostRate overrides the rate for one host.
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	if burst <= 0 {
		burst = l.defaultBurst
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[host] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) limiterFor(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[host]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring the write lock.
	if limiter, ok := l.limiters[host]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[host] = limiter
	return limiter
}
