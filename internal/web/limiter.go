package web

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiter keeps one token bucket per client address.
type ipLimiter struct {
	limiters sync.Map // map[string]*limiterEntry
	rps      rate.Limit
	burst    int
	now      func() time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func newIPLimiter(rps float64, burst int) *ipLimiter {
	if burst <= 0 {
		burst = 5
	}
	return &ipLimiter{rps: rate.Limit(rps), burst: burst, now: time.Now}
}

// Allow reports whether key may proceed. A non-positive rate disables limiting.
func (l *ipLimiter) Allow(key string) bool {
	if l == nil || l.rps <= 0 {
		return true
	}
	e := l.get(key)
	e.mu.Lock()
	e.lastSeen = l.now()
	e.mu.Unlock()
	return e.lim.AllowN(l.now(), 1)
}

func (l *ipLimiter) get(key string) *limiterEntry {
	if v, ok := l.limiters.Load(key); ok {
		if e, ok := v.(*limiterEntry); ok {
			return e
		}
	}
	e := &limiterEntry{lim: rate.NewLimiter(l.rps, l.burst)}
	actual, loaded := l.limiters.LoadOrStore(key, e)
	if loaded {
		if existing, ok := actual.(*limiterEntry); ok {
			return existing
		}
	}
	return e
}

// Sweep drops buckets idle for longer than maxIdle and returns how many went.
func (l *ipLimiter) Sweep(maxIdle time.Duration) int {
	cutoff := l.now().Add(-maxIdle)
	removed := 0
	l.limiters.Range(func(k, v any) bool {
		e, ok := v.(*limiterEntry)
		if !ok {
			return true
		}
		e.mu.Lock()
		idle := e.lastSeen.Before(cutoff)
		e.mu.Unlock()
		if idle {
			l.limiters.Delete(k)
			removed++
		}
		return true
	})
	return removed
}
