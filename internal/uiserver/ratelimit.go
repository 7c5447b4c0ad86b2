package uiserver

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiter is a per-IP token bucket registry. Unlike
// JoseRFJuniorLLMs-EV-IA's SecurityManager, which counts live connections,
// this limits request/message rate per spec §4.13's "token-bucket" wording,
// built fresh on golang.org/x/time/rate since that reference has nothing to
// port for the rate dimension.
type ipLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*entry
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perSecond float64, burst int) *ipLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiter{
		rps:      rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*entry),
	}
}

// Allow reports whether ip may proceed now, lazily creating its bucket.
func (l *ipLimiter) Allow(ip string) bool {
	if l.rps <= 0 {
		return true
	}

	l.mu.Lock()
	e, ok := l.limiters[ip]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[ip] = e
	}
	e.lastSeen = time.Now()
	l.mu.Unlock()

	return e.limiter.Allow()
}

// evictStale drops buckets idle for longer than ttl, called periodically so
// the map doesn't grow unbounded across a long-running server's lifetime.
func (l *ipLimiter) evictStale(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
}
