package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	apperrors "kmeans-backend/pkg/errors"
	"kmeans-backend/pkg/observability"

	"golang.org/x/time/rate"
)

// ClientRateLimiter keeps one token bucket per client key
type ClientRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastPrune time.Time
	now       func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientRateLimiter allows each client rps requests per second with the given burst
func NewClientRateLimiter(rps float64, burst int) *ClientRateLimiter {
	return &ClientRateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// Allow reports whether the client identified by key may proceed
func (l *ClientRateLimiter) Allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	l.pruneLocked(now)

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	l.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients
func (l *ClientRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// pruneLocked drops idle clients at most once per idleTTL
func (l *ClientRateLimiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < l.idleTTL {
		return
	}
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idleTTL {
			delete(l.clients, key)
		}
	}
	l.lastPrune = now
}

// Middleware rejects requests over the limit with 429
func (l *ClientRateLimiter) Middleware(errorHandler *apperrors.ErrorHandler, collector *observability.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientKey(r)) {
				if collector != nil {
					collector.RateLimited.Inc()
				}
				w.Header().Set("Retry-After", "1")
				errorHandler.Handle(w, r, apperrors.NewRateLimitError(float64(l.limit), l.burst))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey is the remote host; RealIP has already applied proxy headers
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
