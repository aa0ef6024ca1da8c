package middleware

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a per-client token bucket kept in memory. Buckets idle for
// longer than ttl are dropped by Cleanup.
type Limiter struct {
	r   rate.Limit
	b   int
	m   sync.Map // key -> *entry
	ttl time.Duration
}

func NewLimiter(r rate.Limit, burst int, ttl time.Duration) *Limiter {
	return &Limiter{r: r, b: burst, ttl: ttl}
}

type entry struct {
	lim  *rate.Limiter
	seen atomic.Int64 // unix nanos
}

func (l *Limiter) get(k string) *rate.Limiter {
	now := time.Now().UnixNano()
	if v, ok := l.m.Load(k); ok {
		e := v.(*entry)
		e.seen.Store(now)
		return e.lim
	}
	e := &entry{lim: rate.NewLimiter(l.r, l.b)}
	e.seen.Store(now)
	v, _ := l.m.LoadOrStore(k, e)
	return v.(*entry).lim
}

func (l *Limiter) Cleanup() int {
	cut := time.Now().Add(-l.ttl).UnixNano()
	n := 0
	l.m.Range(func(key, value any) bool {
		if value.(*entry).seen.Load() < cut {
			l.m.Delete(key)
			n++
		}
		return true
	})
	return n
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.get(clientHost(r)).Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
