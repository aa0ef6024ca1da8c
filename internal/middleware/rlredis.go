package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared by every replica behind the
// same Redis. It fails open when Redis is unreachable.
type RedisLimiter struct {
	RDB       *redis.Client
	Limit     int
	Window    time.Duration
	KeyFn     func(*http.Request) string
	AllowCIDR string
	allowNet  *net.IPNet
}

func NewRedisLimiter(rdb *redis.Client, limit int, window time.Duration, keyFn func(*http.Request) string, allowCIDR string) *RedisLimiter {
	if keyFn == nil {
		keyFn = IPKey
	}
	rl := &RedisLimiter{RDB: rdb, Limit: limit, Window: window, KeyFn: keyFn, AllowCIDR: allowCIDR}
	if allowCIDR != "" {
		if _, n, err := net.ParseCIDR(allowCIDR); err == nil {
			rl.allowNet = n
		}
	}
	return rl
}

func (l *RedisLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.allowNet != nil {
			if ip := net.ParseIP(clientHost(r)); ip != nil && l.allowNet.Contains(ip) {
				next.ServeHTTP(w, r)
				return
			}
		}
		key := "rl:" + l.KeyFn(r)
		ctx := r.Context()
		pipe := l.RDB.TxPipeline()
		cnt := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, l.Window)
		if _, err := pipe.Exec(ctx); err != nil {
			slog.WarnContext(ctx, "rate_limit_redis", slog.String("err", err.Error()))
			next.ServeHTTP(w, r)
			return
		}
		if int(cnt.Val()) > l.Limit {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.Window/time.Second)))
			http.Error(w, "rate_limited", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientHost is the remote host; chi's RealIP has already applied
// X-Real-IP / X-Forwarded-For upstream of the limiters.
func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}

func IPKey(r *http.Request) string { return "ip:" + clientHost(r) }
