// Package ratelimit protects the gateway's data plane from abusive
// clients with a per-IP token bucket. This is ambient infrastructure,
// not a gateway pipeline invariant: a throttled request never reaches
// route matching and is reported as 429, outside the pipeline's
// documented 400/405/502 contract.
package ratelimit

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterConfig tunes the per-IP bucket.
type LimiterConfig struct {
	RPS   rate.Limit
	Burst int
}

// IPRateLimiter holds one token bucket per source IP.
type IPRateLimiter struct {
	ips    sync.Map
	config LimiterConfig
}

// New starts an IPRateLimiter with a background eviction loop so
// long-running processes don't accumulate one bucket per IP forever.
func New(rps rate.Limit, burst int) *IPRateLimiter {
	l := &IPRateLimiter{config: LimiterConfig{RPS: rps, Burst: burst}}
	go l.evictLoop()
	return l
}

func (l *IPRateLimiter) limiterFor(ip string) *rate.Limiter {
	if existing, ok := l.ips.Load(ip); ok {
		return existing.(*rate.Limiter)
	}
	fresh := rate.NewLimiter(l.config.RPS, l.config.Burst)
	actual, _ := l.ips.LoadOrStore(ip, fresh)
	return actual.(*rate.Limiter)
}

func (l *IPRateLimiter) evictLoop() {
	for {
		time.Sleep(10 * time.Minute)
		l.ips.Range(func(key, _ interface{}) bool {
			l.ips.Delete(key)
			return true
		})
	}
}

// Middleware enforces the per-IP bucket ahead of route matching.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.limiterFor(ip).Allow() {
			slog.Warn("gateway: rate limit exceeded", "ip", ip, "path", r.URL.Path)
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
