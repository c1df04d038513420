package httpx

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type rateLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware keeps one token bucket per client address.
type RateLimitMiddleware struct {
	limiters map[string]*rateLimiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	cleanup  time.Duration
}

// NewRateLimitMiddleware starts a janitor that stops when ctx is done.
func NewRateLimitMiddleware(ctx context.Context, rps float64, burst int) *RateLimitMiddleware {
	rl := &RateLimitMiddleware{
		limiters: make(map[string]*rateLimiter),
		rate:     rate.Limit(rps),
		burst:    burst,
		cleanup:  5 * time.Minute,
	}

	go rl.cleanupLimiters(ctx)
	return rl
}

func (rl *RateLimitMiddleware) cleanupLimiters(ctx context.Context) {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.mu.Lock()
			for key, limiter := range rl.limiters {
				if time.Since(limiter.lastSeen) > rl.cleanup {
					delete(rl.limiters, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *RateLimitMiddleware) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = &rateLimiter{
			limiter:  rate.NewLimiter(rl.rate, rl.burst),
			lastSeen: time.Now(),
		}
		rl.limiters[key] = limiter
	} else {
		limiter.lastSeen = time.Now()
	}

	return limiter.limiter
}

// ClientIP prefers the first X-Forwarded-For hop, then RemoteAddr without port.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *RateLimitMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := rl.getLimiter(ClientIP(r))
		if !limiter.Allow() {
			JSONError(w, r, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
