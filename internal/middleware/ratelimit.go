package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rate limiter tuning. Login and registration are the abuse targets — the
// limits only need to be tight enough to make credential stuffing and
// signup flooding impractical, not to throttle a human retyping a password.
const (
	authRequestsPerSecond = 1
	authBurst             = 5
	clientTTL             = 10 * time.Minute
	cleanupInterval       = time.Minute
)

type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a per-IP token bucket. Each IP gets its own bucket;
// stale buckets are evicted by a background goroutine so the map doesn't
// grow without bound.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateLimitClient
	rps     rate.Limit
	burst   int
}

// NewAuthRateLimiter creates a limiter sized for the auth endpoints and
// starts its cleanup goroutine. The goroutine stops when ctx is cancelled.
func NewAuthRateLimiter(ctx context.Context) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*rateLimitClient),
		rps:     authRequestsPerSecond,
		burst:   authBurst,
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.mu.Lock()
				for ip, client := range rl.clients {
					if time.Since(client.lastSeen) > clientTTL {
						delete(rl.clients, ip)
					}
				}
				rl.mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	return rl
}

// Limit is the middleware. Requests over the budget get a JSON 429.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		rl.mu.Lock()
		client, ok := rl.clients[ip]
		if !ok {
			client = &rateLimitClient{
				limiter: rate.NewLimiter(rl.rps, rl.burst),
			}
			rl.clients[ip] = client
		}
		client.lastSeen = time.Now()
		allowed := client.limiter.Allow()
		rl.mu.Unlock()

		if !allowed {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limited","message":"too many requests, slow down"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the address chi's RealIP middleware rewrote into
// RemoteAddr, stripping the port when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
