package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiter is one client's token bucket and when it was last used.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter allows each client max requests per window, refilled
// continuously.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	window time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

// NewRateLimiter returns a limiter of max requests per window per client.
func NewRateLimiter(window time.Duration, max int, logger *slog.Logger) *RateLimiter {
	if window <= 0 {
		window = 15 * time.Minute
	}
	if max <= 0 {
		max = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		limit:   rate.Limit(float64(max) / window.Seconds()),
		burst:   max,
		window:  window,
		logger:  logger.With("component", "ratelimit"),
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

func (l *RateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.clients[key]; ok {
		c.lastSeen = l.now()
		return c.limiter
	}
	c := &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: l.now()}
	l.clients[key] = c
	return c.limiter
}

// Handler rejects requests over the client's budget with 429.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		key := clientIP(r)
		lim := l.get(key)

		res := lim.ReserveN(l.now(), 1)
		if delay := res.DelayFrom(l.now()); delay > 0 {
			res.CancelAt(l.now())
			l.logger.Warn("rate limit exceeded", "client", key, "path", r.URL.Path)

			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"message": "Too many requests from this IP, please try again later.",
			})
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.burst))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, int(lim.TokensAt(l.now())))))
		next.ServeHTTP(w, r)
	})
}

// CleanupStale forgets clients idle for a whole window before the given
// time; their buckets would be full again anyway.
func (l *RateLimiter) CleanupStale(before time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	cutoff := before.Add(-l.window)
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Clients is the number of tracked clients.
func (l *RateLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
