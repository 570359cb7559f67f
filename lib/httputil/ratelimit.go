package httputil

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

type RateLimitConfig struct {
	Window time.Duration
	Max    int
	// use the first X-Forwarded-For address as the client ip
	TrustProxy bool
}

type window struct {
	start time.Time
	hits  int
}

// RateLimiter allows Max requests per Window for each client ip. Windows
// are fixed: a blocked client waits until its window resets.
type RateLimiter struct {
	config RateLimitConfig
	now    func() time.Time

	lock      sync.Mutex
	windows   map[string]*window
	lastSweep time.Time
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.Window <= 0 {
		config.Window = 15 * time.Minute
	}
	if config.Max <= 0 {
		config.Max = 100
	}
	return &RateLimiter{
		config:  config,
		now:     time.Now,
		windows: map[string]*window{},
	}
}

func (l *RateLimiter) clientIp(r *http.Request) string {
	if l.config.TrustProxy {
		forwarded := r.Header.Get("X-Forwarded-For")
		if forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type decision struct {
	allowed   bool
	remaining int
	reset     time.Duration
}

// take counts a hit for ip in its current window.
func (l *RateLimiter) take(ip string) decision {
	l.lock.Lock()
	defer l.lock.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.config.Window {
		for key, w := range l.windows {
			if now.Sub(w.start) >= l.config.Window {
				delete(l.windows, key)
			}
		}
		l.lastSweep = now
	}

	w, ok := l.windows[ip]
	if !ok || now.Sub(w.start) >= l.config.Window {
		w = &window{start: now}
		l.windows[ip] = w
	}
	w.hits++

	return decision{
		allowed:   w.hits <= l.config.Max,
		remaining: max(l.config.Max-w.hits, 0),
		reset:     w.start.Add(l.config.Window).Sub(now),
	}
}

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	windowSeconds := seconds(l.config.Window)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := l.take(l.clientIp(r))
		reset := strconv.Itoa(seconds(d.reset))

		h := w.Header()
		h.Set("RateLimit-Policy", strconv.Itoa(l.config.Max)+";w="+strconv.Itoa(windowSeconds))
		h.Set("RateLimit-Limit", strconv.Itoa(l.config.Max))
		h.Set("RateLimit-Remaining", strconv.Itoa(d.remaining))
		h.Set("RateLimit-Reset", reset)

		if !d.allowed {
			h.Set("Retry-After", reset)
			WriteJSON(w, http.StatusTooManyRequests, J{
				"error":      "Too many requests from this IP, please try again later.",
				"retryAfter": windowSeconds,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
