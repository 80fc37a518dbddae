package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the per-IP request limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration // idle limiters are dropped after two intervals
}

// DefaultRateLimitConfig allows a browser client polling state plus a burst
// of commands.
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 10,
	Burst:             20,
	CleanupInterval:   5 * time.Minute,
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter hands every client IP its own token bucket.
type IPRateLimiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stop     chan struct{}
	stopOnce sync.Once

	allowed  atomic.Uint64
	rejected atomic.Uint64
}

// NewIPRateLimiter starts the limiter's idle-client sweeper. Call Stop to end it.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	rl := &IPRateLimiter{
		cfg:     cfg,
		clients: make(map[string]*clientLimiter),
		stop:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the sweeper. Safe to call more than once.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *IPRateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.sweep(now.Add(-2 * rl.cfg.CleanupInterval))
		}
	}
}

func (rl *IPRateLimiter) sweep(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// Allow takes one token from ip's bucket.
func (rl *IPRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	c, ok := rl.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = time.Now()
	ok = c.limiter.Allow()
	rl.mu.Unlock()

	if ok {
		rl.allowed.Add(1)
	} else {
		rl.rejected.Add(1)
	}
	return ok
}

// Middleware answers 429 once a client's bucket is empty.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(GetClientIP(r)) {
			RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetStats returns allowed and rejected request counts.
func (rl *IPRateLimiter) GetStats() map[string]uint64 {
	return map[string]uint64{
		"allowed":  rl.allowed.Load(),
		"rejected": rl.rejected.Load(),
	}
}

// GetClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then
// the peer address. The headers are only trustworthy behind a proxy that
// overwrites them.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// WebSocketRateLimiter caps concurrent websocket connections per IP.
type WebSocketRateLimiter struct {
	maxPerIP int

	mu    sync.Mutex
	conns map[string]int

	rejected atomic.Uint64
}

func NewWebSocketRateLimiter(maxPerIP int) *WebSocketRateLimiter {
	return &WebSocketRateLimiter{maxPerIP: maxPerIP, conns: make(map[string]int)}
}

// Allow reserves a connection slot for ip. Pair every true with Release.
func (wrl *WebSocketRateLimiter) Allow(ip string) bool {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()
	if wrl.conns[ip] >= wrl.maxPerIP {
		wrl.rejected.Add(1)
		return false
	}
	wrl.conns[ip]++
	return true
}

// Release frees a slot taken by Allow.
func (wrl *WebSocketRateLimiter) Release(ip string) {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()
	switch n := wrl.conns[ip]; {
	case n > 1:
		wrl.conns[ip] = n - 1
	case n == 1:
		delete(wrl.conns, ip)
	}
}

// GetConnectionCount returns the open connections for ip.
func (wrl *WebSocketRateLimiter) GetConnectionCount(ip string) int {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()
	return wrl.conns[ip]
}

func (wrl *WebSocketRateLimiter) GetStats() map[string]uint64 {
	return map[string]uint64{"rejected": wrl.rejected.Load()}
}

// AllowedOrigins are accepted for websocket upgrades on any port, on top of
// the configured CORS origins.
var AllowedOrigins = []string{
	"http://localhost",
	"http://127.0.0.1",
}

// IsAllowedOrigin checks origin against AllowedOrigins and extra. Entries in
// extra may hold one "*" wildcard, as in the CORS configuration.
func IsAllowedOrigin(origin string, extra []string) bool {
	if origin == "" {
		return false
	}
	for _, local := range AllowedOrigins {
		if origin == local || strings.HasPrefix(origin, local+":") {
			return true
		}
	}
	for _, pattern := range extra {
		if matchOrigin(pattern, origin) {
			return true
		}
	}
	return false
}

func matchOrigin(pattern, origin string) bool {
	prefix, suffix, wild := strings.Cut(pattern, "*")
	if !wild {
		return pattern == origin
	}
	return len(origin) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix)
}
