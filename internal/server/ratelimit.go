package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"resumeforensics/internal/errors"
	"resumeforensics/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key. Buckets idle for longer
// than the eviction window are dropped by a background sweep.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	window   time.Duration
	done     chan struct{}
	once     sync.Once
	logger   *errors.Logger
}

// NewRateLimiter allows requestsPerMin per key with bursts up to burstCapacity.
func NewRateLimiter(requestsPerMin, burstCapacity int, window time.Duration, logger *errors.Logger) *RateLimiter {
	if burstCapacity < 1 {
		burstCapacity = 1
	}
	if window <= 0 {
		window = 10 * time.Minute
	}

	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(float64(requestsPerMin) / 60.0),
		burst:    burstCapacity,
		window:   window,
		done:     make(chan struct{}),
		logger:   logger,
	}
	go rl.sweep()
	return rl
}

// Reserve takes a token for key. When none is available it returns false and
// how long the client should wait; the token is not consumed.
func (rl *RateLimiter) Reserve(key string) (bool, time.Duration) {
	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	res := v.limiter.Reserve()
	if !res.OK() {
		return false, rl.window
	}
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return false, delay
	}
	return true, 0
}

func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]any{
		"active_limiters": len(rl.visitors),
		"rate_per_minute": float64(rl.rate) * 60.0,
		"burst_capacity":  rl.burst,
		"eviction_window": rl.window.String(),
	}
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			rl.evictIdle(now)
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.window {
			delete(rl.visitors, key)
		}
	}
	rl.logger.Debug("Rate limiter sweep completed", "remaining_limiters", len(rl.visitors))
}

// Close stops the background sweep.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.done) })
}

// createRateLimitMiddleware rejects requests over the per-key budget with 429
// and a Retry-After hint, recording each rejection as a rate_limit_hit event.
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimit == nil || !s.RateLimit.Enabled || s.RateLimiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if key == "" {
				next(w, r)
				return
			}

			ok, wait := s.RateLimiter.Reserve(key)
			if !ok {
				s.Logger.Info("Rate limit exceeded",
					"key", maskAPIKey(key),
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r))
				om.RecordEvent(r.Context(), observability.EventRateLimitHit, true,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

// getRateLimitKey buckets by API key when enabled and present, then by the
// selected user, then by client IP.
func getRateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if apiKey := requestAPIKey(r); apiKey != "" {
			return "api:" + apiKey
		}
	}
	if !byIP {
		return ""
	}
	if user := strings.ToLower(strings.TrimSpace(r.Header.Get(userHeader))); user != "" {
		return "user:" + user + "|" + getClientIP(r)
	}
	return "ip:" + getClientIP(r)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for ip := range strings.SplitSeq(xff, ",") {
			if ip = strings.TrimSpace(ip); net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
