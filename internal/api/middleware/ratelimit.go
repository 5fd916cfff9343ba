package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/donorkit/styleforge/pkg/httputil"
)

// RateCounter is a shared fixed-window request counter, normally Redis
type RateCounter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
	RateLimitReset(ctx context.Context, key string) (time.Duration, error)
}

// RateLimitMiddleware limits requests per client IP. It counts in the shared
// RateCounter when one is configured and falls back to an in-process token
// bucket per IP when the counter is missing or failing.
type RateLimitMiddleware struct {
	counter RateCounter
	limit   int
	window  time.Duration
	scope   string
	logger  *zap.Logger

	now       func() time.Time
	mu        sync.Mutex
	local     map[string]*localClient
	lastSweep time.Time
}

// maxLocalClients caps the fallback limiter table. Past it the least
// recently seen client is dropped.
const maxLocalClients = 10000

type localClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimitMiddleware creates a rate limiter allowing limit requests per
// window. counter may be nil.
func NewRateLimitMiddleware(counter RateCounter, scope string, limit int, window time.Duration, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		counter: counter,
		limit:   limit,
		window:  window,
		scope:   scope,
		logger:  logger,
		now:     time.Now,
		local:   make(map[string]*localClient),
	}
}

// Handler returns the middleware handler
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		key := m.scope + ":ip:" + ip

		allowed, remaining, reset := m.check(r.Context(), key, ip)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			retryAfter := int(math.Ceil(reset.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.JSONError(w, http.StatusTooManyRequests, httputil.CodeRateLimited,
				"Too many analysis requests. Please wait before trying again.",
				map[string]any{"retryAfter": retryAfter},
			)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) check(ctx context.Context, key, ip string) (bool, int, time.Duration) {
	if m.counter != nil {
		allowed, count, err := m.counter.CheckRateLimit(ctx, key, m.limit, m.window)
		if err == nil {
			reset := m.window
			if !allowed {
				if ttl, err := m.counter.RateLimitReset(ctx, key); err == nil && ttl > 0 {
					reset = ttl
				}
			}
			return allowed, max(m.limit-count, 0), reset
		}
		m.logger.Warn("rate limit counter unavailable, using local limiter", zap.Error(err))
	}

	now := m.now()
	limiter := m.localLimiter(ip, now)
	if !limiter.AllowN(now, 1) {
		return false, 0, m.window / time.Duration(max(m.limit, 1))
	}
	return true, int(limiter.TokensAt(now)), 0
}

func (m *RateLimitMiddleware) localLimiter(ip string, now time.Time) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.local[ip]; ok {
		c.lastSeen = now
		return c.limiter
	}

	if now.Sub(m.lastSweep) >= m.window || len(m.local) >= maxLocalClients {
		m.sweepLocked(now)
	}

	every := m.window / time.Duration(max(m.limit, 1))
	c := &localClient{limiter: rate.NewLimiter(rate.Every(every), m.limit), lastSeen: now}
	m.local[ip] = c
	return c.limiter
}

// sweepLocked drops clients idle for a full window. Their buckets have
// refilled by then, so a fresh limiter behaves the same.
func (m *RateLimitMiddleware) sweepLocked(now time.Time) {
	m.lastSweep = now
	for ip, c := range m.local {
		if now.Sub(c.lastSeen) >= m.window {
			delete(m.local, ip)
		}
	}

	for len(m.local) >= maxLocalClients {
		var oldest string
		var oldestSeen time.Time
		for ip, c := range m.local {
			if oldest == "" || c.lastSeen.Before(oldestSeen) {
				oldest, oldestSeen = ip, c.lastSeen
			}
		}
		delete(m.local, oldest)
	}
}

// ClientIP returns the request's remote IP without port. chi's RealIP
// middleware has already applied forwarding headers.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
