package middleware

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/hrygo/netvalue/server/internal/errors"
)

const (
	DefaultRatePerSecond = 10
	DefaultBurst         = 20

	// idleLimiterTTL is how long an unused client limiter is kept.
	idleLimiterTTL = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*clientLimiter
	every  rate.Limit
	burst  int
	now    func() time.Time
}

// NewRateLimiter creates a new rate limiter. Non-positive values fall back to the defaults.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = DefaultRatePerSecond
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &RateLimiter{
		limits: make(map[string]*clientLimiter),
		every:  rate.Limit(perSecond),
		burst:  burst,
		now:    time.Now,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if cl, ok := rl.limits[key]; ok {
		cl.lastSeen = now
		return cl.limiter
	}

	rl.evictIdle(now)
	limiter := rate.NewLimiter(rl.every, rl.burst)
	rl.limits[key] = &clientLimiter{limiter: limiter, lastSeen: now}
	return limiter
}

// evictIdle drops limiters not used within idleLimiterTTL. Caller holds mu.
func (rl *RateLimiter) evictIdle(now time.Time) {
	for key, cl := range rl.limits {
		if now.Sub(cl.lastSeen) > idleLimiterTTL {
			delete(rl.limits, key)
		}
	}
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware rejects requests over the client's rate with RATE_LIMIT_EXCEEDED.
// Clients are keyed by their real IP.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(c.RealIP()) {
				return errors.RateLimitExceeded("too many requests")
			}
			return next(c)
		}
	}
}
