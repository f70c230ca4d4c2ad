package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"collateral-backend/internal/shared/metrics"
	"collateral-backend/internal/shared/server/respond"
)

const maxTrackedClients = 10000

// RateLimitRule is a token bucket: Rate tokens per second up to Burst.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	mu       sync.Mutex
	rule     RateLimitRule
	limiters *lru.Cache[string, *rate.Limiter]
	now      func() time.Time
}

// NewRateLimiter builds a limiter. now may be nil.
func NewRateLimiter(rule RateLimitRule, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	cache, _ := lru.New[string, *rate.Limiter](maxTrackedClients)
	return &RateLimiter{rule: rule, limiters: cache, now: now}
}

// Allow consumes a token for key, returning how long to wait when denied.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	if l == nil || l.rule.Rate <= 0 || l.rule.Burst <= 0 {
		return true, 0
	}
	l.mu.Lock()
	lim, ok := l.limiters.Get(key)
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.rule.Rate), l.rule.Burst)
		l.limiters.Add(key, lim)
	}
	l.mu.Unlock()

	now := l.now()
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// RateLimit throttles requests per client IP under the given route label.
func RateLimit(route string, limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := limiter.Allow(route + "|" + c.ClientIP())
		if allowed {
			c.Next()
			return
		}
		metrics.RateLimitRejected.WithLabelValues(route).Inc()
		retryAfterSeconds := int(math.Ceil(retryAfter.Seconds()))
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many requests", gin.H{
			"retryAfterMs": retryAfter.Milliseconds(),
		})
	}
}
