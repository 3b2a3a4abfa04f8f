package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
	"github.com/gogotex/gogotex/backend/crud-service/pkg/metrics"
)

var rateLimited = apperrors.Record{Name: "TooManyRequests", Message: "Rate limit exceeded", StatusCode: http.StatusTooManyRequests}

// limiterKey prefers the authenticated subject (per-user NAT-friendly
// limiting) and falls back to the client IP.
func limiterKey(c *gin.Context) string {
	if cm, ok := Claims(c); ok {
		if sub, ok := cm["sub"].(string); ok && sub != "" {
			return "sub:" + sub
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket per-key limit.
// rps = allowed events per second, burst = maximum tokens in bucket.
// Each call owns its limiter store.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	var store sync.Map // map[string]*rate.Limiter
	get := func(key string) *rate.Limiter {
		if v, ok := store.Load(key); ok {
			return v.(*rate.Limiter)
		}
		v, _ := store.LoadOrStore(key, rate.NewLimiter(rate.Limit(rps), burst))
		return v.(*rate.Limiter)
	}
	return func(c *gin.Context) {
		if !get(limiterKey(c)).Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(rateLimited.StatusCode, rateLimited)
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
