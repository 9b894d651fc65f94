package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/pdfscan/pdfscan/pkg/metrics"
	"golang.org/x/time/rate"
)

// limitKey prefers the authenticated subject so users behind one NAT do not
// share a bucket, and falls back to the client IP.
func limitKey(c *gin.Context, prefix string) string {
	if sub := Subject(c); sub != "" {
		return prefix + "sub:" + sub
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return prefix + "ip:" + ip
}

// RateLimitMiddleware enforces an in-process token bucket per key.
// rps = allowed events per second, burst = maximum tokens in bucket.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	var limiters sync.Map // key -> *rate.Limiter
	get := func(key string) *rate.Limiter {
		if v, ok := limiters.Load(key); ok {
			return v.(*rate.Limiter)
		}
		v, _ := limiters.LoadOrStore(key, rate.NewLimiter(rate.Limit(rps), burst))
		return v.(*rate.Limiter)
	}

	return func(c *gin.Context) {
		if !get(limitKey(c, "")).Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
