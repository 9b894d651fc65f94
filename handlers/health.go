package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// RegisterHealth mounts /health (liveness) and /ready (every check passes).
func RegisterHealth(r gin.IRouter, started time.Time, checks map[string]Check) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		ready := true
		deps := make(map[string]bool, len(checks))
		for name, check := range checks {
			ok := check(ctx) == nil
			deps[name] = ok
			ready = ready && ok
		}

		body := gin.H{"status": "ready", "deps": deps, "uptime": time.Since(started).Round(time.Second).String()}
		if !ready {
			body["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	})
}
