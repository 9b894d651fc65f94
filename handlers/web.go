package handlers

import (
	_ "embed"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

//go:embed static/index.html
var indexHTML string

// RegisterWeb serves the upload page at /. The page polls every
// pollIntervalMS milliseconds and gives up after maxAttempts polls.
func RegisterWeb(r gin.IRouter, pollIntervalMS int64, maxAttempts int) {
	page := strings.NewReplacer(
		"{{POLL_INTERVAL_MS}}", strconv.FormatInt(pollIntervalMS, 10),
		"{{POLL_MAX_ATTEMPTS}}", strconv.Itoa(maxAttempts),
	).Replace(indexHTML)

	r.GET("/", func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	})
}
