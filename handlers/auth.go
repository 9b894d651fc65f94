package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pdfscan/pdfscan/internal/revocation"
	"github.com/pdfscan/pdfscan/internal/tokens"
	"github.com/pdfscan/pdfscan/pkg/logger"
	"github.com/pdfscan/pdfscan/pkg/middleware"
)

// Revoker denylists a bearer token until it expires.
type Revoker interface {
	Revoke(ctx context.Context, raw string, expiresAt time.Time) error
}

// AuthHandler serves the token revocation endpoint. revoker may be nil when
// no Redis is configured.
type AuthHandler struct {
	revoker Revoker
}

func NewAuthHandler(revoker Revoker) *AuthHandler {
	return &AuthHandler{revoker: revoker}
}

// Register mounts /api/auth behind auth, which must be AuthMiddleware.
func (h *AuthHandler) Register(r gin.IRouter, auth gin.HandlerFunc) {
	a := r.Group("/api/auth", auth)
	a.POST("/revoke", h.Revoke)
	a.GET("/me", h.Me)
}

// Revoke denylists the caller's own bearer token.
func (h *AuthHandler) Revoke(c *gin.Context) {
	if h.revoker == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "token revocation requires Redis"})
		return
	}
	raw := c.GetString(middleware.TokenKey)
	claims, _ := c.Get(middleware.ClaimsKey)
	cm, _ := claims.(map[string]interface{})

	err := h.revoker.Revoke(c.Request.Context(), raw, tokens.Expiry(cm))
	if err != nil && !errors.Is(err, revocation.ErrAlreadyExpired) {
		logger.Errorf("revoke token for %q: %v", middleware.Subject(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}

// Me echoes the verified claims.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, _ := c.Get(middleware.ClaimsKey)
	c.JSON(http.StatusOK, gin.H{"claims": claims})
}
