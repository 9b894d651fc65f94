package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware.
const (
	ClaimsKey = "claims"
	TokenKey  = "rawToken"
)

// Token is a verified token that can expose its claims.
type Token interface {
	Claims(v interface{}) error
}

// Verifier checks a raw bearer token.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// Denylist reports tokens that were revoked before they expired.
type Denylist interface {
	IsRevoked(ctx context.Context, raw string) (bool, error)
}

// AuthMiddleware verifies Bearer tokens with ver. deny may be nil.
func AuthMiddleware(ver Verifier, deny Denylist) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			msg := "invalid Authorization header"
			if c.GetHeader("Authorization") == "" {
				msg = "missing Authorization header"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		if deny != nil {
			revoked, err := deny.IsRevoked(c.Request.Context(), raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "token check failed"})
				return
			}
			if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
				return
			}
		}

		tok, err := ver.Verify(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
			return
		}

		var claims map[string]interface{}
		if err := tok.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(TokenKey, raw)
		c.Next()
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	scheme, tok, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// Subject returns claims.sub when AuthMiddleware ran before.
func Subject(c *gin.Context) string {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return ""
	}
	cm, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	sub, _ := cm["sub"].(string)
	return sub
}
