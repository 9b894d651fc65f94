package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/pdfscan/pdfscan/internal/revocation"
	"github.com/pdfscan/pdfscan/internal/tokens"
	"github.com/pdfscan/pdfscan/pkg/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testSecret = "handlers-test-secret-0123456789abcdef"

func authedEngine(t *testing.T, rev Revoker, deny middleware.Denylist) *gin.Engine {
	t.Helper()
	ver, err := tokens.NewVerifier(testSecret)
	require.NoError(t, err)
	g := gin.New()
	NewAuthHandler(rev).Register(g, middleware.AuthMiddleware(ver, deny))
	return g
}

func bearer(method, path, tok string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	return req
}

func TestRevokeThenRejected(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	deny := revocation.New(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	g := authedEngine(t, deny, deny)

	tok, err := tokens.Sign(testSecret, "user-1", time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, bearer(http.MethodGet, "/api/auth/me", tok))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "user-1")

	w = httptest.NewRecorder()
	g.ServeHTTP(w, bearer(http.MethodPost, "/api/auth/revoke", tok))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	g.ServeHTTP(w, bearer(http.MethodGet, "/api/auth/me", tok))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "token revoked")
}

func TestRevokeWithoutRedis(t *testing.T) {
	g := authedEngine(t, nil, nil)
	tok, _ := tokens.Sign(testSecret, "user-1", time.Minute)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, bearer(http.MethodPost, "/api/auth/revoke", tok))
	require.Equal(t, http.StatusNotImplemented, w.Code)
}

type brokenRevoker struct{}

func (brokenRevoker) Revoke(context.Context, string, time.Time) error { return errors.New("redis down") }

func TestRevokeFailure(t *testing.T) {
	g := authedEngine(t, brokenRevoker{}, nil)
	tok, _ := tokens.Sign(testSecret, "user-1", time.Minute)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, bearer(http.MethodPost, "/api/auth/revoke", tok))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRevokeRequiresToken(t *testing.T) {
	g := authedEngine(t, nil, nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/revoke", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
