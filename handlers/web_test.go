package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestWebPage(t *testing.T) {
	g := gin.New()
	RegisterWeb(g, 2000, 150)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.Contains(t, body, "const POLL_INTERVAL_MS = 2000;")
	require.Contains(t, body, "const POLL_MAX_ATTEMPTS = 150;")
	require.NotContains(t, body, "{{")
	require.Contains(t, body, "/api/upload")
}
