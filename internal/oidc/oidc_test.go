package oidc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer(t *testing.T) {
	assert.Equal(t, "http://kc:8080/realms/pdfscan", Issuer("http://kc:8080/", "pdfscan"))
	assert.Equal(t, "http://kc:8080/realms/pdfscan", Issuer("http://kc:8080/realms/pdfscan", "pdfscan"))
	assert.Equal(t, "http://kc:8080/realms/x", Issuer("http://kc:8080/realms/x", ""))
}

func TestNewVerifierDiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err := NewVerifier(context.Background(), srv.URL, "client")
	require.Error(t, err)
}

func unsignedJWT(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	hdr := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	body, err := json.Marshal(claims)
	require.NoError(t, err)
	return hdr + "." + base64.RawURLEncoding.EncodeToString(body) + ".sig"
}

func TestInsecureVerifier(t *testing.T) {
	v := NewInsecureVerifier()
	raw := unsignedJWT(t, map[string]interface{}{"sub": "dev", "exp": time.Now().Add(time.Hour).Unix()})

	tok, err := v.Verify(context.Background(), raw)
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	assert.Equal(t, "dev", claims["sub"])
}

func TestInsecureVerifierRejects(t *testing.T) {
	v := NewInsecureVerifier()
	_, err := v.Verify(context.Background(), "not-a-jwt")
	require.Error(t, err)

	expired := unsignedJWT(t, map[string]interface{}{"sub": "dev", "exp": time.Now().Add(-time.Hour).Unix()})
	_, err = v.Verify(context.Background(), expired)
	require.Error(t, err)
}
