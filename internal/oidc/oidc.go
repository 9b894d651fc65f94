// Package oidc verifies bearer tokens issued by a Keycloak realm.
package oidc

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pdfscan/pdfscan/pkg/middleware"
)

// Verifier wraps the discovered provider's ID token verifier.
type Verifier struct {
	issuer   string
	verifier *oidc.IDTokenVerifier
}

// Issuer builds the realm issuer URL. An empty realm means baseURL already
// points at the realm.
func Issuer(baseURL, realm string) string {
	base := strings.TrimRight(baseURL, "/")
	if realm == "" || strings.HasSuffix(base, "/realms/"+realm) {
		return base
	}
	return base + "/realms/" + realm
}

// NewVerifier discovers the provider at issuer. Tokens must carry clientID
// in their audience.
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider %s: %w", issuer, err)
	}
	return &Verifier{
		issuer:   issuer,
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}

func (v *Verifier) Issuer() string { return v.issuer }
