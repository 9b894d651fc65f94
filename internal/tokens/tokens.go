package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pdfscan/pdfscan/pkg/middleware"
)

var ErrNoSecret = errors.New("tokens: empty signing secret")

// Sign creates an HS256 access token for sub that expires after ttl.
func Sign(secret, sub string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": sub,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Verifier{secret: []byte(secret)}, nil
}

type mapToken jwt.MapClaims

func (t mapToken) Claims(v interface{}) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (v *Verifier) Verify(_ context.Context, raw string) (middleware.Token, error) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	if exp, err := claims.GetExpirationTime(); err != nil || exp == nil {
		return nil, errors.New("token has no expiry")
	}
	return mapToken(claims), nil
}

// Expiry reads the exp claim from claims decoded by the auth middleware.
// It returns the zero time when the claim is missing.
func Expiry(claims map[string]interface{}) time.Time {
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0)
	case json.Number:
		if n, err := exp.Int64(); err == nil {
			return time.Unix(n, 0)
		}
	case int64:
		return time.Unix(exp, 0)
	}
	return time.Time{}
}
