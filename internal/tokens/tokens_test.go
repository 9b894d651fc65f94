package tokens

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "test-secret-32-bytes-should-be-long-enough"

func TestSign_ValidAndClaims(t *testing.T) {
	tokenStr, err := Sign(secret, "user-123", 2*time.Minute)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}

	parsed, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("claims type assertion failed")
	}
	if claims["sub"] != "user-123" {
		t.Fatalf("unexpected sub claim: got=%v", claims["sub"])
	}
}

func TestSign_EmptySecret(t *testing.T) {
	if _, err := Sign("", "x", time.Minute); err != ErrNoSecret {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
	if _, err := NewVerifier(""); err != ErrNoSecret {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

func TestVerifier_RoundTrip(t *testing.T) {
	v, err := NewVerifier(secret)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := Sign(secret, "scanctl", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	tok, err := v.Verify(context.Background(), raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	var claims map[string]interface{}
	if err := tok.Claims(&claims); err != nil {
		t.Fatalf("claims: %v", err)
	}
	if claims["sub"] != "scanctl" {
		t.Fatalf("unexpected sub: %v", claims["sub"])
	}
	exp := Expiry(claims)
	if exp.Before(time.Now()) || exp.After(time.Now().Add(2*time.Minute)) {
		t.Fatalf("unexpected expiry %v", exp)
	}
}

func TestVerifier_WrongSecretFails(t *testing.T) {
	v, _ := NewVerifier("secret-two-32-bytes-yyyyyyyyyyyyyyyy")
	raw, _ := Sign("secret-one-32-bytes-xxxxxxxxxxxxxxxx", "u", time.Minute)
	if _, err := v.Verify(context.Background(), raw); err == nil {
		t.Fatalf("expected signature failure")
	}
}

func TestVerifier_Expired(t *testing.T) {
	v, _ := NewVerifier(secret)
	raw, _ := Sign(secret, "u", -time.Minute)
	_, err := v.Verify(context.Background(), raw)
	if err == nil || !strings.Contains(err.Error(), "expired") {
		t.Fatalf("expected expiry error, got %v", err)
	}
}

func TestVerifier_RejectsOtherAlgorithms(t *testing.T) {
	v, _ := NewVerifier(secret)
	jt := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(time.Minute).Unix()})
	raw, err := jt.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Verify(context.Background(), raw); err == nil {
		t.Fatalf("expected HS512 token to be rejected")
	}
}

func TestExpiry_Missing(t *testing.T) {
	if !Expiry(map[string]interface{}{}).IsZero() {
		t.Fatalf("expected zero time")
	}
}
