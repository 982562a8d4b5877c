package security

import (
	"errors"
	"testing"
	"time"

	appauth "motomarket/internal/app/services/auth"
)

func TestJWTIssuerRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := NewJWTIssuer("secret", func() time.Time { return now })
	if err != nil {
		t.Fatalf("NewJWTIssuer: %v", err)
	}
	token, err := issuer.Issue(appauth.TokenClaims{SessionID: "sess-1", UserID: "user-1", ExpiresAt: now.Add(time.Hour)})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.SessionID != "sess-1" || claims.UserID != "user-1" {
		t.Fatalf("claims = %+v", claims)
	}
	if !claims.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expires = %v, want %v", claims.ExpiresAt, now.Add(time.Hour))
	}
}

func TestJWTIssuerRejectsExpiredAndForeignTokens(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	issuer, _ := NewJWTIssuer("secret", func() time.Time { return clock })
	token, err := issuer.Issue(appauth.TokenClaims{SessionID: "s", UserID: "u", ExpiresAt: now.Add(time.Minute)})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other, _ := NewJWTIssuer("another-secret", func() time.Time { return now })
	if _, err := other.Verify(token); !errors.Is(err, appauth.ErrInvalidToken) {
		t.Fatalf("foreign secret: err = %v, want %v", err, appauth.ErrInvalidToken)
	}

	clock = now.Add(2 * time.Minute)
	if _, err := issuer.Verify(token); !errors.Is(err, appauth.ErrInvalidToken) {
		t.Fatalf("expired: err = %v, want %v", err, appauth.ErrInvalidToken)
	}
	if _, err := issuer.Verify("not-a-token"); !errors.Is(err, appauth.ErrInvalidToken) {
		t.Fatalf("garbage: err = %v, want %v", err, appauth.ErrInvalidToken)
	}
}

func TestBcryptHasher(t *testing.T) {
	t.Parallel()

	h := BcryptHasher{Cost: 4}
	hash, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := h.Compare(hash, "correct horse"); err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if err := h.Compare(hash, "wrong"); !errors.Is(err, appauth.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want %v", err, appauth.ErrInvalidCredentials)
	}
}
