package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domainauth "motomarket/internal/domain/auth"
	domainuser "motomarket/internal/domain/user"
	"motomarket/internal/infra/storage/memory"
)

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return ErrInvalidCredentials
	}
	return nil
}

// pipeIssuer encodes claims as "session|user" and never checks expiry, so the
// service's own expiry handling is what the tests observe.
type pipeIssuer struct{}

func (pipeIssuer) Issue(claims TokenClaims) (string, error) {
	return string(claims.SessionID) + "|" + string(claims.UserID), nil
}

func (pipeIssuer) Verify(token string) (TokenClaims, error) {
	session, user, ok := strings.Cut(token, "|")
	if !ok || session == "" || user == "" {
		return TokenClaims{}, ErrInvalidToken
	}
	return TokenClaims{SessionID: domainauth.SessionID(session), UserID: domainuser.ID(user)}, nil
}

func newService(now *time.Time) *Service {
	factory := memory.NewFactory(memory.NewStore())
	return &Service{
		Users:      factory.Users(),
		Sessions:   memory.NewSessionStore(),
		Passwords:  plainHasher{},
		Tokens:     pipeIssuer{},
		SessionTTL: time.Hour,
		Now:        func() time.Time { return *now },
	}
}

func TestRegisterLoginResolveLogout(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	svc := newService(&now)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterParams{Email: " Rider@Example.com ", Name: "Rider", Password: "correct horse", WantToSell: true})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.User.Email != "rider@example.com" {
		t.Fatalf("email = %q", reg.User.Email)
	}
	if !reg.User.HasRole(domainuser.RoleBuyer) || !reg.User.HasRole(domainuser.RoleSeller) {
		t.Fatalf("roles = %v", reg.User.Roles)
	}
	if !reg.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expires = %v", reg.ExpiresAt)
	}

	login, err := svc.Login(ctx, LoginParams{Email: "RIDER@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.Token == reg.Token {
		t.Fatal("login reused the registration session")
	}

	resolved, err := svc.ResolveToken(ctx, login.Token)
	if err != nil {
		t.Fatalf("ResolveToken: %v", err)
	}
	if resolved.User.ID != reg.User.ID {
		t.Fatalf("resolved user = %q, want %q", resolved.User.ID, reg.User.ID)
	}

	if err := svc.Logout(ctx, login.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.ResolveToken(ctx, login.Token); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Fatalf("resolve after logout err = %v", err)
	}
	if _, err := svc.ResolveToken(ctx, reg.Token); err != nil {
		t.Fatalf("other session was revoked: %v", err)
	}
	if err := svc.Logout(ctx, "garbage"); err != nil {
		t.Fatalf("logout with junk token: %v", err)
	}
}

func TestRegisterRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	t.Parallel()

	now := time.Now()
	svc := newService(&now)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterParams{Email: "a@example.com", Name: "A", Password: "short"}); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("short password err = %v", err)
	}
	if _, err := svc.Register(ctx, RegisterParams{Email: "a@example.com", Name: "A", Password: "long enough"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, RegisterParams{Email: "A@EXAMPLE.COM", Name: "B", Password: "long enough"}); !errors.Is(err, domainuser.ErrEmailAlreadyUsed) {
		t.Fatalf("duplicate err = %v", err)
	}
	if _, err := svc.Register(ctx, RegisterParams{Email: "not-an-email", Name: "C", Password: "long enough"}); !errors.Is(err, domainuser.ErrEmailInvalid) {
		t.Fatalf("invalid email err = %v", err)
	}
}

func TestLoginHidesWhichFieldWasWrong(t *testing.T) {
	t.Parallel()

	now := time.Now()
	svc := newService(&now)
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterParams{Email: "a@example.com", Name: "A", Password: "long enough"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for _, params := range []LoginParams{
		{Email: "a@example.com", Password: "wrong password"},
		{Email: "nobody@example.com", Password: "long enough"},
		{Email: "", Password: "long enough"},
	} {
		if _, err := svc.Login(ctx, params); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Login(%q) err = %v", params.Email, err)
		}
	}
}

func TestResolveTokenDropsExpiredSessions(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	svc := newService(&now)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterParams{Email: "a@example.com", Name: "A", Password: "long enough"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.ResolveToken(ctx, ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty token err = %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := svc.ResolveToken(ctx, reg.Token); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Fatalf("expired err = %v", err)
	}
	session, _, _ := strings.Cut(reg.Token, "|")
	if _, err := svc.Sessions.Get(ctx, domainauth.SessionID(session)); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Fatalf("expired session kept: %v", err)
	}
}
