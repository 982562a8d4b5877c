package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appauth "motomarket/internal/app/services/auth"
	domainauth "motomarket/internal/domain/auth"
	domainuser "motomarket/internal/domain/user"
)

const tokenIssuer = "motomarket"

var ErrSecretRequired = errors.New("security: jwt secret is required")

// JWTIssuer signs session tokens with HS256. The subject is the user id and
// the jti is the session id the server can revoke.
type JWTIssuer struct {
	secret []byte
	now    func() time.Time
}

func NewJWTIssuer(secret string, now func() time.Time) (*JWTIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSecretRequired
	}
	if now == nil {
		now = time.Now
	}
	return &JWTIssuer{secret: []byte(secret), now: now}, nil
}

func (i *JWTIssuer) Issue(claims appauth.TokenClaims) (string, error) {
	now := i.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   string(claims.UserID),
		ID:        string(claims.SessionID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt.UTC()),
	})
	return token.SignedString(i.secret)
}

func (i *JWTIssuer) Verify(raw string) (appauth.TokenClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return appauth.TokenClaims{}, appauth.ErrInvalidToken
	}
	var parsed jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return appauth.TokenClaims{}, appauth.ErrInvalidToken
	}
	if parsed.Subject == "" || parsed.ID == "" {
		return appauth.TokenClaims{}, appauth.ErrInvalidToken
	}
	return appauth.TokenClaims{
		SessionID: domainauth.SessionID(parsed.ID),
		UserID:    domainuser.ID(parsed.Subject),
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}, nil
}

var _ appauth.TokenIssuer = (*JWTIssuer)(nil)
