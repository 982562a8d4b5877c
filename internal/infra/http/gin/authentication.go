package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"motomarket/internal/app/services/auth"
	domainauth "motomarket/internal/domain/auth"
	domainuser "motomarket/internal/domain/user"
)

const (
	principalContextKey = "motomarket.principal"
	SessionCookieName   = "motomarket_session"
)

type principal struct {
	User      *domainuser.User
	Token     string
	ExpiresAt time.Time
}

func (p principal) ID() string { return string(p.User.ID) }

// TokenResolver maps a signed token to its live session.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*auth.ResolveResult, error)
}

// AuthMiddleware attaches the caller to the request when a valid session
// token is presented in a bearer header or the session cookie. The bearer
// token is tried first; a stale one falls back to the cookie. Anonymous
// requests pass through; handlers decide whether auth is required.
type AuthMiddleware struct {
	Service TokenResolver
	Logger  *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	if m.Service == nil {
		c.Next()
		return
	}
	for _, token := range requestTokens(c) {
		resolved, err := m.Service.ResolveToken(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, domainauth.ErrSessionNotFound) && !errors.Is(err, auth.ErrInvalidToken) && m.Logger != nil {
				m.Logger.Warn("token resolution failed", "error", err)
			}
			continue
		}
		setPrincipal(c, principal{User: resolved.User, Token: token, ExpiresAt: resolved.Session.ExpiresAt})
		break
	}
	c.Next()
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok && p.User != nil
}

// requireAuth writes 401 and reports false for anonymous callers.
func requireAuth(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	return p, true
}

// viewerID returns the caller id or "" for anonymous requests.
func viewerID(c *gin.Context) string {
	if p, ok := currentPrincipal(c); ok {
		return p.ID()
	}
	return ""
}

// requestTokens lists the presented tokens in resolution order, bearer first.
func requestTokens(c *gin.Context) []string {
	var tokens []string
	if token := extractBearerToken(c.GetHeader("Authorization")); token != "" {
		tokens = append(tokens, token)
	}
	if cookie, err := c.Cookie(SessionCookieName); err == nil {
		if token := strings.TrimSpace(cookie); token != "" && (len(tokens) == 0 || tokens[0] != token) {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
