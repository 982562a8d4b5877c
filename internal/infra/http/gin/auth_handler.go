package ginserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"motomarket/internal/app/dto"
	"motomarket/internal/app/services/auth"
)

type AuthService interface {
	Register(ctx context.Context, params auth.RegisterParams) (*auth.AuthResult, error)
	Login(ctx context.Context, params auth.LoginParams) (*auth.AuthResult, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandler exposes registration and session management and keeps the
// session cookie in sync with the issued token.
type AuthHandler struct {
	Service      AuthService
	Logger       *slog.Logger
	CookieDomain string
	SecureCookie bool
}

type registerRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Password   string `json:"password"`
	WantToSell bool   `json:"wantToSell"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid register payload")
		return
	}
	result, err := h.Service.Register(c.Request.Context(), auth.RegisterParams{
		Email:      req.Email,
		Name:       req.Name,
		Password:   req.Password,
		WantToSell: req.WantToSell,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.setSessionCookie(c, result.Token, result.ExpiresAt)
	c.JSON(http.StatusCreated, dto.NewAuthResponse(result.User, result.Token, result.ExpiresAt))
}

func (h AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid login payload")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		badRequest(c, "email and password are required")
		return
	}
	result, err := h.Service.Login(c.Request.Context(), auth.LoginParams{Email: req.Email, Password: req.Password})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.setSessionCookie(c, result.Token, result.ExpiresAt)
	c.JSON(http.StatusOK, dto.NewAuthResponse(result.User, result.Token, result.ExpiresAt))
}

// Logout revokes the current session. Anonymous calls still clear the cookie.
func (h AuthHandler) Logout(c *gin.Context) {
	if p, ok := currentPrincipal(c); ok {
		if err := h.Service.Logout(c.Request.Context(), p.Token); err != nil {
			respondError(c, h.Logger, err)
			return
		}
	}
	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

func (h AuthHandler) Me(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.NewAuthResponse(p.User, p.Token, p.ExpiresAt))
}

func (h AuthHandler) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, maxAge, "/", h.CookieDomain, h.SecureCookie, true)
}

func (h AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", h.CookieDomain, h.SecureCookie, true)
}

var _ AuthHTTP = AuthHandler{}
