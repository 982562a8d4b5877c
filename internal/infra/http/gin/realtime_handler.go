package ginserver

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Hub attaches an upgraded socket to a user and blocks until it closes.
type Hub interface {
	Serve(userID string, ws *websocket.Conn)
}

// RealtimeHandler upgrades authenticated requests to a websocket that
// receives live notifications. Browsers cannot set headers on the upgrade
// request, so a ?token= query parameter is accepted as well.
type RealtimeHandler struct {
	Hub      Hub
	Tokens   TokenResolver
	Origins  []string
	Logger   *slog.Logger
	upgrader *websocket.Upgrader
}

func NewRealtimeHandler(hub Hub, tokens TokenResolver, origins []string, logger *slog.Logger) RealtimeHandler {
	h := RealtimeHandler{Hub: hub, Tokens: tokens, Origins: origins, Logger: logger}
	h.upgrader = &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(origins),
	}
	return h
}

func (h RealtimeHandler) Connect(c *gin.Context) {
	userID := viewerID(c)
	if userID == "" {
		userID = h.resolveQueryToken(c)
	}
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return
	}
	upgrader := h.upgrader
	if upgrader == nil {
		upgrader = &websocket.Upgrader{CheckOrigin: originChecker(h.Origins)}
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		}
		return
	}
	h.Hub.Serve(userID, ws)
}

func (h RealtimeHandler) resolveQueryToken(c *gin.Context) string {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" || h.Tokens == nil {
		return ""
	}
	resolved, err := h.Tokens.ResolveToken(c.Request.Context(), token)
	if err != nil {
		return ""
	}
	return string(resolved.User.ID)
}

// originChecker allows same-host requests, requests without an Origin
// header and any origin in the allow list. "*" allows everything.
func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	wildcard := false
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			wildcard = true
		}
		allowed[strings.ToLower(origin)] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		if _, ok := allowed[strings.ToLower(strings.TrimRight(origin, "/"))]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

var _ RealtimeHTTP = RealtimeHandler{}
