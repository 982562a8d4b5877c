package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"motomarket/internal/infra/config"
	"motomarket/internal/infra/obs"
)

type AuthHTTP interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Me(c *gin.Context)
}

type UserHTTP interface {
	Profile(c *gin.Context)
}

type ListingHTTP interface {
	Catalog(c *gin.Context)
	Get(c *gin.Context)
	Mine(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Remove(c *gin.Context)
	MarkSold(c *gin.Context)
	UploadPhoto(c *gin.Context)
}

type FavoriteHTTP interface {
	List(c *gin.Context)
	Add(c *gin.Context)
	Remove(c *gin.Context)
}

type SavedSearchHTTP interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Delete(c *gin.Context)
	Results(c *gin.Context)
}

type ChatHTTP interface {
	ListConversations(c *gin.Context)
	StartConversation(c *gin.Context)
	ListMessages(c *gin.Context)
	SendMessage(c *gin.Context)
	MarkRead(c *gin.Context)
}

type NotificationHTTP interface {
	List(c *gin.Context)
	MarkRead(c *gin.Context)
	MarkAllRead(c *gin.Context)
}

type RealtimeHTTP interface {
	Connect(c *gin.Context)
}

type Handlers struct {
	Auth           AuthHTTP
	Users          UserHTTP
	Listings       ListingHTTP
	Favorites      FavoriteHTTP
	SavedSearches  SavedSearchHTTP
	Chat           ChatHTTP
	Notifications  NotificationHTTP
	Realtime       RealtimeHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine with every route of the public API.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Users != nil {
		api.GET("/users/:id", h.Users.Profile)
	}
	if h.Listings != nil {
		api.GET("/listings", h.Listings.Catalog)
		api.GET("/listings/:id", h.Listings.Get)
		api.POST("/listings", h.Listings.Create)
		api.PUT("/listings/:id", h.Listings.Update)
		api.DELETE("/listings/:id", h.Listings.Remove)
		api.POST("/listings/:id/sold", h.Listings.MarkSold)
		api.POST("/listings/:id/photos", h.Listings.UploadPhoto)
		api.GET("/me/listings", h.Listings.Mine)
	}
	if h.Favorites != nil {
		api.GET("/favorites", h.Favorites.List)
		api.POST("/favorites", h.Favorites.Add)
		api.DELETE("/favorites/:listing_id", h.Favorites.Remove)
	}
	if h.SavedSearches != nil {
		api.GET("/saved-searches", h.SavedSearches.List)
		api.POST("/saved-searches", h.SavedSearches.Create)
		api.DELETE("/saved-searches/:id", h.SavedSearches.Delete)
		api.GET("/saved-searches/:id/results", h.SavedSearches.Results)
	}
	if h.Chat != nil {
		api.GET("/conversations", h.Chat.ListConversations)
		api.POST("/conversations", h.Chat.StartConversation)
		api.GET("/conversations/:id/messages", h.Chat.ListMessages)
		api.POST("/conversations/:id/messages", h.Chat.SendMessage)
		api.POST("/conversations/:id/read", h.Chat.MarkRead)
	}
	if h.Notifications != nil {
		api.GET("/notifications", h.Notifications.List)
		api.POST("/notifications/read-all", h.Notifications.MarkAllRead)
		api.POST("/notifications/:id/read", h.Notifications.MarkRead)
	}
	if h.Realtime != nil {
		api.GET("/realtime", h.Realtime.Connect)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", idempotencyHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
