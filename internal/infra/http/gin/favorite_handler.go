package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"motomarket/internal/app/commands"
	"motomarket/internal/app/dto"
	favoriteapp "motomarket/internal/app/handlers/favorites"
	"motomarket/internal/app/queries"
)

type FavoriteHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type addFavoriteRequest struct {
	ListingID string `json:"listingId"`
}

func (h FavoriteHandler) List(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	result, err := queries.Ask[favoriteapp.ListFavoritesQuery, dto.FavoriteList](c.Request.Context(), h.Queries, favoriteapp.ListFavoritesQuery{UserID: p.ID()})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h FavoriteHandler) Add(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req addFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid favorite payload")
		return
	}
	cmd := favoriteapp.AddFavoriteCommand{UserID: p.ID(), ListingID: req.ListingID}
	result, err := commands.Dispatch[favoriteapp.AddFavoriteCommand, dto.FavoriteItem](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h FavoriteHandler) Remove(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	cmd := favoriteapp.RemoveFavoriteCommand{UserID: p.ID(), ListingID: c.Param("listing_id")}
	if _, err := commands.Dispatch[favoriteapp.RemoveFavoriteCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var _ FavoriteHTTP = FavoriteHandler{}
