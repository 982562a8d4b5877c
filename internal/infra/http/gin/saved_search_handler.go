package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"motomarket/internal/app/commands"
	"motomarket/internal/app/dto"
	savedsearchapp "motomarket/internal/app/handlers/savedsearches"
	"motomarket/internal/app/queries"
	domainlistings "motomarket/internal/domain/listings"
)

type SavedSearchHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type savedSearchRequest struct {
	Name          string                 `json:"name"`
	Filters       domainlistings.Filters `json:"filters"`
	Sort          string                 `json:"sort"`
	AlertsEnabled bool                   `json:"alertsEnabled"`
}

func (h SavedSearchHandler) List(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	result, err := queries.Ask[savedsearchapp.ListQuery, dto.SavedSearchList](c.Request.Context(), h.Queries, savedsearchapp.ListQuery{UserID: p.ID()})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h SavedSearchHandler) Create(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	var req savedSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid saved search payload")
		return
	}
	cmd := savedsearchapp.CreateCommand{
		UserID:        p.ID(),
		Name:          req.Name,
		Filters:       req.Filters,
		Sort:          req.Sort,
		AlertsEnabled: req.AlertsEnabled,
	}
	result, err := commands.Dispatch[savedsearchapp.CreateCommand, dto.SavedSearch](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h SavedSearchHandler) Delete(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	cmd := savedsearchapp.DeleteCommand{UserID: p.ID(), ID: c.Param("id")}
	if _, err := commands.Dispatch[savedsearchapp.DeleteCommand, struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Results runs the stored filters against the live catalog.
func (h SavedSearchHandler) Results(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	cmd := savedsearchapp.RunCommand{
		UserID: p.ID(),
		ID:     c.Param("id"),
		Limit:  queryIntOr(c, "limit", domainlistings.DefaultSearchLimit),
		Offset: queryInt(c, "offset"),
	}
	result, err := commands.Dispatch[savedsearchapp.RunCommand, dto.SavedSearchResults](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ SavedSearchHTTP = SavedSearchHandler{}
