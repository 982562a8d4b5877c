package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"motomarket/internal/app/dto"
	userapp "motomarket/internal/app/handlers/users"
	"motomarket/internal/app/queries"
)

type UserHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

// Profile returns the public card of any user.
func (h UserHandler) Profile(c *gin.Context) {
	query := userapp.GetProfileQuery{UserID: c.Param("id")}
	result, err := queries.Ask[userapp.GetProfileQuery, dto.UserDetails](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ UserHTTP = UserHandler{}
