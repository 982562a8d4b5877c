package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"motomarket/internal/app/commands"
	"motomarket/internal/app/dto"
	notificationapp "motomarket/internal/app/handlers/notifications"
	"motomarket/internal/app/queries"
)

type NotificationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h NotificationHandler) List(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	query := notificationapp.ListNotificationsQuery{
		UserID:     p.ID(),
		UnreadOnly: queryBool(c, "unread"),
		Limit:      queryInt(c, "limit"),
	}
	result, err := queries.Ask[notificationapp.ListNotificationsQuery, dto.NotificationList](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h NotificationHandler) MarkRead(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	cmd := notificationapp.MarkReadCommand{UserID: p.ID(), NotificationID: c.Param("id")}
	result, err := commands.Dispatch[notificationapp.MarkReadCommand, dto.Notification](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h NotificationHandler) MarkAllRead(c *gin.Context) {
	p, ok := requireAuth(c)
	if !ok {
		return
	}
	cmd := notificationapp.MarkAllReadCommand{UserID: p.ID()}
	result, err := commands.Dispatch[notificationapp.MarkAllReadCommand, dto.MarkAllReadResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ NotificationHTTP = NotificationHandler{}
