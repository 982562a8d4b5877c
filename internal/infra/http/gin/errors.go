package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	appfavorites "motomarket/internal/app/handlers/favorites"
	applistings "motomarket/internal/app/handlers/listings"
	appmessaging "motomarket/internal/app/handlers/messaging"
	appnotifications "motomarket/internal/app/handlers/notifications"
	"motomarket/internal/app/middleware"
	"motomarket/internal/app/services/auth"
	domainauth "motomarket/internal/domain/auth"
	domainfavorites "motomarket/internal/domain/favorites"
	domainlistings "motomarket/internal/domain/listings"
	domainmessaging "motomarket/internal/domain/messaging"
	domainnotifications "motomarket/internal/domain/notifications"
	domainsavedsearch "motomarket/internal/domain/savedsearch"
	domainuser "motomarket/internal/domain/user"
)

type errorMapping struct {
	err    error
	status int
}

var errorStatuses = []errorMapping{
	{middleware.ErrUnauthenticated, http.StatusUnauthorized},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{domainauth.ErrSessionNotFound, http.StatusUnauthorized},

	{domainlistings.ErrNotOwner, http.StatusForbidden},
	{domainmessaging.ErrNotParticipant, http.StatusForbidden},
	{domainsavedsearch.ErrNotOwner, http.StatusForbidden},

	{domainuser.ErrNotFound, http.StatusNotFound},
	{domainlistings.ErrNotFound, http.StatusNotFound},
	{domainmessaging.ErrConversationNotFound, http.StatusNotFound},
	{domainnotifications.ErrNotFound, http.StatusNotFound},
	{domainfavorites.ErrNotFound, http.StatusNotFound},
	{domainsavedsearch.ErrNotFound, http.StatusNotFound},

	{domainuser.ErrEmailAlreadyUsed, http.StatusConflict},
	{domainfavorites.ErrAlreadyExists, http.StatusConflict},
	{domainmessaging.ErrConversationExists, http.StatusConflict},
	{domainlistings.ErrInvalidState, http.StatusConflict},
	{domainsavedsearch.ErrLimitReached, http.StatusConflict},

	{applistings.ErrUploaderUnavailable, http.StatusServiceUnavailable},

	{auth.ErrPasswordTooShort, http.StatusBadRequest},
	{domainuser.ErrEmailRequired, http.StatusBadRequest},
	{domainuser.ErrEmailInvalid, http.StatusBadRequest},
	{domainuser.ErrNameRequired, http.StatusBadRequest},
	{domainuser.ErrInvalidRole, http.StatusBadRequest},
	{domainlistings.ErrIDRequired, http.StatusBadRequest},
	{domainlistings.ErrSellerRequired, http.StatusBadRequest},
	{domainlistings.ErrTitleLength, http.StatusBadRequest},
	{domainlistings.ErrDescriptionLength, http.StatusBadRequest},
	{domainlistings.ErrInvalidCategory, http.StatusBadRequest},
	{domainlistings.ErrInvalidCondition, http.StatusBadRequest},
	{domainlistings.ErrPriceRequired, http.StatusBadRequest},
	{domainlistings.ErrInvalidYear, http.StatusBadRequest},
	{domainlistings.ErrInvalidMileage, http.StatusBadRequest},
	{domainlistings.ErrInvalidEngine, http.StatusBadRequest},
	{domainlistings.ErrMakeRequired, http.StatusBadRequest},
	{domainlistings.ErrInvalidCurrency, http.StatusBadRequest},
	{applistings.ErrSellerRequired, http.StatusBadRequest},
	{applistings.ErrListingRequired, http.StatusBadRequest},
	{applistings.ErrPhotoRequired, http.StatusBadRequest},
	{domainmessaging.ErrIDRequired, http.StatusBadRequest},
	{domainmessaging.ErrSenderRequired, http.StatusBadRequest},
	{domainmessaging.ErrParticipantsRequired, http.StatusBadRequest},
	{domainmessaging.ErrSelfConversation, http.StatusBadRequest},
	{domainmessaging.ErrEmptyContent, http.StatusBadRequest},
	{domainmessaging.ErrContentTooLong, http.StatusBadRequest},
	{appmessaging.ErrConversationIDRequired, http.StatusBadRequest},
	{appmessaging.ErrCounterpartRequired, http.StatusBadRequest},
	{domainnotifications.ErrIDRequired, http.StatusBadRequest},
	{appnotifications.ErrNotificationIDRequired, http.StatusBadRequest},
	{appfavorites.ErrListingIDRequired, http.StatusBadRequest},
	{domainsavedsearch.ErrIDRequired, http.StatusBadRequest},
	{domainsavedsearch.ErrNameRequired, http.StatusBadRequest},
	{domainsavedsearch.ErrNameTooLong, http.StatusBadRequest},
}

func statusFor(err error) (int, bool) {
	for _, m := range errorStatuses {
		if errors.Is(err, m.err) {
			return m.status, true
		}
	}
	return http.StatusInternalServerError, false
}

// respondError writes the mapped status for known domain errors; anything
// else is logged and hidden behind a generic 500.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, known := statusFor(err)
	if known {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	if logger != nil {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
