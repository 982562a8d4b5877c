package notifications

import (
	"context"
	"errors"
	"strings"

	"motomarket/internal/app/commands"
	"motomarket/internal/app/dto"
	"motomarket/internal/app/queries"
	"motomarket/internal/app/uow"
	domainnotifications "motomarket/internal/domain/notifications"
	domainuser "motomarket/internal/domain/user"
)

const (
	listNotificationsKey = "notifications.list"
	markReadKey          = "notifications.mark_read"
	markAllReadKey       = "notifications.mark_all_read"

	defaultListLimit = 50
	maxListLimit     = 200
)

var ErrNotificationIDRequired = errors.New("notifications: id is required")

type ListNotificationsQuery struct {
	UserID     string
	UnreadOnly bool
	Limit      int
}

func (q ListNotificationsQuery) Key() string     { return listNotificationsKey }
func (q ListNotificationsQuery) ActorID() string { return q.UserID }

type ListNotificationsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListNotificationsHandler) Handle(ctx context.Context, q ListNotificationsQuery) (dto.NotificationList, error) {
	unit, ctx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.NotificationList{}, err
	}
	defer release()

	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	recipient := domainuser.ID(q.UserID)
	items, err := unit.Notifications().ListByRecipient(ctx, recipient, domainnotifications.ListParams{UnreadOnly: q.UnreadOnly, Limit: limit})
	if err != nil {
		return dto.NotificationList{}, err
	}
	unread, err := unit.Notifications().CountUnread(ctx, recipient)
	if err != nil {
		return dto.NotificationList{}, err
	}
	out := dto.NotificationList{Items: make([]dto.Notification, 0, len(items)), UnreadCount: unread}
	for _, n := range items {
		out.Items = append(out.Items, dto.MapNotification(n))
	}
	return out, nil
}

type MarkReadCommand struct {
	UserID         string
	NotificationID string
}

func (c MarkReadCommand) Key() string     { return markReadKey }
func (c MarkReadCommand) ActorID() string { return c.UserID }

type MarkReadHandler struct{}

// Handle flips the read flag of a notification owned by the user. Records of
// other users are reported as missing.
func (h *MarkReadHandler) Handle(ctx context.Context, cmd MarkReadCommand) (dto.Notification, error) {
	id := strings.TrimSpace(cmd.NotificationID)
	if id == "" {
		return dto.Notification{}, ErrNotificationIDRequired
	}
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.Notification{}, err
	}
	n, err := unit.Notifications().ByID(ctx, domainnotifications.ID(id))
	if err != nil {
		return dto.Notification{}, err
	}
	if n.RecipientID != domainuser.ID(cmd.UserID) {
		return dto.Notification{}, domainnotifications.ErrNotFound
	}
	if n.MarkRead() {
		if err := unit.Notifications().Save(ctx, n); err != nil {
			return dto.Notification{}, err
		}
	}
	return dto.MapNotification(n), nil
}

type MarkAllReadCommand struct {
	UserID string
}

func (c MarkAllReadCommand) Key() string     { return markAllReadKey }
func (c MarkAllReadCommand) ActorID() string { return c.UserID }

type MarkAllReadHandler struct{}

func (h *MarkAllReadHandler) Handle(ctx context.Context, cmd MarkAllReadCommand) (dto.MarkAllReadResult, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.MarkAllReadResult{}, err
	}
	updated, err := unit.Notifications().MarkAllRead(ctx, domainuser.ID(cmd.UserID))
	if err != nil {
		return dto.MarkAllReadResult{}, err
	}
	return dto.MarkAllReadResult{Updated: updated}, nil
}

var (
	_ queries.Handler[ListNotificationsQuery, dto.NotificationList] = (*ListNotificationsHandler)(nil)
	_ commands.Handler[MarkReadCommand, dto.Notification]           = (*MarkReadHandler)(nil)
	_ commands.Handler[MarkAllReadCommand, dto.MarkAllReadResult]   = (*MarkAllReadHandler)(nil)
)
