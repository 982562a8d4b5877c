package dto

import (
	"time"

	domainnotifications "motomarket/internal/domain/notifications"
)

type Notification struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	Title     string       `json:"title"`
	Message   string       `json:"message"`
	Link      string       `json:"link,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	IsRead    bool         `json:"isRead"`
	Actor     *UserDetails `json:"actor,omitempty"`
}

type NotificationList struct {
	Items       []Notification `json:"items"`
	UnreadCount int            `json:"unreadCount"`
}

type MarkAllReadResult struct {
	Updated int `json:"updated"`
}

func MapNotification(n *domainnotifications.Notification) Notification {
	if n == nil {
		return Notification{}
	}
	return Notification{
		ID:        string(n.ID),
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		Timestamp: n.CreatedAt,
		IsRead:    n.IsRead,
		Actor:     MapUserDetailsPtr(n.Actor),
	}
}
