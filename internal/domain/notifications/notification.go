package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"motomarket/internal/domain/shared/events"
	"motomarket/internal/domain/user"
)

var (
	ErrIDRequired        = errors.New("notifications: id is required")
	ErrRecipientRequired = errors.New("notifications: recipient is required")
	ErrTitleRequired     = errors.New("notifications: title is required")
	ErrInvalidType       = errors.New("notifications: invalid type")
	ErrNotFound          = errors.New("notifications: not found")
)

type ID string

type Type string

const (
	TypeMessage     Type = "message"
	TypeSavedSearch Type = "saved_search"
	TypeSystem      Type = "system"
)

const EventCreated = "notifications.created"

type Notification struct {
	ID          ID
	RecipientID user.ID
	Type        Type
	Title       string
	Message     string
	Link        string
	Actor       *user.Details
	CreatedAt   time.Time
	IsRead      bool
	events.EventRecorder
}

type ListParams struct {
	UnreadOnly bool
	Limit      int
}

type Repository interface {
	Save(ctx context.Context, n *Notification) error
	ByID(ctx context.Context, id ID) (*Notification, error)
	// ListByRecipient returns newest first.
	ListByRecipient(ctx context.Context, recipient user.ID, params ListParams) ([]*Notification, error)
	CountUnread(ctx context.Context, recipient user.ID) (int, error)
	MarkAllRead(ctx context.Context, recipient user.ID) (int, error)
}

type CreateParams struct {
	ID          ID
	RecipientID user.ID
	Type        Type
	Title       string
	Message     string
	Link        string
	Actor       *user.Details
	Now         time.Time
}

func New(params CreateParams) (*Notification, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.RecipientID)) == "" {
		return nil, ErrRecipientRequired
	}
	switch params.Type {
	case TypeMessage, TypeSavedSearch, TypeSystem:
	default:
		return nil, ErrInvalidType
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	n := &Notification{
		ID:          params.ID,
		RecipientID: params.RecipientID,
		Type:        params.Type,
		Title:       title,
		Message:     strings.TrimSpace(params.Message),
		Link:        strings.TrimSpace(params.Link),
		Actor:       params.Actor,
		CreatedAt:   now.UTC(),
	}
	n.Record(CreatedEvent{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		Link:           n.Link,
		At:             n.CreatedAt,
	})
	return n, nil
}

// MarkRead reports whether the flag changed.
func (n *Notification) MarkRead() bool {
	if n.IsRead {
		return false
	}
	n.IsRead = true
	return true
}

type CreatedEvent struct {
	NotificationID ID        `json:"notification_id"`
	RecipientID    user.ID   `json:"recipient_id"`
	Type           Type      `json:"type"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Link           string    `json:"link,omitempty"`
	At             time.Time `json:"at"`
}

func (e CreatedEvent) EventName() string     { return EventCreated }
func (e CreatedEvent) AggregateID() string   { return string(e.NotificationID) }
func (e CreatedEvent) OccurredAt() time.Time { return e.At }
