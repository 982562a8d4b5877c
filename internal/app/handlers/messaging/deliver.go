package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"motomarket/internal/app/outbox"
	"motomarket/internal/app/uow"
	domainmessaging "motomarket/internal/domain/messaging"
	domainnotifications "motomarket/internal/domain/notifications"
	"motomarket/internal/domain/shared/events"
	domainuser "motomarket/internal/domain/user"
)

var ErrConversationIDRequired = errors.New("messaging: conversation id is required")

// deliver appends a message, updates the thread preview, recounts the
// receiver's unread messages from storage and notifies the receiver. It must
// run inside the caller's unit of work so all writes commit together.
func deliver(ctx context.Context, unit uow.UnitOfWork, encoder outbox.EventEncoder, conv *domainmessaging.Conversation, sender *domainuser.User, content string, now time.Time) (*domainmessaging.Message, error) {
	msg, err := domainmessaging.NewMessage(domainmessaging.NewMessageParams{
		ID:             domainmessaging.MessageID(uuid.NewString()),
		ConversationID: conv.ID,
		SenderID:       sender.ID,
		Content:        content,
		Now:            now,
	})
	if err != nil {
		return nil, err
	}
	receiver, err := conv.Deliver(msg)
	if err != nil {
		return nil, err
	}
	if err := unit.Messages().Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	unread, err := unit.Messages().CountUnread(ctx, conv.ID, receiver)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}
	if err := conv.SyncUnread(receiver, unread); err != nil {
		return nil, err
	}
	if err := unit.Conversations().Save(ctx, conv); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}

	actor := sender.Details()
	note, err := domainnotifications.New(domainnotifications.CreateParams{
		ID:          domainnotifications.ID(uuid.NewString()),
		RecipientID: receiver,
		Type:        domainnotifications.TypeMessage,
		Title:       "New message from " + sender.Name,
		Message:     conv.LastMessageSnippet,
		Link:        "/messages/" + string(conv.ID),
		Actor:       &actor,
		Now:         msg.SentAt,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Notifications().Save(ctx, note); err != nil {
		return nil, fmt.Errorf("save notification: %w", err)
	}

	var pending []events.DomainEvent
	pending = append(pending, conv.PullEvents()...)
	pending = append(pending, note.PullEvents()...)
	if err := outbox.Record(ctx, encoder, pending); err != nil {
		return nil, err
	}
	return msg, nil
}

// participantDetails resolves the public profile of a participant, falling
// back to a placeholder for accounts that no longer resolve.
func participantDetails(ctx context.Context, users domainuser.Repository, id domainuser.ID) (domainuser.Details, error) {
	u, err := users.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return domainuser.Details{ID: id, Name: "Unknown user"}, nil
		}
		return domainuser.Details{}, err
	}
	return u.Details(), nil
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
