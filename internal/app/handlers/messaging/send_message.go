package messaging

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"motomarket/internal/app/commands"
	"motomarket/internal/app/dto"
	"motomarket/internal/app/outbox"
	"motomarket/internal/app/uow"
	domainmessaging "motomarket/internal/domain/messaging"
	domainuser "motomarket/internal/domain/user"
)

const sendMessageKey = "messaging.send"

type SendMessageCommand struct {
	SenderID       string
	ConversationID string
	Content        string
	RequestKey     string
}

func (c SendMessageCommand) Key() string     { return sendMessageKey }
func (c SendMessageCommand) ActorID() string { return c.SenderID }
func (c SendMessageCommand) IdempotencyKey() string {
	if strings.TrimSpace(c.RequestKey) == "" {
		return ""
	}
	return c.SenderID + ":" + c.ConversationID + ":" + strings.TrimSpace(c.RequestKey)
}
func (c SendMessageCommand) ResultPrototype() any { return &dto.ChatMessage{} }

type SendMessageHandler struct {
	Logger  *slog.Logger
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

func (h *SendMessageHandler) Handle(ctx context.Context, cmd SendMessageCommand) (dto.ChatMessage, error) {
	convID := strings.TrimSpace(cmd.ConversationID)
	if convID == "" {
		return dto.ChatMessage{}, ErrConversationIDRequired
	}
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.ChatMessage{}, err
	}
	conv, err := unit.Conversations().ByID(ctx, domainmessaging.ConversationID(convID))
	if err != nil {
		return dto.ChatMessage{}, err
	}
	senderID := domainuser.ID(cmd.SenderID)
	if !conv.HasParticipant(senderID) {
		return dto.ChatMessage{}, domainmessaging.ErrNotParticipant
	}
	sender, err := unit.Users().ByID(ctx, senderID)
	if err != nil {
		return dto.ChatMessage{}, err
	}

	msg, err := deliver(ctx, unit, h.Encoder, conv, sender, cmd.Content, clock(h.Now))
	if err != nil {
		return dto.ChatMessage{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("message sent", "conversation_id", conv.ID, "message_id", msg.ID, "sender_id", sender.ID)
	}
	return dto.MapChatMessage(msg), nil
}

var _ commands.Handler[SendMessageCommand, dto.ChatMessage] = (*SendMessageHandler)(nil)
