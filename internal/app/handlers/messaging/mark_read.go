package messaging

import (
	"context"
	"strings"
	"time"

	"motomarket/internal/app/commands"
	"motomarket/internal/app/dto"
	"motomarket/internal/app/outbox"
	"motomarket/internal/app/uow"
	domainmessaging "motomarket/internal/domain/messaging"
	domainuser "motomarket/internal/domain/user"
)

const markConversationReadKey = "messaging.mark_read"

type MarkConversationReadCommand struct {
	UserID         string
	ConversationID string
}

func (c MarkConversationReadCommand) Key() string     { return markConversationReadKey }
func (c MarkConversationReadCommand) ActorID() string { return c.UserID }

type MarkConversationReadHandler struct {
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

// Handle flags the counterpart's messages as read and zeroes the reader's
// counter in the same unit of work.
func (h *MarkConversationReadHandler) Handle(ctx context.Context, cmd MarkConversationReadCommand) (dto.ConversationReadResult, error) {
	convID := strings.TrimSpace(cmd.ConversationID)
	if convID == "" {
		return dto.ConversationReadResult{}, ErrConversationIDRequired
	}
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.ConversationReadResult{}, err
	}
	conv, err := unit.Conversations().ByID(ctx, domainmessaging.ConversationID(convID))
	if err != nil {
		return dto.ConversationReadResult{}, err
	}
	reader := domainuser.ID(cmd.UserID)
	if _, err := conv.MarkReadBy(reader, clock(h.Now)); err != nil {
		return dto.ConversationReadResult{}, err
	}
	marked, err := unit.Messages().MarkRead(ctx, conv.ID, reader)
	if err != nil {
		return dto.ConversationReadResult{}, err
	}
	if err := unit.Conversations().Save(ctx, conv); err != nil {
		return dto.ConversationReadResult{}, err
	}
	if err := outbox.Record(ctx, h.Encoder, conv.PullEvents()); err != nil {
		return dto.ConversationReadResult{}, err
	}
	return dto.ConversationReadResult{ConversationID: string(conv.ID), MarkedCount: marked}, nil
}

var _ commands.Handler[MarkConversationReadCommand, dto.ConversationReadResult] = (*MarkConversationReadHandler)(nil)
