package messaging

import (
	"context"
	"sort"
	"strings"
	"time"

	"motomarket/internal/app/dto"
	"motomarket/internal/app/queries"
	"motomarket/internal/app/uow"
	domainmessaging "motomarket/internal/domain/messaging"
	domainuser "motomarket/internal/domain/user"
)

const (
	listConversationsKey = "messaging.conversations"
	listMessagesKey      = "messaging.messages"

	defaultMessagePage = 50
	maxMessagePage     = 200
)

type ListConversationsQuery struct {
	UserID string
}

func (q ListConversationsQuery) Key() string     { return listConversationsKey }
func (q ListConversationsQuery) ActorID() string { return q.UserID }

type ListConversationsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListConversationsHandler) Handle(ctx context.Context, q ListConversationsQuery) (dto.ConversationList, error) {
	unit, ctx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.ConversationList{}, err
	}
	defer release()

	viewer := domainuser.ID(q.UserID)
	convs, err := unit.Conversations().ListByParticipant(ctx, viewer)
	if err != nil {
		return dto.ConversationList{}, err
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].LastMessageAt.After(convs[j].LastMessageAt)
	})

	items := make([]dto.Conversation, 0, len(convs))
	for _, conv := range convs {
		otherID, err := conv.Counterpart(viewer)
		if err != nil {
			continue
		}
		other, err := participantDetails(ctx, unit.Users(), otherID)
		if err != nil {
			return dto.ConversationList{}, err
		}
		items = append(items, dto.MapConversation(conv, viewer, other))
	}
	return dto.ConversationList{Items: items}, nil
}

type ListMessagesQuery struct {
	UserID         string
	ConversationID string
	Limit          int
	Before         time.Time
	BeforeID       string
}

func (q ListMessagesQuery) Key() string     { return listMessagesKey }
func (q ListMessagesQuery) ActorID() string { return q.UserID }

type ListMessagesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListMessagesHandler) Handle(ctx context.Context, q ListMessagesQuery) (dto.ChatMessageList, error) {
	convID := strings.TrimSpace(q.ConversationID)
	if convID == "" {
		return dto.ChatMessageList{}, ErrConversationIDRequired
	}
	unit, ctx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.ChatMessageList{}, err
	}
	defer release()

	conv, err := unit.Conversations().ByID(ctx, domainmessaging.ConversationID(convID))
	if err != nil {
		return dto.ChatMessageList{}, err
	}
	if !conv.HasParticipant(domainuser.ID(q.UserID)) {
		return dto.ChatMessageList{}, domainmessaging.ErrNotParticipant
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultMessagePage
	}
	if limit > maxMessagePage {
		limit = maxMessagePage
	}
	msgs, err := unit.Messages().ListByConversation(ctx, conv.ID, domainmessaging.MessagePage{
		Limit:    limit,
		Before:   q.Before,
		BeforeID: domainmessaging.MessageID(strings.TrimSpace(q.BeforeID)),
	})
	if err != nil {
		return dto.ChatMessageList{}, err
	}
	items := make([]dto.ChatMessage, 0, len(msgs))
	for _, msg := range msgs {
		items = append(items, dto.MapChatMessage(msg))
	}
	result := dto.ChatMessageList{Items: items}
	if len(msgs) == limit {
		result.NextBeforeID = string(msgs[0].ID)
	}
	return result, nil
}

var (
	_ queries.Handler[ListConversationsQuery, dto.ConversationList] = (*ListConversationsHandler)(nil)
	_ queries.Handler[ListMessagesQuery, dto.ChatMessageList]       = (*ListMessagesHandler)(nil)
)
