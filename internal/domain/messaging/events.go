package messaging

import (
	"time"

	"motomarket/internal/domain/user"
)

const (
	EventMessageSent      = "messaging.message_sent"
	EventConversationRead = "messaging.conversation_read"
)

type MessageSentEvent struct {
	ConversationID ConversationID `json:"conversation_id"`
	MessageID      MessageID      `json:"message_id"`
	SenderID       user.ID        `json:"sender_id"`
	RecipientID    user.ID        `json:"recipient_id"`
	Snippet        string         `json:"snippet"`
	At             time.Time      `json:"at"`
}

func (e MessageSentEvent) EventName() string     { return EventMessageSent }
func (e MessageSentEvent) AggregateID() string   { return string(e.ConversationID) }
func (e MessageSentEvent) OccurredAt() time.Time { return e.At }

type ConversationReadEvent struct {
	ConversationID ConversationID `json:"conversation_id"`
	ReaderID       user.ID        `json:"reader_id"`
	At             time.Time      `json:"at"`
}

func (e ConversationReadEvent) EventName() string     { return EventConversationRead }
func (e ConversationReadEvent) AggregateID() string   { return string(e.ConversationID) }
func (e ConversationReadEvent) OccurredAt() time.Time { return e.At }
