package dto

import (
	"time"

	domainmessaging "motomarket/internal/domain/messaging"
	domainuser "motomarket/internal/domain/user"
)

// Conversation is rendered from the viewer's perspective.
type Conversation struct {
	ID                   string      `json:"id"`
	Participants         []string    `json:"participants"`
	OtherParticipant     UserDetails `json:"otherParticipant"`
	ListingID            string      `json:"listingId,omitempty"`
	ListingTitle         string      `json:"listingTitle,omitempty"`
	LastMessageSnippet   string      `json:"lastMessageSnippet"`
	LastMessageTimestamp time.Time   `json:"lastMessageTimestamp"`
	UnreadCount          int         `json:"unreadCount"`
}

type ConversationList struct {
	Items []Conversation `json:"items"`
}

type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	IsRead         bool      `json:"isRead"`
}

// ChatMessageList carries NextBeforeID when older messages may remain.
type ChatMessageList struct {
	Items        []ChatMessage `json:"items"`
	NextBeforeID string        `json:"nextBeforeId,omitempty"`
}

// ConversationStart is returned when a thread is opened.
type ConversationStart struct {
	Conversation Conversation `json:"conversation"`
	Created      bool         `json:"created"`
	Message      *ChatMessage `json:"message,omitempty"`
}

type ConversationReadResult struct {
	ConversationID string `json:"conversationId"`
	MarkedCount    int    `json:"markedCount"`
}

func MapConversation(conv *domainmessaging.Conversation, viewer domainuser.ID, other domainuser.Details) Conversation {
	if conv == nil {
		return Conversation{}
	}
	return Conversation{
		ID:                   string(conv.ID),
		Participants:         []string{string(conv.Participants[0]), string(conv.Participants[1])},
		OtherParticipant:     MapUserDetails(other),
		ListingID:            string(conv.ListingID),
		ListingTitle:         conv.ListingTitle,
		LastMessageSnippet:   conv.LastMessageSnippet,
		LastMessageTimestamp: conv.LastMessageAt,
		UnreadCount:          conv.UnreadFor(viewer),
	}
}

func MapChatMessage(msg *domainmessaging.Message) ChatMessage {
	if msg == nil {
		return ChatMessage{}
	}
	return ChatMessage{
		ID:             string(msg.ID),
		ConversationID: string(msg.ConversationID),
		SenderID:       string(msg.SenderID),
		Content:        msg.Content,
		Timestamp:      msg.SentAt,
		IsRead:         msg.IsRead,
	}
}
