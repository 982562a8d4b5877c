package messaging

import (
	"strings"
	"time"
	"unicode/utf8"

	"motomarket/internal/domain/user"
)

const (
	MaxContentLength = 4000
	SnippetLength    = 100
)

type MessageID string

// Message is immutable once created apart from the read flag.
type Message struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       user.ID
	Content        string
	SentAt         time.Time
	IsRead         bool
}

type NewMessageParams struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       user.ID
	Content        string
	Now            time.Time
}

func NewMessage(params NewMessageParams) (*Message, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.ConversationID)) == "" {
		return nil, ErrConversationRequired
	}
	if strings.TrimSpace(string(params.SenderID)) == "" {
		return nil, ErrSenderRequired
	}
	content := strings.TrimSpace(params.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, ErrContentTooLong
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Message{
		ID:             params.ID,
		ConversationID: params.ConversationID,
		SenderID:       params.SenderID,
		Content:        content,
		SentAt:         now.UTC(),
	}, nil
}

// Snippet shortens content for conversation previews and notifications.
func Snippet(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) <= SnippetLength {
		return content
	}
	runes := []rune(content)
	return strings.TrimSpace(string(runes[:SnippetLength])) + "…"
}
