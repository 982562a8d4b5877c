package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"motomarket/internal/domain/listings"
	"motomarket/internal/domain/shared/events"
	"motomarket/internal/domain/user"
)

var (
	ErrIDRequired           = errors.New("messaging: id is required")
	ErrConversationRequired = errors.New("messaging: conversation is required")
	ErrSenderRequired       = errors.New("messaging: sender is required")
	ErrParticipantsRequired = errors.New("messaging: two participants are required")
	ErrSelfConversation     = errors.New("messaging: cannot start a conversation with yourself")
	ErrEmptyContent         = errors.New("messaging: message content is empty")
	ErrContentTooLong       = errors.New("messaging: message content is too long")
	ErrNotParticipant       = errors.New("messaging: not a conversation participant")
	ErrConversationNotFound = errors.New("messaging: conversation not found")
	ErrConversationExists   = errors.New("messaging: conversation already exists")
)

type ConversationID string

// Conversation is a thread between exactly two users, optionally about a
// listing. Unread counters are kept per participant.
type Conversation struct {
	ID                 ConversationID
	Participants       [2]user.ID
	ListingID          listings.ListingID
	ListingTitle       string
	LastMessageSnippet string
	LastMessageAt      time.Time
	Unread             map[user.ID]int
	CreatedAt          time.Time
	events.EventRecorder
}

type ConversationRepository interface {
	ByID(ctx context.Context, id ConversationID) (*Conversation, error)
	FindByParticipants(ctx context.Context, a, b user.ID, listing listings.ListingID) (*Conversation, error)
	ListByParticipant(ctx context.Context, participant user.ID) ([]*Conversation, error)
	// Create fails with ErrConversationExists when the pair already has a
	// thread for the same listing.
	Create(ctx context.Context, conversation *Conversation) error
	Save(ctx context.Context, conversation *Conversation) error
}

// MessagePage selects the newest Limit messages older than the cursor.
// BeforeID is exact; Before only compares send times.
type MessagePage struct {
	Limit    int
	Before   time.Time
	BeforeID MessageID
}

type MessageRepository interface {
	Append(ctx context.Context, message *Message) error
	// ListByConversation returns the newest page in chronological order.
	ListByConversation(ctx context.Context, id ConversationID, page MessagePage) ([]*Message, error)
	// MarkRead flags every unread message in the thread not sent by reader.
	MarkRead(ctx context.Context, id ConversationID, reader user.ID) (int, error)
	// CountUnread counts the messages reader has not seen yet.
	CountUnread(ctx context.Context, id ConversationID, reader user.ID) (int, error)
}

type NewConversationParams struct {
	ID           ConversationID
	Initiator    user.ID
	Counterpart  user.ID
	ListingID    listings.ListingID
	ListingTitle string
	Now          time.Time
}

func NewConversation(params NewConversationParams) (*Conversation, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	a := user.ID(strings.TrimSpace(string(params.Initiator)))
	b := user.ID(strings.TrimSpace(string(params.Counterpart)))
	if a == "" || b == "" {
		return nil, ErrParticipantsRequired
	}
	if a == b {
		return nil, ErrSelfConversation
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Conversation{
		ID:            params.ID,
		Participants:  [2]user.ID{a, b},
		ListingID:     params.ListingID,
		ListingTitle:  strings.TrimSpace(params.ListingTitle),
		LastMessageAt: now,
		Unread:        map[user.ID]int{a: 0, b: 0},
		CreatedAt:     now,
	}, nil
}

func (c *Conversation) HasParticipant(id user.ID) bool {
	return id != "" && (c.Participants[0] == id || c.Participants[1] == id)
}

// Counterpart returns the participant that is not id.
func (c *Conversation) Counterpart(id user.ID) (user.ID, error) {
	switch id {
	case "":
		return "", ErrNotParticipant
	case c.Participants[0]:
		return c.Participants[1], nil
	case c.Participants[1]:
		return c.Participants[0], nil
	}
	return "", ErrNotParticipant
}

func (c *Conversation) UnreadFor(id user.ID) int {
	if c.Unread == nil {
		return 0
	}
	return c.Unread[id]
}

// Deliver applies a new message to the thread and returns the receiver.
func (c *Conversation) Deliver(msg *Message) (user.ID, error) {
	if msg == nil || msg.ConversationID != c.ID {
		return "", ErrConversationRequired
	}
	receiver, err := c.Counterpart(msg.SenderID)
	if err != nil {
		return "", err
	}
	if c.Unread == nil {
		c.Unread = make(map[user.ID]int, 2)
	}
	snippet := Snippet(msg.Content)
	c.LastMessageSnippet = snippet
	c.LastMessageAt = msg.SentAt
	c.Unread[receiver]++
	c.Record(MessageSentEvent{
		ConversationID: c.ID,
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		RecipientID:    receiver,
		Snippet:        snippet,
		At:             msg.SentAt,
	})
	return receiver, nil
}

// SyncUnread overwrites the cached counter of a participant with count.
func (c *Conversation) SyncUnread(id user.ID, count int) error {
	if !c.HasParticipant(id) {
		return ErrNotParticipant
	}
	if count < 0 {
		count = 0
	}
	if c.Unread == nil {
		c.Unread = make(map[user.ID]int, 2)
	}
	c.Unread[id] = count
	return nil
}

// MarkReadBy clears reader's counter and reports how many were pending.
func (c *Conversation) MarkReadBy(reader user.ID, now time.Time) (int, error) {
	if !c.HasParticipant(reader) {
		return 0, ErrNotParticipant
	}
	pending := c.UnreadFor(reader)
	if c.Unread == nil {
		c.Unread = make(map[user.ID]int, 2)
	}
	c.Unread[reader] = 0
	if pending > 0 {
		if now.IsZero() {
			now = time.Now()
		}
		c.Record(ConversationReadEvent{ConversationID: c.ID, ReaderID: reader, At: now.UTC()})
	}
	return pending, nil
}

// OrderedPair returns participants sorted so a pair has one storage key.
func OrderedPair(a, b user.ID) (user.ID, user.ID) {
	if b < a {
		return b, a
	}
	return a, b
}
