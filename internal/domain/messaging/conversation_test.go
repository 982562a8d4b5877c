package messaging

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestConversation(t *testing.T) *Conversation {
	t.Helper()
	conv, err := NewConversation(NewConversationParams{
		ID:           "c-1",
		Initiator:    "buyer",
		Counterpart:  "seller",
		ListingID:    "l-1",
		ListingTitle: "Ducati Monster",
		Now:          time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("NewConversation: %v", err)
	}
	return conv
}

func TestNewConversationRejectsSelf(t *testing.T) {
	t.Parallel()

	_, err := NewConversation(NewConversationParams{ID: "c", Initiator: "u", Counterpart: "u"})
	if !errors.Is(err, ErrSelfConversation) {
		t.Fatalf("err = %v, want %v", err, ErrSelfConversation)
	}
}

func TestDeliverIncrementsReceiverCounter(t *testing.T) {
	t.Parallel()

	conv := newTestConversation(t)
	at := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	msg, err := NewMessage(NewMessageParams{ID: "m-1", ConversationID: conv.ID, SenderID: "buyer", Content: "  Is it still available?  ", Now: at})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	receiver, err := conv.Deliver(msg)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if receiver != "seller" {
		t.Fatalf("receiver = %q, want seller", receiver)
	}
	if got := conv.UnreadFor("seller"); got != 1 {
		t.Fatalf("seller unread = %d, want 1", got)
	}
	if got := conv.UnreadFor("buyer"); got != 0 {
		t.Fatalf("buyer unread = %d, want 0", got)
	}
	if conv.LastMessageSnippet != "Is it still available?" {
		t.Fatalf("snippet = %q", conv.LastMessageSnippet)
	}
	if !conv.LastMessageAt.Equal(at) {
		t.Fatalf("last message at = %v, want %v", conv.LastMessageAt, at)
	}
	evs := conv.PullEvents()
	if len(evs) != 1 || evs[0].EventName() != EventMessageSent {
		t.Fatalf("events = %v", evs)
	}
	if ev := evs[0].(MessageSentEvent); ev.RecipientID != "seller" {
		t.Fatalf("event recipient = %q", ev.RecipientID)
	}
}

func TestDeliverRejectsOutsider(t *testing.T) {
	t.Parallel()

	conv := newTestConversation(t)
	msg, err := NewMessage(NewMessageParams{ID: "m-1", ConversationID: conv.ID, SenderID: "stranger", Content: "hi"})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if _, err := conv.Deliver(msg); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("err = %v, want %v", err, ErrNotParticipant)
	}
}

func TestMarkReadBy(t *testing.T) {
	t.Parallel()

	conv := newTestConversation(t)
	for i := 0; i < 3; i++ {
		msg, _ := NewMessage(NewMessageParams{ID: MessageID(strings.Repeat("m", i+1)), ConversationID: conv.ID, SenderID: "seller", Content: "ping"})
		if _, err := conv.Deliver(msg); err != nil {
			t.Fatalf("Deliver: %v", err)
		}
	}
	conv.ClearEvents()
	pending, err := conv.MarkReadBy("buyer", time.Time{})
	if err != nil {
		t.Fatalf("MarkReadBy: %v", err)
	}
	if pending != 3 || conv.UnreadFor("buyer") != 0 {
		t.Fatalf("pending = %d, unread = %d", pending, conv.UnreadFor("buyer"))
	}
	if _, err := conv.MarkReadBy("stranger", time.Time{}); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("err = %v, want %v", err, ErrNotParticipant)
	}
}

func TestNewMessageValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewMessage(NewMessageParams{ID: "m", ConversationID: "c", SenderID: "u", Content: " \n\t "}); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("err = %v, want %v", err, ErrEmptyContent)
	}
	long := strings.Repeat("я", MaxContentLength+1)
	if _, err := NewMessage(NewMessageParams{ID: "m", ConversationID: "c", SenderID: "u", Content: long}); !errors.Is(err, ErrContentTooLong) {
		t.Fatalf("err = %v, want %v", err, ErrContentTooLong)
	}
}

func TestSnippet(t *testing.T) {
	t.Parallel()

	if got := Snippet("short\nline"); got != "short line" {
		t.Fatalf("Snippet = %q", got)
	}
	got := Snippet(strings.Repeat("ab ", 60))
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("Snippet = %q, want ellipsis", got)
	}
	if n := len([]rune(got)); n > SnippetLength+1 {
		t.Fatalf("snippet length = %d", n)
	}
}

func TestOrderedPair(t *testing.T) {
	t.Parallel()

	a, b := OrderedPair("zed", "amy")
	if a != "amy" || b != "zed" {
		t.Fatalf("OrderedPair = %q, %q", a, b)
	}
}

func TestSyncUnreadOverwritesCounter(t *testing.T) {
	t.Parallel()

	conv := newTestConversation(t)
	conv.Unread["seller"] = 7
	if err := conv.SyncUnread("seller", 2); err != nil {
		t.Fatalf("SyncUnread: %v", err)
	}
	if got := conv.UnreadFor("seller"); got != 2 {
		t.Fatalf("seller unread = %d, want 2", got)
	}
	if err := conv.SyncUnread("seller", -1); err != nil {
		t.Fatalf("SyncUnread: %v", err)
	}
	if got := conv.UnreadFor("seller"); got != 0 {
		t.Fatalf("seller unread = %d, want 0", got)
	}
	if err := conv.SyncUnread("stranger", 1); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("err = %v, want %v", err, ErrNotParticipant)
	}
}
