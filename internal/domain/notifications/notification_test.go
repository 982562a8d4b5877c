package notifications

import (
	"errors"
	"testing"
)

func TestNewRecordsCreatedEvent(t *testing.T) {
	t.Parallel()

	n, err := New(CreateParams{ID: "n-1", RecipientID: "u-1", Type: TypeMessage, Title: " New message from Sam ", Message: "hi", Link: "/messages/c-1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n.Title != "New message from Sam" || n.IsRead {
		t.Fatalf("notification = %+v", n)
	}
	evs := n.PullEvents()
	if len(evs) != 1 || evs[0].EventName() != EventCreated {
		t.Fatalf("events = %v", evs)
	}
	if !n.MarkRead() || n.MarkRead() {
		t.Fatal("MarkRead should change state once")
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(CreateParams{ID: "n", RecipientID: "u", Type: "email", Title: "x"}); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("err = %v, want %v", err, ErrInvalidType)
	}
	if _, err := New(CreateParams{ID: "n", Type: TypeSystem, Title: "x"}); !errors.Is(err, ErrRecipientRequired) {
		t.Fatalf("err = %v, want %v", err, ErrRecipientRequired)
	}
	if _, err := New(CreateParams{ID: "n", RecipientID: "u", Type: TypeSystem}); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("err = %v, want %v", err, ErrTitleRequired)
	}
}
