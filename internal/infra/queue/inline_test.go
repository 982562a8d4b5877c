package queue

import (
	"context"
	"errors"
	"testing"
)

func TestInlineRunsRegisteredHandler(t *testing.T) {
	t.Parallel()

	q := NewInline(nil)
	var got string
	q.Register("task:a", func(_ context.Context, payload []byte) error {
		got = string(payload)
		return nil
	})
	if err := q.Enqueue(context.Background(), "task:a", []byte("hello")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if got != "hello" {
		t.Fatalf("payload = %q, want hello", got)
	}
	if err := q.Enqueue(context.Background(), "task:missing", nil); err == nil {
		t.Fatal("expected error for unknown task")
	}
}

func TestInlineWrapsHandlerErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	q := NewInline(nil)
	q.Register("task:b", func(context.Context, []byte) error { return boom })
	if err := q.Enqueue(context.Background(), "task:b", nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
