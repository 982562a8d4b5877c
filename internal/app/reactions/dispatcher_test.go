package reactions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"motomarket/internal/app/handlers/savedsearches"
	"motomarket/internal/app/outbox"
	"motomarket/internal/app/policies"
	domainlistings "motomarket/internal/domain/listings"
	domainmessaging "motomarket/internal/domain/messaging"
	"motomarket/internal/domain/shared/events"
)

type push struct {
	to   string
	kind string
}

type recordingNotifier struct{ pushes []push }

func (n *recordingNotifier) Send(_ context.Context, to, kind string, _ any) error {
	n.pushes = append(n.pushes, push{to: to, kind: kind})
	return nil
}

type recordingQueue struct {
	tasks    []string
	payloads [][]byte
	err      error
}

func (q *recordingQueue) Enqueue(_ context.Context, task string, payload []byte) error {
	q.tasks = append(q.tasks, task)
	q.payloads = append(q.payloads, payload)
	return q.err
}

type countingCatalog struct{ calls int }

func (c *countingCatalog) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func record(t *testing.T, ev events.DomainEvent) outbox.EventRecord {
	t.Helper()
	rec, err := outbox.JSONEventEncoder{}.Encode(ev)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return rec
}

func TestMessageSentPushesToRecipient(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{}
	d := &Dispatcher{Notifier: notifier}
	ev := domainmessaging.MessageSentEvent{ConversationID: "c-1", MessageID: "m-1", SenderID: "alice", RecipientID: "bob", Snippet: "hi", At: time.Now()}
	if err := d.Handle(context.Background(), record(t, ev)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(notifier.pushes) != 1 || notifier.pushes[0] != (push{to: "bob", kind: KindMessage}) {
		t.Fatalf("pushes = %+v", notifier.pushes)
	}
}

func TestPublishedListingQueuesAlertsAndInvalidates(t *testing.T) {
	t.Parallel()

	jobs := &recordingQueue{}
	catalog := &countingCatalog{}
	d := &Dispatcher{Jobs: jobs, Catalog: catalog}
	ev := domainlistings.ListingPublishedEvent{ListingID: "l-1", SellerID: "s-1", At: time.Now()}
	if err := d.Handle(context.Background(), record(t, ev)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(jobs.tasks) != 1 || jobs.tasks[0] != policies.TaskSavedSearchAlerts {
		t.Fatalf("tasks = %v", jobs.tasks)
	}
	var payload savedsearches.AlertPayload
	if err := json.Unmarshal(jobs.payloads[0], &payload); err != nil || payload.ListingID != "l-1" {
		t.Fatalf("payload = %s (%v)", jobs.payloads[0], err)
	}
	if catalog.calls != 1 {
		t.Fatalf("invalidations = %d", catalog.calls)
	}

	sold := domainlistings.ListingSoldEvent{ListingID: "l-1", SellerID: "s-1", At: time.Now()}
	if err := d.Handle(context.Background(), record(t, sold)); err != nil {
		t.Fatalf("Handle sold: %v", err)
	}
	if catalog.calls != 2 || len(jobs.tasks) != 1 {
		t.Fatalf("after sold: invalidations = %d, tasks = %d", catalog.calls, len(jobs.tasks))
	}
}

func TestQueueFailureStillInvalidates(t *testing.T) {
	t.Parallel()

	boom := errors.New("queue down")
	catalog := &countingCatalog{}
	d := &Dispatcher{Jobs: &recordingQueue{err: boom}, Catalog: catalog}
	ev := domainlistings.ListingPublishedEvent{ListingID: "l-1", SellerID: "s-1", At: time.Now()}
	if err := d.Handle(context.Background(), record(t, ev)); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if catalog.calls != 1 {
		t.Fatalf("invalidations = %d", catalog.calls)
	}
}

func TestUnknownAndMalformedEvents(t *testing.T) {
	t.Parallel()

	d := &Dispatcher{Notifier: &recordingNotifier{}}
	if err := d.Handle(context.Background(), outbox.EventRecord{Name: "something.else"}); err != nil {
		t.Fatalf("unknown event: %v", err)
	}
	bad := outbox.EventRecord{Name: domainmessaging.EventMessageSent, Payload: []byte("{")}
	if err := d.Handle(context.Background(), bad); err == nil {
		t.Fatal("expected decode error")
	}
}
