package events

import "time"

// DomainEvent is a fact an aggregate records during a command. Events are
// encoded into the outbox by the handler and relayed once the unit commits.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder is embedded by aggregates. It is not safe for concurrent use;
// aggregates are owned by one command at a time.
type EventRecorder struct {
	pending []DomainEvent
}

// Record queues events, skipping nils.
func (r *EventRecorder) Record(evs ...DomainEvent) {
	for _, ev := range evs {
		if ev != nil {
			r.pending = append(r.pending, ev)
		}
	}
}

func (r *EventRecorder) PendingEvents() []DomainEvent {
	return append([]DomainEvent(nil), r.pending...)
}

// PullEvents hands the queued events to the caller and empties the recorder.
func (r *EventRecorder) PullEvents() []DomainEvent {
	out := r.pending
	r.pending = nil
	return out
}

func (r *EventRecorder) ClearEvents() { r.pending = nil }
