package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	appoutbox "motomarket/internal/app/outbox"
)

// EventHandler consumes relayed events.
type EventHandler interface {
	Handle(ctx context.Context, rec appoutbox.EventRecord) error
}

// Outbox keeps events in memory until flushed and then hands them to the
// handler in order. Used when no broker is configured.
type Outbox struct {
	Handler EventHandler
	Logger  *slog.Logger

	mu      sync.Mutex
	records []appoutbox.EventRecord
}

func NewOutbox(handler EventHandler, logger *slog.Logger) *Outbox {
	return &Outbox{Handler: handler, Logger: logger}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
	return nil
}

// Flush drains pending records before dispatching so handlers may issue
// commands that add to the outbox again.
func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	pending := o.records
	o.records = nil
	o.mu.Unlock()

	if o.Handler == nil {
		return nil
	}
	var errs []error
	for _, rec := range pending {
		if err := o.Handler.Handle(ctx, rec); err != nil {
			if o.Logger != nil {
				o.Logger.Warn("event reaction failed", "event", rec.Name, "event_id", rec.ID, "error", err)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pending returns a copy of the records not yet flushed.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, len(o.records))
	copy(out, o.records)
	return out
}

var _ appoutbox.Outbox = (*Outbox)(nil)
