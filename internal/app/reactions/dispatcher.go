package reactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"motomarket/internal/app/handlers/savedsearches"
	"motomarket/internal/app/outbox"
	"motomarket/internal/app/policies"
	domainlistings "motomarket/internal/domain/listings"
	domainmessaging "motomarket/internal/domain/messaging"
	domainnotifications "motomarket/internal/domain/notifications"
)

// Realtime kinds pushed to connected clients.
const (
	KindMessage      = "message"
	KindNotification = "notification"
	KindRead         = "conversation_read"
)

// CatalogInvalidator drops cached catalog pages.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Dispatcher reacts to committed domain events: realtime pushes, background
// jobs and cache invalidation. It is fed either directly by the in-memory
// outbox or by the broker consumer.
type Dispatcher struct {
	Notifier policies.Notifier
	Jobs     policies.JobQueue
	Catalog  CatalogInvalidator
	Logger   *slog.Logger
}

func (d *Dispatcher) Handle(ctx context.Context, rec outbox.EventRecord) error {
	switch rec.Name {
	case domainmessaging.EventMessageSent:
		var ev domainmessaging.MessageSentEvent
		if err := decode(rec, &ev); err != nil {
			return err
		}
		return d.push(ctx, string(ev.RecipientID), KindMessage, ev)
	case domainmessaging.EventConversationRead:
		var ev domainmessaging.ConversationReadEvent
		if err := decode(rec, &ev); err != nil {
			return err
		}
		return d.push(ctx, string(ev.ReaderID), KindRead, ev)
	case domainnotifications.EventCreated:
		var ev domainnotifications.CreatedEvent
		if err := decode(rec, &ev); err != nil {
			return err
		}
		return d.push(ctx, string(ev.RecipientID), KindNotification, ev)
	case domainlistings.EventPublished:
		var ev domainlistings.ListingPublishedEvent
		if err := decode(rec, &ev); err != nil {
			return err
		}
		return errors.Join(d.enqueueAlerts(ctx, string(ev.ListingID)), d.invalidate(ctx))
	case domainlistings.EventUpdated, domainlistings.EventSold, domainlistings.EventRemoved:
		return d.invalidate(ctx)
	default:
		if d.Logger != nil {
			d.Logger.Debug("event has no reaction", "event", rec.Name, "event_id", rec.ID)
		}
		return nil
	}
}

func (d *Dispatcher) push(ctx context.Context, to, kind string, data any) error {
	if d.Notifier == nil || to == "" {
		return nil
	}
	return d.Notifier.Send(ctx, to, kind, data)
}

func (d *Dispatcher) enqueueAlerts(ctx context.Context, listingID string) error {
	if d.Jobs == nil || listingID == "" {
		return nil
	}
	payload, err := json.Marshal(savedsearches.AlertPayload{ListingID: listingID})
	if err != nil {
		return err
	}
	if err := d.Jobs.Enqueue(ctx, policies.TaskSavedSearchAlerts, payload); err != nil {
		return fmt.Errorf("enqueue saved search alerts: %w", err)
	}
	return nil
}

func (d *Dispatcher) invalidate(ctx context.Context) error {
	if d.Catalog == nil {
		return nil
	}
	if err := d.Catalog.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate catalog: %w", err)
	}
	return nil
}

func decode(rec outbox.EventRecord, dst any) error {
	if err := json.Unmarshal(rec.Payload, dst); err != nil {
		return fmt.Errorf("decode %s: %w", rec.Name, err)
	}
	return nil
}
