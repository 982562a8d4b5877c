package listings

import (
	"context"
	"time"

	"motomarket/internal/app/outbox"
	"motomarket/internal/domain/shared/events"
)

type eventSource interface {
	PullEvents() []events.DomainEvent
}

func recordEvents(ctx context.Context, encoder outbox.EventEncoder, source eventSource) error {
	return outbox.Record(ctx, encoder, source.PullEvents())
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now()
}
