package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	appoutbox "motomarket/internal/app/outbox"
	infraoutbox "motomarket/internal/infra/outbox"
)

// Inbox deduplicates deliveries by event id.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type EventHandler interface {
	Handle(ctx context.Context, rec appoutbox.EventRecord) error
}

// Relay turns consumed CloudEvents back into outbox records and hands each
// one to Handler at most once per consumer group.
type Relay struct {
	Inbox   Inbox
	Handler EventHandler
	Logger  *slog.Logger
}

func (r *Relay) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	rec, err := infraoutbox.DecodeEnvelope(msg.Value)
	if err != nil {
		// Poison messages are skipped so the partition keeps moving.
		r.logger().Error("dropping undecodable event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	if r.Inbox != nil {
		seen, err := r.Inbox.Seen(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("inbox check %s: %w", rec.ID, err)
		}
		if seen {
			r.logger().Debug("duplicate event skipped", "event", rec.Name, "event_id", rec.ID)
			return nil
		}
	}
	if err := r.Handler.Handle(ctx, rec); err != nil {
		if r.Inbox != nil {
			if ferr := r.Inbox.Forget(ctx, rec.ID); ferr != nil {
				r.logger().Error("inbox forget failed", "event_id", rec.ID, "error", ferr)
			}
		}
		return fmt.Errorf("handle %s: %w", rec.Name, err)
	}
	return nil
}

func (r *Relay) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Topics lists the topics carrying the given event names.
func Topics(prefix string, names ...string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		topic := infraoutbox.TopicFor(prefix, name)
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		out = append(out, topic)
	}
	return out
}
