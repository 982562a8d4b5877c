package savedsearches

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"motomarket/internal/app/commands"
	"motomarket/internal/app/outbox"
	"motomarket/internal/app/policies"
	"motomarket/internal/app/uow"
	domainlistings "motomarket/internal/domain/listings"
	domainnotifications "motomarket/internal/domain/notifications"
	"motomarket/internal/domain/shared/events"
)

const notifyMatchesKey = "savedsearches.notify_matches"

// AlertPayload is the job body enqueued when a listing is published.
type AlertPayload struct {
	ListingID string `json:"listing_id"`
}

// NotifyMatchesCommand creates a saved_search notification for every owner
// whose alerting search matches the listing.
type NotifyMatchesCommand struct {
	ListingID string
}

func (c NotifyMatchesCommand) Key() string { return notifyMatchesKey }

type NotifyMatchesHandler struct {
	Logger  *slog.Logger
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

func (h *NotifyMatchesHandler) Handle(ctx context.Context, cmd NotifyMatchesCommand) (int, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return 0, err
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(strings.TrimSpace(cmd.ListingID)))
	if err != nil {
		if errors.Is(err, domainlistings.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	searches, err := unit.SavedSearches().ListAlerting(ctx)
	if err != nil {
		return 0, err
	}

	now := clock(h.Now)
	notified := make(map[string]struct{})
	var pending []events.DomainEvent
	for _, search := range searches {
		if !search.ShouldAlert(listing) {
			continue
		}
		// One alert per owner even when several of their searches match.
		if _, dup := notified[string(search.UserID)]; dup {
			continue
		}
		notified[string(search.UserID)] = struct{}{}

		note, err := domainnotifications.New(domainnotifications.CreateParams{
			ID:          domainnotifications.ID(uuid.NewString()),
			RecipientID: search.UserID,
			Type:        domainnotifications.TypeSavedSearch,
			Title:       fmt.Sprintf("New match for %q", search.Name),
			Message:     listing.Title,
			Link:        "/listings/" + string(listing.ID),
			Now:         now,
		})
		if err != nil {
			return 0, err
		}
		if err := unit.Notifications().Save(ctx, note); err != nil {
			return 0, err
		}
		pending = append(pending, note.PullEvents()...)
	}
	if err := outbox.Record(ctx, h.Encoder, pending); err != nil {
		return 0, err
	}
	if h.Logger != nil && len(notified) > 0 {
		h.Logger.Info("saved search alerts created", "listing_id", listing.ID, "count", len(notified))
	}
	return len(notified), nil
}

// AlertJob adapts the queue task to the command bus so alerts run inside the
// usual transaction and outbox middleware.
func AlertJob(bus commands.Bus) policies.JobHandler {
	return func(ctx context.Context, payload []byte) error {
		var body AlertPayload
		if err := json.Unmarshal(payload, &body); err != nil {
			return fmt.Errorf("decode alert payload: %w", err)
		}
		if strings.TrimSpace(body.ListingID) == "" {
			return nil
		}
		_, err := commands.Dispatch[NotifyMatchesCommand, int](ctx, bus, NotifyMatchesCommand{ListingID: body.ListingID})
		return err
	}
}

var _ commands.Handler[NotifyMatchesCommand, int] = (*NotifyMatchesHandler)(nil)
