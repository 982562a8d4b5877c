package listings

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"motomarket/internal/app/commands"
	"motomarket/internal/app/dto"
	"motomarket/internal/app/outbox"
	"motomarket/internal/app/uow"
	domainlistings "motomarket/internal/domain/listings"
	domainuser "motomarket/internal/domain/user"
)

const (
	createListingKey = "listings.create"
	updateListingKey = "listings.update"
	markSoldKey      = "listings.mark_sold"
	removeListingKey = "listings.remove"
)

var (
	ErrSellerRequired  = errors.New("listings: seller id is required")
	ErrListingRequired = errors.New("listings: listing id is required")
)

// ListingPayload carries seller-editable fields from the transport layer.
type ListingPayload struct {
	Title        string
	Description  string
	Category     string
	Make         string
	Model        string
	Year         int
	MileageKm    int
	EngineCC     int
	Condition    string
	PriceCents   int64
	Currency     string
	Location     string
	Photos       []string
	ThumbnailURL string
}

func (p ListingPayload) attributes() domainlistings.Attributes {
	return domainlistings.Attributes{
		Title:        p.Title,
		Description:  p.Description,
		Category:     domainlistings.Category(p.Category),
		Make:         p.Make,
		Model:        p.Model,
		Year:         p.Year,
		MileageKm:    p.MileageKm,
		EngineCC:     p.EngineCC,
		Condition:    domainlistings.Condition(p.Condition),
		PriceCents:   p.PriceCents,
		Currency:     p.Currency,
		Location:     p.Location,
		Photos:       p.Photos,
		ThumbnailURL: p.ThumbnailURL,
	}
}

// CreateListingCommand carries RequestKey to deduplicate retried submissions.
type CreateListingCommand struct {
	SellerID   string
	Payload    ListingPayload
	RequestKey string
}

func (c CreateListingCommand) Key() string     { return createListingKey }
func (c CreateListingCommand) ActorID() string { return c.SellerID }

func (c CreateListingCommand) IdempotencyKey() string {
	return idempotencyKey(c.SellerID, c.RequestKey)
}

func (c CreateListingCommand) ResultPrototype() any { return new(*dto.ListingDetail) }

type CreateListingHandler struct {
	Logger  *slog.Logger
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

// Handle creates an active listing. A buyer who lists for the first time is
// promoted to seller.
func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (*dto.ListingDetail, error) {
	if strings.TrimSpace(cmd.SellerID) == "" {
		return nil, ErrSellerRequired
	}
	unit, err := uow.Require(ctx)
	if err != nil {
		return nil, err
	}
	now := clock(h.Now)

	seller, err := unit.Users().ByID(ctx, domainuser.ID(cmd.SellerID))
	if err != nil {
		return nil, err
	}
	if !seller.HasRole(domainuser.RoleSeller) {
		if err := seller.EnsureRole(domainuser.RoleSeller, now); err != nil {
			return nil, err
		}
		if err := unit.Users().Save(ctx, seller); err != nil {
			return nil, err
		}
	}

	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:         domainlistings.ListingID(uuid.NewString()),
		Seller:     domainlistings.SellerID(seller.ID),
		Attributes: cmd.Payload.attributes(),
		Now:        now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := recordEvents(ctx, h.Encoder, listing); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("listing created", "listing_id", listing.ID, "seller_id", seller.ID)
	}

	details := dto.MapUserDetails(seller.Details())
	result := dto.MapListingDetail(listing, &details, false)
	return &result, nil
}

type UpdateListingCommand struct {
	SellerID  string
	ListingID string
	Payload   ListingPayload
}

func (c UpdateListingCommand) Key() string     { return updateListingKey }
func (c UpdateListingCommand) ActorID() string { return c.SellerID }

type UpdateListingHandler struct {
	Logger  *slog.Logger
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

func (h *UpdateListingHandler) Handle(ctx context.Context, cmd UpdateListingCommand) (*dto.ListingDetail, error) {
	unit, listing, err := loadOwnedListing(ctx, cmd.SellerID, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if err := listing.Update(cmd.Payload.attributes(), clock(h.Now)); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := recordEvents(ctx, h.Encoder, listing); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("listing updated", "listing_id", listing.ID, "seller_id", cmd.SellerID)
	}
	result := dto.MapListingDetail(listing, nil, false)
	return &result, nil
}

type MarkSoldCommand struct {
	SellerID  string
	ListingID string
}

func (c MarkSoldCommand) Key() string     { return markSoldKey }
func (c MarkSoldCommand) ActorID() string { return c.SellerID }

type MarkSoldHandler struct {
	Logger  *slog.Logger
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

func (h *MarkSoldHandler) Handle(ctx context.Context, cmd MarkSoldCommand) (*dto.ListingDetail, error) {
	unit, listing, err := loadOwnedListing(ctx, cmd.SellerID, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if err := listing.MarkSold(clock(h.Now)); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := recordEvents(ctx, h.Encoder, listing); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("listing sold", "listing_id", listing.ID, "seller_id", cmd.SellerID)
	}
	result := dto.MapListingDetail(listing, nil, false)
	return &result, nil
}

type RemoveListingCommand struct {
	SellerID  string
	ListingID string
}

func (c RemoveListingCommand) Key() string     { return removeListingKey }
func (c RemoveListingCommand) ActorID() string { return c.SellerID }

type RemoveListingHandler struct {
	Logger  *slog.Logger
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

// Handle deletes the listing and every favorite pointing at it.
func (h *RemoveListingHandler) Handle(ctx context.Context, cmd RemoveListingCommand) (struct{}, error) {
	unit, listing, err := loadOwnedListing(ctx, cmd.SellerID, cmd.ListingID)
	if err != nil {
		return struct{}{}, err
	}
	listing.MarkRemoved(clock(h.Now))
	if err := unit.Favorites().RemoveByListing(ctx, listing.ID); err != nil {
		return struct{}{}, err
	}
	if err := unit.Listings().Delete(ctx, listing.ID); err != nil {
		return struct{}{}, err
	}
	if err := recordEvents(ctx, h.Encoder, listing); err != nil {
		return struct{}{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("listing removed", "listing_id", listing.ID, "seller_id", cmd.SellerID)
	}
	return struct{}{}, nil
}

func loadOwnedListing(ctx context.Context, sellerID, listingID string) (uow.UnitOfWork, *domainlistings.Listing, error) {
	if strings.TrimSpace(sellerID) == "" {
		return nil, nil, ErrSellerRequired
	}
	if strings.TrimSpace(listingID) == "" {
		return nil, nil, ErrListingRequired
	}
	unit, err := uow.Require(ctx)
	if err != nil {
		return nil, nil, err
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(strings.TrimSpace(listingID)))
	if err != nil {
		return nil, nil, err
	}
	if !listing.OwnedBy(domainlistings.SellerID(sellerID)) {
		return nil, nil, domainlistings.ErrNotOwner
	}
	return unit, listing, nil
}

func idempotencyKey(actor, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	return actor + ":" + key
}

var (
	_ commands.Handler[CreateListingCommand, *dto.ListingDetail] = (*CreateListingHandler)(nil)
	_ commands.Handler[UpdateListingCommand, *dto.ListingDetail] = (*UpdateListingHandler)(nil)
	_ commands.Handler[MarkSoldCommand, *dto.ListingDetail]      = (*MarkSoldHandler)(nil)
	_ commands.Handler[RemoveListingCommand, struct{}]           = (*RemoveListingHandler)(nil)
)
