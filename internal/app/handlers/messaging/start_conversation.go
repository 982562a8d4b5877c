package messaging

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
	domainmessaging "motomarket/internal/domain/messaging"
	domainuser "motomarket/internal/domain/user"
)

const startConversationKey = "messaging.start"

var ErrCounterpartRequired = errors.New("messaging: seller or listing is required")

// StartConversationCommand finds or creates the thread between UserID and
// SellerID about ListingID. SellerID may be omitted when ListingID is set.
type StartConversationCommand struct {
	UserID         string
	SellerID       string
	ListingID      string
	InitialMessage string
	RequestKey     string
}

func (c StartConversationCommand) Key() string     { return startConversationKey }
func (c StartConversationCommand) ActorID() string { return c.UserID }
func (c StartConversationCommand) IdempotencyKey() string {
	if strings.TrimSpace(c.RequestKey) == "" {
		return ""
	}
	return c.UserID + ":" + strings.TrimSpace(c.RequestKey)
}
func (c StartConversationCommand) ResultPrototype() any { return &dto.ConversationStart{} }

type StartConversationHandler struct {
	Logger  *slog.Logger
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

func (h *StartConversationHandler) Handle(ctx context.Context, cmd StartConversationCommand) (dto.ConversationStart, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.ConversationStart{}, err
	}
	now := clock(h.Now)
	me := domainuser.ID(strings.TrimSpace(cmd.UserID))
	sellerID := domainuser.ID(strings.TrimSpace(cmd.SellerID))
	listingID := domainlistings.ListingID(strings.TrimSpace(cmd.ListingID))

	var listingTitle string
	if listingID != "" {
		listing, err := unit.Listings().ByID(ctx, listingID)
		if err != nil {
			return dto.ConversationStart{}, err
		}
		listingTitle = listing.Title
		if sellerID == "" {
			sellerID = domainuser.ID(listing.Seller)
		}
	}
	if sellerID == "" {
		return dto.ConversationStart{}, ErrCounterpartRequired
	}
	if sellerID == me {
		return dto.ConversationStart{}, domainmessaging.ErrSelfConversation
	}

	initiator, err := unit.Users().ByID(ctx, me)
	if err != nil {
		return dto.ConversationStart{}, err
	}
	counterpart, err := unit.Users().ByID(ctx, sellerID)
	if err != nil {
		return dto.ConversationStart{}, err
	}

	conv, created, err := h.findOrCreate(ctx, unit, initiator.ID, counterpart.ID, listingID, listingTitle, now)
	if err != nil {
		return dto.ConversationStart{}, err
	}

	result := dto.ConversationStart{Created: created}
	if strings.TrimSpace(cmd.InitialMessage) != "" {
		msg, err := deliver(ctx, unit, h.Encoder, conv, initiator, cmd.InitialMessage, now)
		if err != nil {
			return dto.ConversationStart{}, err
		}
		mapped := dto.MapChatMessage(msg)
		result.Message = &mapped
	}
	result.Conversation = dto.MapConversation(conv, initiator.ID, counterpart.Details())

	if created && h.Logger != nil {
		h.Logger.Info("conversation started", "conversation_id", conv.ID, "listing_id", listingID)
	}
	return result, nil
}

func (h *StartConversationHandler) findOrCreate(ctx context.Context, unit uow.UnitOfWork, a, b domainuser.ID, listingID domainlistings.ListingID, title string, now time.Time) (*domainmessaging.Conversation, bool, error) {
	repo := unit.Conversations()
	existing, err := repo.FindByParticipants(ctx, a, b, listingID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domainmessaging.ErrConversationNotFound) {
		return nil, false, err
	}

	conv, err := domainmessaging.NewConversation(domainmessaging.NewConversationParams{
		ID:           domainmessaging.ConversationID(uuid.NewString()),
		Initiator:    a,
		Counterpart:  b,
		ListingID:    listingID,
		ListingTitle: title,
		Now:          now,
	})
	if err != nil {
		return nil, false, err
	}
	if err := repo.Create(ctx, conv); err != nil {
		if errors.Is(err, domainmessaging.ErrConversationExists) {
			existing, findErr := repo.FindByParticipants(ctx, a, b, listingID)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return conv, true, nil
}

var _ commands.Handler[StartConversationCommand, dto.ConversationStart] = (*StartConversationHandler)(nil)
