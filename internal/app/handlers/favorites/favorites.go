package favorites

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"motomarket/internal/app/commands"
	"motomarket/internal/app/dto"
	"motomarket/internal/app/queries"
	"motomarket/internal/app/uow"
	domainfavorites "motomarket/internal/domain/favorites"
	domainlistings "motomarket/internal/domain/listings"
	domainuser "motomarket/internal/domain/user"
)

const (
	addFavoriteKey    = "favorites.add"
	removeFavoriteKey = "favorites.remove"
	listFavoritesKey  = "favorites.list"
)

var ErrListingIDRequired = errors.New("favorites: listing id is required")

type AddFavoriteCommand struct {
	UserID    string
	ListingID string
}

func (c AddFavoriteCommand) Key() string     { return addFavoriteKey }
func (c AddFavoriteCommand) ActorID() string { return c.UserID }

type AddFavoriteHandler struct {
	Logger *slog.Logger
	Now    func() time.Time
}

// Handle bookmarks a listing. Unknown listings yield listings.ErrNotFound and
// duplicates favorites.ErrAlreadyExists.
func (h *AddFavoriteHandler) Handle(ctx context.Context, cmd AddFavoriteCommand) (dto.FavoriteItem, error) {
	listingID := domainlistings.ListingID(strings.TrimSpace(cmd.ListingID))
	if listingID == "" {
		return dto.FavoriteItem{}, ErrListingIDRequired
	}
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.FavoriteItem{}, err
	}
	listing, err := unit.Listings().ByID(ctx, listingID)
	if err != nil {
		return dto.FavoriteItem{}, err
	}
	if !listing.VisibleTo(domainlistings.SellerID(cmd.UserID)) {
		return dto.FavoriteItem{}, domainlistings.ErrNotFound
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	fav := domainfavorites.Favorite{UserID: domainuser.ID(cmd.UserID), ListingID: listing.ID, CreatedAt: now.UTC()}
	if err := unit.Favorites().Add(ctx, fav); err != nil {
		return dto.FavoriteItem{}, err
	}
	if h.Logger != nil {
		h.Logger.Debug("favorite added", "user_id", cmd.UserID, "listing_id", listing.ID)
	}
	return dto.FavoriteItem{Listing: dto.MapListingCard(listing), CreatedAt: fav.CreatedAt}, nil
}

type RemoveFavoriteCommand struct {
	UserID    string
	ListingID string
}

func (c RemoveFavoriteCommand) Key() string     { return removeFavoriteKey }
func (c RemoveFavoriteCommand) ActorID() string { return c.UserID }

type RemoveFavoriteHandler struct{}

func (h *RemoveFavoriteHandler) Handle(ctx context.Context, cmd RemoveFavoriteCommand) (struct{}, error) {
	listingID := domainlistings.ListingID(strings.TrimSpace(cmd.ListingID))
	if listingID == "" {
		return struct{}{}, ErrListingIDRequired
	}
	unit, err := uow.Require(ctx)
	if err != nil {
		return struct{}{}, err
	}
	return struct{}{}, unit.Favorites().Remove(ctx, domainuser.ID(cmd.UserID), listingID)
}

type ListFavoritesQuery struct {
	UserID string
}

func (q ListFavoritesQuery) Key() string     { return listFavoritesKey }
func (q ListFavoritesQuery) ActorID() string { return q.UserID }

type ListFavoritesHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle returns favorites newest first. Listings that disappeared between
// reads are skipped.
func (h *ListFavoritesHandler) Handle(ctx context.Context, q ListFavoritesQuery) (dto.FavoriteList, error) {
	unit, ctx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.FavoriteList{}, err
	}
	defer release()

	favs, err := unit.Favorites().ListByUser(ctx, domainuser.ID(q.UserID))
	if err != nil {
		return dto.FavoriteList{}, err
	}
	out := dto.FavoriteList{Items: make([]dto.FavoriteItem, 0, len(favs))}
	for _, fav := range favs {
		listing, err := unit.Listings().ByID(ctx, fav.ListingID)
		if err != nil {
			if errors.Is(err, domainlistings.ErrNotFound) {
				continue
			}
			return dto.FavoriteList{}, err
		}
		out.Items = append(out.Items, dto.FavoriteItem{Listing: dto.MapListingCard(listing), CreatedAt: fav.CreatedAt})
	}
	return out, nil
}

var (
	_ commands.Handler[AddFavoriteCommand, dto.FavoriteItem] = (*AddFavoriteHandler)(nil)
	_ commands.Handler[RemoveFavoriteCommand, struct{}]      = (*RemoveFavoriteHandler)(nil)
	_ queries.Handler[ListFavoritesQuery, dto.FavoriteList]  = (*ListFavoritesHandler)(nil)
)
