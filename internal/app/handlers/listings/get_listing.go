package listings

import (
	"context"
	"errors"
	"strings"

	"motomarket/internal/app/dto"
	"motomarket/internal/app/queries"
	"motomarket/internal/app/uow"
	domainlistings "motomarket/internal/domain/listings"
	domainuser "motomarket/internal/domain/user"
)

const (
	getListingKey     = "listings.get"
	sellerListingsKey = "listings.mine"
)

// GetListingQuery loads one listing. ViewerID is optional.
type GetListingQuery struct {
	ListingID string
	ViewerID  string
}

func (q GetListingQuery) Key() string { return getListingKey }

type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (dto.ListingDetail, error) {
	unit, ctx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingDetail{}, err
	}
	defer release()

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(strings.TrimSpace(q.ListingID)))
	if err != nil {
		return dto.ListingDetail{}, err
	}
	if !listing.VisibleTo(domainlistings.SellerID(q.ViewerID)) {
		return dto.ListingDetail{}, domainlistings.ErrNotFound
	}

	var seller *dto.UserDetails
	owner, err := unit.Users().ByID(ctx, domainuser.ID(listing.Seller))
	switch {
	case err == nil:
		details := dto.MapUserDetails(owner.Details())
		seller = &details
	case !errors.Is(err, domainuser.ErrNotFound):
		return dto.ListingDetail{}, err
	}

	favorite := false
	if q.ViewerID != "" {
		favorite, err = unit.Favorites().Exists(ctx, domainuser.ID(q.ViewerID), listing.ID)
		if err != nil {
			return dto.ListingDetail{}, err
		}
	}
	return dto.MapListingDetail(listing, seller, favorite), nil
}

// SellerListingsQuery lists every listing of a seller in any status.
type SellerListingsQuery struct {
	SellerID string
}

func (q SellerListingsQuery) Key() string     { return sellerListingsKey }
func (q SellerListingsQuery) ActorID() string { return q.SellerID }

type SellerListingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SellerListingsHandler) Handle(ctx context.Context, q SellerListingsQuery) (dto.ListingCatalog, error) {
	unit, ctx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	defer release()

	items, err := unit.Listings().ListBySeller(ctx, domainlistings.SellerID(q.SellerID))
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	params := domainlistings.SearchParams{
		Filters: domainlistings.Filters{Seller: domainlistings.SellerID(q.SellerID)},
		Limit:   len(items),
	}
	catalog := dto.MapCatalog(domainlistings.SearchResult{Items: items, Total: len(items)}, params)
	catalog.Meta.Limit = len(items)
	return catalog, nil
}

var (
	_ queries.Handler[GetListingQuery, dto.ListingDetail]      = (*GetListingHandler)(nil)
	_ queries.Handler[SellerListingsQuery, dto.ListingCatalog] = (*SellerListingsHandler)(nil)
)
