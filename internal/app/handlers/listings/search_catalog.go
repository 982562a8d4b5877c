package listings

import (
	"context"

	"motomarket/internal/app/dto"
	"motomarket/internal/app/queries"
	"motomarket/internal/app/uow"
	domainlistings "motomarket/internal/domain/listings"
)

const searchCatalogKey = "listings.catalog"

// SearchCatalogQuery describes request filters.
type SearchCatalogQuery struct {
	Filters domainlistings.Filters
	Sort    string
	Limit   int
	Offset  int
}

func (q SearchCatalogQuery) Key() string { return searchCatalogKey }

// Params returns the normalized public catalog query.
func (q SearchCatalogQuery) Params() domainlistings.SearchParams {
	return domainlistings.SearchParams{
		Filters:    q.Filters,
		Sort:       domainlistings.CatalogSort(q.Sort),
		Limit:      q.Limit,
		Offset:     q.Offset,
		OnlyActive: true,
	}.Normalized()
}

// SearchCatalogHandler loads active listings with applied filters.
type SearchCatalogHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SearchCatalogHandler) Handle(ctx context.Context, q SearchCatalogQuery) (dto.ListingCatalog, error) {
	unit, ctx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	defer release()

	params := q.Params()
	result, err := unit.Listings().Search(ctx, params)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	return dto.MapCatalog(result, params), nil
}

var _ queries.Handler[SearchCatalogQuery, dto.ListingCatalog] = (*SearchCatalogHandler)(nil)
