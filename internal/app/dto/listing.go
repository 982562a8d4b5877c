package dto

import (
	"time"

	domainlistings "motomarket/internal/domain/listings"
)

// ListingCatalog is a paginated collection of listings.
type ListingCatalog struct {
	Items   []ListingCard   `json:"items"`
	Filters CatalogFilters  `json:"filters"`
	Meta    CatalogMetadata `json:"meta"`
}

// ListingCard is the lightweight representation used by grids.
type ListingCard struct {
	ID           string    `json:"id"`
	SellerID     string    `json:"sellerId"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	Make         string    `json:"make,omitempty"`
	Model        string    `json:"model,omitempty"`
	Year         int       `json:"year,omitempty"`
	MileageKm    int       `json:"mileageKm"`
	Condition    string    `json:"condition"`
	PriceCents   int64     `json:"priceCents"`
	Currency     string    `json:"currency"`
	Location     string    `json:"location"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ListingDetail struct {
	ListingCard
	Description string       `json:"description"`
	EngineCC    int          `json:"engineCc,omitempty"`
	Photos      []string     `json:"photos"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Seller      *UserDetails `json:"seller,omitempty"`
	IsFavorite  bool         `json:"isFavorite"`
}

// CatalogFilters echoes back the applied filters.
type CatalogFilters struct {
	Query      string `json:"q,omitempty"`
	Category   string `json:"category,omitempty"`
	Make       string `json:"make,omitempty"`
	Model      string `json:"model,omitempty"`
	Condition  string `json:"condition,omitempty"`
	Location   string `json:"location,omitempty"`
	PriceMin   int64  `json:"priceMin,omitempty"`
	PriceMax   int64  `json:"priceMax,omitempty"`
	YearMin    int    `json:"yearMin,omitempty"`
	YearMax    int    `json:"yearMax,omitempty"`
	MileageMax int    `json:"mileageMax,omitempty"`
	SellerID   string `json:"sellerId,omitempty"`
}

type CatalogMetadata struct {
	Total  int    `json:"total"`
	Count  int    `json:"count"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Sort   string `json:"sort"`
}

type PhotoUploadResult struct {
	ListingID    string   `json:"listingId"`
	Photos       []string `json:"photos"`
	ThumbnailURL string   `json:"thumbnailUrl"`
}

func MapCatalog(result domainlistings.SearchResult, params domainlistings.SearchParams) ListingCatalog {
	normalized := params.Normalized()
	items := make([]ListingCard, 0, len(result.Items))
	for _, listing := range result.Items {
		items = append(items, MapListingCard(listing))
	}
	return ListingCatalog{
		Items:   items,
		Filters: MapCatalogFilters(normalized.Filters),
		Meta: CatalogMetadata{
			Total:  result.Total,
			Count:  len(items),
			Limit:  normalized.Limit,
			Offset: normalized.Offset,
			Sort:   string(normalized.Sort),
		},
	}
}

func MapCatalogFilters(f domainlistings.Filters) CatalogFilters {
	return CatalogFilters{
		Query:      f.Query,
		Category:   string(f.Category),
		Make:       f.Make,
		Model:      f.Model,
		Condition:  string(f.Condition),
		Location:   f.Location,
		PriceMin:   f.PriceMinCents,
		PriceMax:   f.PriceMaxCents,
		YearMin:    f.YearMin,
		YearMax:    f.YearMax,
		MileageMax: f.MileageMaxKm,
		SellerID:   string(f.Seller),
	}
}

// Domain converts echoed filters back into a domain filter set.
func (f CatalogFilters) Domain() domainlistings.Filters {
	return domainlistings.Filters{
		Query:         f.Query,
		Category:      domainlistings.Category(f.Category),
		Make:          f.Make,
		Model:         f.Model,
		Condition:     domainlistings.Condition(f.Condition),
		Location:      f.Location,
		PriceMinCents: f.PriceMin,
		PriceMaxCents: f.PriceMax,
		YearMin:       f.YearMin,
		YearMax:       f.YearMax,
		MileageMaxKm:  f.MileageMax,
		Seller:        domainlistings.SellerID(f.SellerID),
	}
}

func MapListingCard(listing *domainlistings.Listing) ListingCard {
	if listing == nil {
		return ListingCard{}
	}
	return ListingCard{
		ID:           string(listing.ID),
		SellerID:     string(listing.Seller),
		Title:        listing.Title,
		Category:     string(listing.Category),
		Make:         listing.Make,
		Model:        listing.Model,
		Year:         listing.Year,
		MileageKm:    listing.MileageKm,
		Condition:    string(listing.Condition),
		PriceCents:   listing.PriceCents,
		Currency:     listing.Currency,
		Location:     listing.Location,
		ThumbnailURL: listing.ThumbnailURL,
		Status:       string(listing.Status),
		CreatedAt:    listing.CreatedAt,
	}
}

func MapListingDetail(listing *domainlistings.Listing, seller *UserDetails, favorite bool) ListingDetail {
	if listing == nil {
		return ListingDetail{}
	}
	photos := append([]string{}, listing.Photos...)
	return ListingDetail{
		ListingCard: MapListingCard(listing),
		Description: listing.Description,
		EngineCC:    listing.EngineCC,
		Photos:      photos,
		UpdatedAt:   listing.UpdatedAt,
		Seller:      seller,
		IsFavorite:  favorite,
	}
}
