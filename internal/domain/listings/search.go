package listings

import (
	"strings"
)

// CatalogSort defines a supported ordering.
type CatalogSort string

const (
	SortNewest     CatalogSort = "newest"
	SortPriceAsc   CatalogSort = "price_asc"
	SortPriceDesc  CatalogSort = "price_desc"
	SortYearDesc   CatalogSort = "year_desc"
	SortMileageAsc CatalogSort = "mileage_asc"

	DefaultSearchLimit = 24
	MaxSearchLimit     = 60
)

// Filters is the persisted part of a catalog query. Zero values mean "any".
type Filters struct {
	Query         string    `json:"q,omitempty"`
	Category      Category  `json:"category,omitempty"`
	Make          string    `json:"make,omitempty"`
	Model         string    `json:"model,omitempty"`
	Condition     Condition `json:"condition,omitempty"`
	Location      string    `json:"location,omitempty"`
	PriceMinCents int64     `json:"price_min,omitempty"`
	PriceMaxCents int64     `json:"price_max,omitempty"`
	YearMin       int       `json:"year_min,omitempty"`
	YearMax       int       `json:"year_max,omitempty"`
	MileageMaxKm  int       `json:"mileage_max,omitempty"`
	Seller        SellerID  `json:"seller_id,omitempty"`
}

// SearchParams describe catalog filters and paging options.
type SearchParams struct {
	Filters
	Sort       CatalogSort
	Limit      int
	Offset     int
	OnlyActive bool
}

// SearchResult wraps search hits with meta.
type SearchResult struct {
	Items []*Listing
	Total int
}

// Normalized returns a sanitized copy of f.
func (f Filters) Normalized() Filters {
	n := f
	n.Query = normalizeToken(n.Query)
	n.Make = normalizeToken(n.Make)
	n.Model = normalizeToken(n.Model)
	n.Location = normalizeToken(n.Location)
	n.Seller = SellerID(strings.TrimSpace(string(n.Seller)))
	if n.Category != "" {
		n.Category, _ = ParseCategory(string(n.Category))
	}
	if n.Condition != "" {
		n.Condition, _ = ParseCondition(string(n.Condition))
	}
	if n.PriceMinCents < 0 {
		n.PriceMinCents = 0
	}
	if n.PriceMaxCents < 0 {
		n.PriceMaxCents = 0
	}
	if n.PriceMaxCents > 0 && n.PriceMaxCents < n.PriceMinCents {
		n.PriceMaxCents = 0
	}
	if n.YearMin < 0 {
		n.YearMin = 0
	}
	if n.YearMax < 0 {
		n.YearMax = 0
	}
	if n.YearMax > 0 && n.YearMax < n.YearMin {
		n.YearMax = 0
	}
	if n.MileageMaxKm < 0 {
		n.MileageMaxKm = 0
	}
	return n
}

// IsEmpty reports whether no filter is set.
func (f Filters) IsEmpty() bool {
	return f.Normalized() == Filters{}
}

// Matches evaluates the filters against a listing. f must be normalized.
func (f Filters) Matches(l *Listing) bool {
	if l == nil {
		return false
	}
	if f.Seller != "" && l.Seller != f.Seller {
		return false
	}
	if f.Category != "" && l.Category != f.Category {
		return false
	}
	if f.Condition != "" && l.Condition != f.Condition {
		return false
	}
	if f.Make != "" && !strings.Contains(strings.ToLower(l.Make), f.Make) {
		return false
	}
	if f.Model != "" && !strings.Contains(strings.ToLower(l.Model), f.Model) {
		return false
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(l.Location), f.Location) {
		return false
	}
	if f.PriceMinCents > 0 && l.PriceCents < f.PriceMinCents {
		return false
	}
	if f.PriceMaxCents > 0 && l.PriceCents > f.PriceMaxCents {
		return false
	}
	if f.YearMin > 0 && l.Year < f.YearMin {
		return false
	}
	if f.YearMax > 0 && l.Year > f.YearMax {
		return false
	}
	if f.MileageMaxKm > 0 && l.MileageKm > f.MileageMaxKm {
		return false
	}
	if f.Query != "" {
		haystack := strings.ToLower(strings.Join([]string{l.Title, l.Make, l.Model, l.Description, l.Location}, " "))
		if !strings.Contains(haystack, f.Query) {
			return false
		}
	}
	return true
}

// Normalized returns a sanitized copy of p.
func (p SearchParams) Normalized() SearchParams {
	n := p
	n.Filters = p.Filters.Normalized()
	if n.Limit <= 0 {
		n.Limit = DefaultSearchLimit
	}
	if n.Limit > MaxSearchLimit {
		n.Limit = MaxSearchLimit
	}
	if n.Offset < 0 {
		n.Offset = 0
	}
	n.Sort = ParseSort(string(n.Sort))
	return n
}

func ParseSort(raw string) CatalogSort {
	switch s := CatalogSort(strings.ToLower(strings.TrimSpace(raw))); s {
	case SortNewest, SortPriceAsc, SortPriceDesc, SortYearDesc, SortMileageAsc:
		return s
	}
	return SortNewest
}

// Less orders two listings according to sort; ties fall back to newest
// first and then id so paging is stable.
func Less(sort CatalogSort, a, b *Listing) bool {
	switch sort {
	case SortPriceAsc:
		if a.PriceCents != b.PriceCents {
			return a.PriceCents < b.PriceCents
		}
	case SortPriceDesc:
		if a.PriceCents != b.PriceCents {
			return a.PriceCents > b.PriceCents
		}
	case SortYearDesc:
		if a.Year != b.Year {
			return a.Year > b.Year
		}
	case SortMileageAsc:
		if a.MileageKm != b.MileageKm {
			return a.MileageKm < b.MileageKm
		}
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

func normalizeToken(token string) string {
	return strings.TrimSpace(strings.ToLower(token))
}
