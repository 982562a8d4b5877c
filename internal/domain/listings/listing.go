package listings

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"motomarket/internal/domain/shared/events"
)

var (
	ErrIDRequired        = errors.New("listings: id is required")
	ErrSellerRequired    = errors.New("listings: seller is required")
	ErrTitleLength       = errors.New("listings: title must be between 3 and 120 characters")
	ErrDescriptionLength = errors.New("listings: description is too long")
	ErrInvalidCategory   = errors.New("listings: invalid category")
	ErrInvalidCondition  = errors.New("listings: invalid condition")
	ErrPriceRequired     = errors.New("listings: price must be positive")
	ErrInvalidYear       = errors.New("listings: year is out of range")
	ErrInvalidMileage    = errors.New("listings: mileage must be non-negative")
	ErrInvalidEngine     = errors.New("listings: engine displacement must be non-negative")
	ErrMakeRequired      = errors.New("listings: make is required for motorcycles")
	ErrInvalidCurrency   = errors.New("listings: currency must be a 3-letter code")
	ErrInvalidState      = errors.New("listings: invalid state transition")
	ErrNotFound          = errors.New("listings: not found")
	ErrNotOwner          = errors.New("listings: not the listing owner")
)

const (
	MinTitleLength       = 3
	MaxTitleLength       = 120
	MaxDescriptionLength = 5000
	MinYear              = 1900
	DefaultCurrency      = "USD"
)

type ListingID string
type SellerID string

type Category string

const (
	CategoryMotorcycle Category = "motorcycle"
	CategoryPart       Category = "part"
	CategoryGear       Category = "gear"
)

type Condition string

const (
	ConditionNew      Condition = "new"
	ConditionLikeNew  Condition = "like_new"
	ConditionUsed     Condition = "used"
	ConditionForParts Condition = "for_parts"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusSold     Status = "sold"
	StatusArchived Status = "archived"
)

type Listing struct {
	ID           ListingID
	Seller       SellerID
	Title        string
	Description  string
	Category     Category
	Make         string
	Model        string
	Year         int
	MileageKm    int
	EngineCC     int
	Condition    Condition
	PriceCents   int64
	Currency     string
	Location     string
	Photos       []string
	ThumbnailURL string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id ListingID) error
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
	ListBySeller(ctx context.Context, seller SellerID) ([]*Listing, error)
}

// Attributes are the seller-editable fields of a listing.
type Attributes struct {
	Title        string
	Description  string
	Category     Category
	Make         string
	Model        string
	Year         int
	MileageKm    int
	EngineCC     int
	Condition    Condition
	PriceCents   int64
	Currency     string
	Location     string
	Photos       []string
	ThumbnailURL string
}

type CreateListingParams struct {
	ID     ListingID
	Seller SellerID
	Attributes
	Now time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Seller)) == "" {
		return nil, ErrSellerRequired
	}
	now := utcNow(params.Now)
	attrs, err := params.Attributes.normalized(now)
	if err != nil {
		return nil, err
	}
	listing := &Listing{
		ID:        params.ID,
		Seller:    params.Seller,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	listing.apply(attrs)
	listing.Record(ListingPublishedEvent{ListingID: listing.ID, SellerID: listing.Seller, At: now})
	return listing, nil
}

// Update replaces the editable fields.
func (l *Listing) Update(attrs Attributes, now time.Time) error {
	now = utcNow(now)
	normalized, err := attrs.normalized(now)
	if err != nil {
		return err
	}
	if normalized.Photos == nil {
		normalized.Photos = l.Photos
	}
	if normalized.ThumbnailURL == "" {
		normalized.ThumbnailURL = l.ThumbnailURL
	}
	l.apply(normalized)
	l.UpdatedAt = now
	l.Record(ListingUpdatedEvent{ListingID: l.ID, SellerID: l.Seller, At: now})
	return nil
}

func (l *Listing) MarkSold(now time.Time) error {
	if l.Status != StatusActive {
		return ErrInvalidState
	}
	now = utcNow(now)
	l.Status = StatusSold
	l.UpdatedAt = now
	l.Record(ListingSoldEvent{ListingID: l.ID, SellerID: l.Seller, At: now})
	return nil
}

// MarkRemoved records the removal; the repository performs the delete.
func (l *Listing) MarkRemoved(now time.Time) {
	l.Record(ListingRemovedEvent{ListingID: l.ID, SellerID: l.Seller, At: utcNow(now)})
}

func (l *Listing) AddPhoto(url string, now time.Time) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}
	now = utcNow(now)
	l.Photos = append(l.Photos, url)
	if l.ThumbnailURL == "" {
		l.ThumbnailURL = url
	}
	l.UpdatedAt = now
	l.Record(ListingUpdatedEvent{ListingID: l.ID, SellerID: l.Seller, At: now})
}

func (l *Listing) OwnedBy(seller SellerID) bool {
	return seller != "" && l.Seller == seller
}

// VisibleTo reports whether viewer may read the listing. Sellers see their
// listings in any status, everyone else sees active ones only.
func (l *Listing) VisibleTo(viewer SellerID) bool {
	return l.Status == StatusActive || l.OwnedBy(viewer)
}

func (l *Listing) apply(attrs Attributes) {
	l.Title = attrs.Title
	l.Description = attrs.Description
	l.Category = attrs.Category
	l.Make = attrs.Make
	l.Model = attrs.Model
	l.Year = attrs.Year
	l.MileageKm = attrs.MileageKm
	l.EngineCC = attrs.EngineCC
	l.Condition = attrs.Condition
	l.PriceCents = attrs.PriceCents
	l.Currency = attrs.Currency
	l.Location = attrs.Location
	l.Photos = attrs.Photos
	l.ThumbnailURL = attrs.ThumbnailURL
	if l.ThumbnailURL == "" && len(l.Photos) > 0 {
		l.ThumbnailURL = l.Photos[0]
	}
}

func (a Attributes) normalized(now time.Time) (Attributes, error) {
	out := a
	out.Title = strings.TrimSpace(a.Title)
	if n := utf8.RuneCountInString(out.Title); n < MinTitleLength || n > MaxTitleLength {
		return Attributes{}, ErrTitleLength
	}
	out.Description = strings.TrimSpace(a.Description)
	if utf8.RuneCountInString(out.Description) > MaxDescriptionLength {
		return Attributes{}, ErrDescriptionLength
	}
	category, ok := ParseCategory(string(a.Category))
	if !ok {
		return Attributes{}, ErrInvalidCategory
	}
	out.Category = category
	condition, ok := ParseCondition(string(a.Condition))
	if !ok {
		return Attributes{}, ErrInvalidCondition
	}
	out.Condition = condition
	out.Make = strings.TrimSpace(a.Make)
	out.Model = strings.TrimSpace(a.Model)
	if category == CategoryMotorcycle && out.Make == "" {
		return Attributes{}, ErrMakeRequired
	}
	if a.PriceCents <= 0 {
		return Attributes{}, ErrPriceRequired
	}
	// Parts and gear may omit the year.
	if a.Year != 0 || category == CategoryMotorcycle {
		if a.Year < MinYear || a.Year > now.Year()+1 {
			return Attributes{}, ErrInvalidYear
		}
	}
	if a.MileageKm < 0 {
		return Attributes{}, ErrInvalidMileage
	}
	if a.EngineCC < 0 {
		return Attributes{}, ErrInvalidEngine
	}
	out.Currency = strings.ToUpper(strings.TrimSpace(a.Currency))
	if out.Currency == "" {
		out.Currency = DefaultCurrency
	}
	if len(out.Currency) != 3 {
		return Attributes{}, ErrInvalidCurrency
	}
	out.Location = strings.TrimSpace(a.Location)
	out.ThumbnailURL = strings.TrimSpace(a.ThumbnailURL)
	if a.Photos != nil {
		photos := make([]string, 0, len(a.Photos))
		for _, photo := range a.Photos {
			if photo = strings.TrimSpace(photo); photo != "" {
				photos = append(photos, photo)
			}
		}
		out.Photos = photos
	}
	return out, nil
}

func ParseCategory(raw string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(raw))) {
	case CategoryMotorcycle:
		return CategoryMotorcycle, true
	case CategoryPart:
		return CategoryPart, true
	case CategoryGear:
		return CategoryGear, true
	}
	return "", false
}

func ParseCondition(raw string) (Condition, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "-", "_")
	switch Condition(value) {
	case ConditionNew:
		return ConditionNew, true
	case ConditionLikeNew:
		return ConditionLikeNew, true
	case ConditionUsed:
		return ConditionUsed, true
	case ConditionForParts:
		return ConditionForParts, true
	}
	return "", false
}

func utcNow(now time.Time) time.Time {
	if now.IsZero() {
		now = time.Now()
	}
	return now.UTC()
}
