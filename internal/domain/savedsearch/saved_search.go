package savedsearch

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"motomarket/internal/domain/listings"
	"motomarket/internal/domain/user"
)

var (
	ErrIDRequired    = errors.New("savedsearch: id is required")
	ErrOwnerRequired = errors.New("savedsearch: owner is required")
	ErrNameRequired  = errors.New("savedsearch: name is required")
	ErrNameTooLong   = errors.New("savedsearch: name is too long")
	ErrLimitReached  = errors.New("savedsearch: saved search limit reached")
	ErrNotOwner      = errors.New("savedsearch: not the owner")
	ErrNotFound      = errors.New("savedsearch: not found")
)

const (
	MaxPerUser    = 50
	MaxNameLength = 80
)

type ID string

type SavedSearch struct {
	ID            ID
	UserID        user.ID
	Name          string
	Filters       listings.Filters
	Sort          listings.CatalogSort
	AlertsEnabled bool
	CreatedAt     time.Time
	LastRunAt     time.Time
}

type Repository interface {
	Save(ctx context.Context, s *SavedSearch) error
	ByID(ctx context.Context, id ID) (*SavedSearch, error)
	Delete(ctx context.Context, id ID) error
	// ListByUser returns newest first.
	ListByUser(ctx context.Context, userID user.ID) ([]*SavedSearch, error)
	CountByUser(ctx context.Context, userID user.ID) (int, error)
	ListAlerting(ctx context.Context) ([]*SavedSearch, error)
}

type CreateParams struct {
	ID            ID
	UserID        user.ID
	Name          string
	Filters       listings.Filters
	Sort          listings.CatalogSort
	AlertsEnabled bool
	Now           time.Time
}

func New(params CreateParams) (*SavedSearch, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.UserID)) == "" {
		return nil, ErrOwnerRequired
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, ErrNameTooLong
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &SavedSearch{
		ID:            params.ID,
		UserID:        params.UserID,
		Name:          name,
		Filters:       params.Filters.Normalized(),
		Sort:          listings.ParseSort(string(params.Sort)),
		AlertsEnabled: params.AlertsEnabled,
		CreatedAt:     now.UTC(),
	}, nil
}

func (s *SavedSearch) OwnedBy(id user.ID) bool {
	return id != "" && s.UserID == id
}

// Params turns the stored filters into a catalog query.
func (s *SavedSearch) Params(limit, offset int) listings.SearchParams {
	return listings.SearchParams{
		Filters:    s.Filters,
		Sort:       s.Sort,
		Limit:      limit,
		Offset:     offset,
		OnlyActive: true,
	}.Normalized()
}

// ShouldAlert reports whether a freshly published listing warrants a
// notification to the owner. Sellers are never alerted about their own
// listings.
func (s *SavedSearch) ShouldAlert(l *listings.Listing) bool {
	if !s.AlertsEnabled || l == nil || l.Status != listings.StatusActive {
		return false
	}
	if string(l.Seller) == string(s.UserID) {
		return false
	}
	return s.Filters.Normalized().Matches(l)
}

func (s *SavedSearch) MarkRun(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	s.LastRunAt = now.UTC()
}
