package favorites

import (
	"context"
	"errors"
	"time"

	"motomarket/internal/domain/listings"
	"motomarket/internal/domain/user"
)

var (
	ErrAlreadyExists = errors.New("favorites: listing already in favorites")
	ErrNotFound      = errors.New("favorites: not found")
)

type Favorite struct {
	UserID    user.ID
	ListingID listings.ListingID
	CreatedAt time.Time
}

type Repository interface {
	// Add fails with ErrAlreadyExists for a duplicate pair.
	Add(ctx context.Context, fav Favorite) error
	// Remove fails with ErrNotFound when the pair is absent.
	Remove(ctx context.Context, userID user.ID, listingID listings.ListingID) error
	RemoveByListing(ctx context.Context, listingID listings.ListingID) error
	Exists(ctx context.Context, userID user.ID, listingID listings.ListingID) (bool, error)
	// ListByUser returns newest first.
	ListByUser(ctx context.Context, userID user.ID) ([]Favorite, error)
}
