package memory

import (
	"context"
	"sort"

	domainfavorites "motomarket/internal/domain/favorites"
	domainlistings "motomarket/internal/domain/listings"
	domainuser "motomarket/internal/domain/user"
)

type favoriteRepo struct{ u *Unit }

func (r favoriteRepo) Add(ctx context.Context, fav domainfavorites.Favorite) error {
	return r.u.write(func(s *Store) (func(), error) {
		byUser, ok := s.favorites[fav.UserID]
		if !ok {
			byUser = make(map[domainlistings.ListingID]domainfavorites.Favorite)
			s.favorites[fav.UserID] = byUser
		}
		if _, dup := byUser[fav.ListingID]; dup {
			return nil, domainfavorites.ErrAlreadyExists
		}
		byUser[fav.ListingID] = fav
		return func() { delete(s.favorites[fav.UserID], fav.ListingID) }, nil
	})
}

func (r favoriteRepo) Remove(ctx context.Context, userID domainuser.ID, listingID domainlistings.ListingID) error {
	return r.u.write(func(s *Store) (func(), error) {
		prev, ok := s.favorites[userID][listingID]
		if !ok {
			return nil, domainfavorites.ErrNotFound
		}
		delete(s.favorites[userID], listingID)
		return func() { s.restoreFavorite(prev) }, nil
	})
}

func (r favoriteRepo) RemoveByListing(ctx context.Context, listingID domainlistings.ListingID) error {
	return r.u.write(func(s *Store) (func(), error) {
		var removed []domainfavorites.Favorite
		for _, byUser := range s.favorites {
			if fav, ok := byUser[listingID]; ok {
				removed = append(removed, fav)
				delete(byUser, listingID)
			}
		}
		if len(removed) == 0 {
			return nil, nil
		}
		return func() {
			for _, fav := range removed {
				s.restoreFavorite(fav)
			}
		}, nil
	})
}

func (r favoriteRepo) Exists(ctx context.Context, userID domainuser.ID, listingID domainlistings.ListingID) (bool, error) {
	var ok bool
	err := r.u.read(func(s *Store) error {
		_, ok = s.favorites[userID][listingID]
		return nil
	})
	return ok, err
}

func (r favoriteRepo) ListByUser(ctx context.Context, userID domainuser.ID) ([]domainfavorites.Favorite, error) {
	var out []domainfavorites.Favorite
	err := r.u.read(func(s *Store) error {
		for _, fav := range s.favorites[userID] {
			out = append(out, fav)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ListingID < out[j].ListingID
	})
	return out, nil
}

func (s *Store) restoreFavorite(fav domainfavorites.Favorite) {
	byUser, ok := s.favorites[fav.UserID]
	if !ok {
		byUser = make(map[domainlistings.ListingID]domainfavorites.Favorite)
		s.favorites[fav.UserID] = byUser
	}
	byUser[fav.ListingID] = fav
}

var _ domainfavorites.Repository = favoriteRepo{}
