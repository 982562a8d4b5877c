package sqlstore

import (
	"context"
	"fmt"

	domainfavorites "motomarket/internal/domain/favorites"
	domainlistings "motomarket/internal/domain/listings"
	domainuser "motomarket/internal/domain/user"
)

type favoriteRepo struct{ r runner }

func (repo favoriteRepo) Add(ctx context.Context, fav domainfavorites.Favorite) error {
	_, err := repo.r.exec(ctx,
		`INSERT INTO favorites (user_id, listing_id, created_at) VALUES (?, ?, ?)`,
		string(fav.UserID), string(fav.ListingID), toMillis(fav.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domainfavorites.ErrAlreadyExists
		}
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (repo favoriteRepo) Remove(ctx context.Context, userID domainuser.ID, listingID domainlistings.ListingID) error {
	res, err := repo.r.exec(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND listing_id = ?`, string(userID), string(listingID))
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domainfavorites.ErrNotFound
	}
	return nil
}

func (repo favoriteRepo) RemoveByListing(ctx context.Context, listingID domainlistings.ListingID) error {
	if _, err := repo.r.exec(ctx, `DELETE FROM favorites WHERE listing_id = ?`, string(listingID)); err != nil {
		return fmt.Errorf("remove listing favorites: %w", err)
	}
	return nil
}

func (repo favoriteRepo) Exists(ctx context.Context, userID domainuser.ID, listingID domainlistings.ListingID) (bool, error) {
	var count int
	err := repo.r.queryRow(ctx,
		`SELECT COUNT(*) FROM favorites WHERE user_id = ? AND listing_id = ?`, string(userID), string(listingID)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return count > 0, nil
}

func (repo favoriteRepo) ListByUser(ctx context.Context, userID domainuser.ID) ([]domainfavorites.Favorite, error) {
	rows, err := repo.r.query(ctx,
		`SELECT listing_id, created_at FROM favorites WHERE user_id = ? ORDER BY created_at DESC, listing_id ASC`,
		string(userID))
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()
	var out []domainfavorites.Favorite
	for rows.Next() {
		var (
			listingID string
			createdAt int64
		)
		if err := rows.Scan(&listingID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		out = append(out, domainfavorites.Favorite{
			UserID:    userID,
			ListingID: domainlistings.ListingID(listingID),
			CreatedAt: fromMillis(createdAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return out, nil
}

var _ domainfavorites.Repository = favoriteRepo{}
