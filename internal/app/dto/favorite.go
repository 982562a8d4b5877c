package dto

import "time"

type FavoriteItem struct {
	Listing   ListingCard `json:"listing"`
	CreatedAt time.Time   `json:"createdAt"`
}

type FavoriteList struct {
	Items []FavoriteItem `json:"items"`
}
