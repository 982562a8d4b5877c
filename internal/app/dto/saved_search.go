package dto

import (
	"time"

	domainsavedsearch "motomarket/internal/domain/savedsearch"
)

type SavedSearch struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Filters       CatalogFilters `json:"filters"`
	Sort          string         `json:"sort"`
	AlertsEnabled bool           `json:"alertsEnabled"`
	CreatedAt     time.Time      `json:"createdAt"`
	LastRunAt     *time.Time     `json:"lastRunAt,omitempty"`
}

type SavedSearchList struct {
	Items []SavedSearch `json:"items"`
}

type SavedSearchResults struct {
	Search  SavedSearch    `json:"search"`
	Catalog ListingCatalog `json:"results"`
}

func MapSavedSearch(s *domainsavedsearch.SavedSearch) SavedSearch {
	if s == nil {
		return SavedSearch{}
	}
	out := SavedSearch{
		ID:            string(s.ID),
		Name:          s.Name,
		Filters:       MapCatalogFilters(s.Filters),
		Sort:          string(s.Sort),
		AlertsEnabled: s.AlertsEnabled,
		CreatedAt:     s.CreatedAt,
	}
	if !s.LastRunAt.IsZero() {
		last := s.LastRunAt
		out.LastRunAt = &last
	}
	return out
}
