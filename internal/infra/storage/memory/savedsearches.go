package memory

import (
	"context"
	"sort"
	"strings"

	domainsavedsearch "motomarket/internal/domain/savedsearch"
	domainuser "motomarket/internal/domain/user"
)

type savedSearchRepo struct{ u *Unit }

func (r savedSearchRepo) Save(ctx context.Context, search *domainsavedsearch.SavedSearch) error {
	if search == nil || strings.TrimSpace(string(search.ID)) == "" {
		return domainsavedsearch.ErrIDRequired
	}
	return r.u.write(func(s *Store) (func(), error) {
		prev, existed := s.savedSearches[search.ID]
		s.savedSearches[search.ID] = cloneSavedSearch(search)
		return func() {
			if existed {
				s.savedSearches[search.ID] = prev
				return
			}
			delete(s.savedSearches, search.ID)
		}, nil
	})
}

func (r savedSearchRepo) ByID(ctx context.Context, id domainsavedsearch.ID) (*domainsavedsearch.SavedSearch, error) {
	var out *domainsavedsearch.SavedSearch
	err := r.u.read(func(s *Store) error {
		search, ok := s.savedSearches[id]
		if !ok {
			return domainsavedsearch.ErrNotFound
		}
		out = cloneSavedSearch(search)
		return nil
	})
	return out, err
}

func (r savedSearchRepo) Delete(ctx context.Context, id domainsavedsearch.ID) error {
	return r.u.write(func(s *Store) (func(), error) {
		prev, ok := s.savedSearches[id]
		if !ok {
			return nil, domainsavedsearch.ErrNotFound
		}
		delete(s.savedSearches, id)
		return func() { s.savedSearches[id] = prev }, nil
	})
}

func (r savedSearchRepo) ListByUser(ctx context.Context, userID domainuser.ID) ([]*domainsavedsearch.SavedSearch, error) {
	out, err := r.collect(func(search *domainsavedsearch.SavedSearch) bool {
		return search.UserID == userID
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r savedSearchRepo) CountByUser(ctx context.Context, userID domainuser.ID) (int, error) {
	out, err := r.collect(func(search *domainsavedsearch.SavedSearch) bool {
		return search.UserID == userID
	})
	return len(out), err
}

func (r savedSearchRepo) ListAlerting(ctx context.Context) ([]*domainsavedsearch.SavedSearch, error) {
	out, err := r.collect(func(search *domainsavedsearch.SavedSearch) bool {
		return search.AlertsEnabled
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r savedSearchRepo) collect(keep func(*domainsavedsearch.SavedSearch) bool) ([]*domainsavedsearch.SavedSearch, error) {
	var out []*domainsavedsearch.SavedSearch
	err := r.u.read(func(s *Store) error {
		for _, search := range s.savedSearches {
			if keep(search) {
				out = append(out, cloneSavedSearch(search))
			}
		}
		return nil
	})
	return out, err
}

var _ domainsavedsearch.Repository = savedSearchRepo{}
