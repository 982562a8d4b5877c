package memory

import (
	"context"
	"sort"
	"strings"

	domainlistings "motomarket/internal/domain/listings"
)

type listingRepo struct{ u *Unit }

func (r listingRepo) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var out *domainlistings.Listing
	err := r.u.read(func(s *Store) error {
		listing, ok := s.listings[id]
		if !ok {
			return domainlistings.ErrNotFound
		}
		out = cloneListing(listing)
		return nil
	})
	return out, err
}

func (r listingRepo) Save(ctx context.Context, listing *domainlistings.Listing) error {
	if listing == nil || strings.TrimSpace(string(listing.ID)) == "" {
		return domainlistings.ErrIDRequired
	}
	return r.u.write(func(s *Store) (func(), error) {
		prev, existed := s.listings[listing.ID]
		s.listings[listing.ID] = cloneListing(listing)
		return func() {
			if existed {
				s.listings[listing.ID] = prev
				return
			}
			delete(s.listings, listing.ID)
		}, nil
	})
}

func (r listingRepo) Delete(ctx context.Context, id domainlistings.ListingID) error {
	return r.u.write(func(s *Store) (func(), error) {
		prev, ok := s.listings[id]
		if !ok {
			return nil, domainlistings.ErrNotFound
		}
		delete(s.listings, id)
		return func() { s.listings[id] = prev }, nil
	})
}

// Search returns listings that satisfy the filters, ordered and paged.
func (r listingRepo) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	opts := params.Normalized()
	var matches []*domainlistings.Listing
	err := r.u.read(func(s *Store) error {
		matches = make([]*domainlistings.Listing, 0, len(s.listings))
		for _, listing := range s.listings {
			if err := ctx.Err(); err != nil {
				return err
			}
			if opts.OnlyActive && listing.Status != domainlistings.StatusActive {
				continue
			}
			if !opts.Filters.Matches(listing) {
				continue
			}
			matches = append(matches, listing)
		}
		return nil
	})
	if err != nil {
		return domainlistings.SearchResult{}, err
	}

	sort.Slice(matches, func(i, j int) bool {
		return domainlistings.Less(opts.Sort, matches[i], matches[j])
	})

	total := len(matches)
	start := opts.Offset
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}
	items := make([]*domainlistings.Listing, 0, end-start)
	for _, listing := range matches[start:end] {
		items = append(items, cloneListing(listing))
	}
	return domainlistings.SearchResult{Items: items, Total: total}, nil
}

// ListBySeller returns every listing of the seller regardless of status,
// newest first.
func (r listingRepo) ListBySeller(ctx context.Context, seller domainlistings.SellerID) ([]*domainlistings.Listing, error) {
	var out []*domainlistings.Listing
	err := r.u.read(func(s *Store) error {
		for _, listing := range s.listings {
			if listing.Seller == seller {
				out = append(out, cloneListing(listing))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return domainlistings.Less(domainlistings.SortNewest, out[i], out[j])
	})
	return out, nil
}

var _ domainlistings.Repository = listingRepo{}
