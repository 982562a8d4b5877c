package listings

import (
	"context"
	"testing"

	"motomarket/internal/app/dto"
	domainlistings "motomarket/internal/domain/listings"
	"motomarket/internal/infra/storage/memory"
)

type countingSearch struct{ calls int }

func (s *countingSearch) Handle(_ context.Context, q SearchCatalogQuery) (dto.ListingCatalog, error) {
	s.calls++
	return dto.ListingCatalog{Items: []dto.ListingCard{{ID: "l-1", Title: "Ducati"}}}, nil
}

func TestCachedCatalogServesRepeatsFromCache(t *testing.T) {
	t.Parallel()

	next := &countingSearch{}
	cached := &CachedCatalog{Next: next, Cache: memory.NewCache()}
	ctx := context.Background()
	q := SearchCatalogQuery{Filters: domainlistings.Filters{Make: "ducati"}, Limit: 20}

	for range 3 {
		out, err := cached.Handle(ctx, q)
		if err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if len(out.Items) != 1 || out.Items[0].ID != "l-1" {
			t.Fatalf("items = %+v", out.Items)
		}
	}
	if next.calls != 1 {
		t.Fatalf("backend calls = %d, want 1", next.calls)
	}

	if _, err := cached.Handle(ctx, SearchCatalogQuery{Filters: domainlistings.Filters{Make: "honda"}, Limit: 20}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("different filters shared a cache entry")
	}

	if err := cached.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := cached.Handle(ctx, q); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if next.calls != 3 {
		t.Fatalf("backend calls after invalidate = %d, want 3", next.calls)
	}
}

func TestCachedCatalogWithoutCachePassesThrough(t *testing.T) {
	t.Parallel()

	next := &countingSearch{}
	cached := &CachedCatalog{Next: next}
	for range 2 {
		if _, err := cached.Handle(context.Background(), SearchCatalogQuery{}); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	if err := cached.Invalidate(context.Background()); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("backend calls = %d", next.calls)
	}
}
