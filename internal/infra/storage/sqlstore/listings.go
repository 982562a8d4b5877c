package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domainlistings "motomarket/internal/domain/listings"
)

type listingRepo struct{ r runner }

const listingColumns = `id, seller_id, title, description, category, make, model, year, mileage_km, engine_cc,
	item_condition, price_cents, currency, location, photos, thumbnail_url, status, created_at, updated_at`

func (repo listingRepo) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	row := repo.r.queryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, string(id))
	listing, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainlistings.ErrNotFound
	}
	return listing, err
}

func (repo listingRepo) Save(ctx context.Context, l *domainlistings.Listing) error {
	if l == nil || strings.TrimSpace(string(l.ID)) == "" {
		return domainlistings.ErrIDRequired
	}
	photos, err := json.Marshal(nonNil(l.Photos))
	if err != nil {
		return fmt.Errorf("encode photos: %w", err)
	}
	_, err = repo.r.exec(ctx,
		`INSERT INTO listings (`+listingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   title = excluded.title,
		   description = excluded.description,
		   category = excluded.category,
		   make = excluded.make,
		   model = excluded.model,
		   year = excluded.year,
		   mileage_km = excluded.mileage_km,
		   engine_cc = excluded.engine_cc,
		   item_condition = excluded.item_condition,
		   price_cents = excluded.price_cents,
		   currency = excluded.currency,
		   location = excluded.location,
		   photos = excluded.photos,
		   thumbnail_url = excluded.thumbnail_url,
		   status = excluded.status,
		   updated_at = excluded.updated_at`,
		string(l.ID),
		string(l.Seller),
		l.Title,
		l.Description,
		string(l.Category),
		l.Make,
		l.Model,
		l.Year,
		l.MileageKm,
		l.EngineCC,
		string(l.Condition),
		l.PriceCents,
		l.Currency,
		l.Location,
		string(photos),
		l.ThumbnailURL,
		string(l.Status),
		toMillis(l.CreatedAt),
		toMillis(l.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save listing: %w", err)
	}
	return nil
}

func (repo listingRepo) Delete(ctx context.Context, id domainlistings.ListingID) error {
	res, err := repo.r.exec(ctx, `DELETE FROM listings WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domainlistings.ErrNotFound
	}
	return nil
}

// Search builds the WHERE clause from normalized filters; ordering mirrors
// domainlistings.Less so the memory and SQL stores page identically.
func (repo listingRepo) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	opts := params.Normalized()
	where, args := listingWhere(opts)

	var total int
	if err := repo.r.queryRow(ctx, `SELECT COUNT(*) FROM listings`+where, args...).Scan(&total); err != nil {
		return domainlistings.SearchResult{}, fmt.Errorf("count listings: %w", err)
	}

	query := `SELECT ` + listingColumns + ` FROM listings` + where +
		` ORDER BY ` + listingOrder(opts.Sort) + ` LIMIT ? OFFSET ?`
	rows, err := repo.r.query(ctx, query, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return domainlistings.SearchResult{}, fmt.Errorf("search listings: %w", err)
	}
	items, err := scanListings(rows)
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	return domainlistings.SearchResult{Items: items, Total: total}, nil
}

func (repo listingRepo) ListBySeller(ctx context.Context, seller domainlistings.SellerID) ([]*domainlistings.Listing, error) {
	rows, err := repo.r.query(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE seller_id = ? ORDER BY `+listingOrder(domainlistings.SortNewest),
		string(seller))
	if err != nil {
		return nil, fmt.Errorf("list seller listings: %w", err)
	}
	return scanListings(rows)
}

func listingWhere(opts domainlistings.SearchParams) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, values ...any) {
		clauses = append(clauses, clause)
		args = append(args, values...)
	}
	f := opts.Filters
	if opts.OnlyActive {
		add(`status = ?`, string(domainlistings.StatusActive))
	}
	if f.Seller != "" {
		add(`seller_id = ?`, string(f.Seller))
	}
	if f.Category != "" {
		add(`category = ?`, string(f.Category))
	}
	if f.Condition != "" {
		add(`item_condition = ?`, string(f.Condition))
	}
	if f.Make != "" {
		add(`LOWER(make) LIKE ? ESCAPE '\'`, likePattern(f.Make))
	}
	if f.Model != "" {
		add(`LOWER(model) LIKE ? ESCAPE '\'`, likePattern(f.Model))
	}
	if f.Location != "" {
		add(`LOWER(location) LIKE ? ESCAPE '\'`, likePattern(f.Location))
	}
	if f.PriceMinCents > 0 {
		add(`price_cents >= ?`, f.PriceMinCents)
	}
	if f.PriceMaxCents > 0 {
		add(`price_cents <= ?`, f.PriceMaxCents)
	}
	if f.YearMin > 0 {
		add(`year >= ?`, f.YearMin)
	}
	if f.YearMax > 0 {
		add(`year <= ?`, f.YearMax)
	}
	if f.MileageMaxKm > 0 {
		add(`mileage_km <= ?`, f.MileageMaxKm)
	}
	if f.Query != "" {
		add(`LOWER(title || ' ' || make || ' ' || model || ' ' || description || ' ' || location) LIKE ? ESCAPE '\'`, likePattern(f.Query))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func listingOrder(sort domainlistings.CatalogSort) string {
	const tiebreak = "created_at DESC, id ASC"
	switch sort {
	case domainlistings.SortPriceAsc:
		return "price_cents ASC, " + tiebreak
	case domainlistings.SortPriceDesc:
		return "price_cents DESC, " + tiebreak
	case domainlistings.SortYearDesc:
		return "year DESC, " + tiebreak
	case domainlistings.SortMileageAsc:
		return "mileage_km ASC, " + tiebreak
	default:
		return tiebreak
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*domainlistings.Listing, error) {
	var (
		l                                               domainlistings.Listing
		id, seller, category, condition, status, photos string
		createdAt, updatedAt                            int64
	)
	err := row.Scan(&id, &seller, &l.Title, &l.Description, &category, &l.Make, &l.Model, &l.Year, &l.MileageKm, &l.EngineCC,
		&condition, &l.PriceCents, &l.Currency, &l.Location, &photos, &l.ThumbnailURL, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	l.ID = domainlistings.ListingID(id)
	l.Seller = domainlistings.SellerID(seller)
	l.Category = domainlistings.Category(category)
	l.Condition = domainlistings.Condition(condition)
	l.Status = domainlistings.Status(status)
	l.CreatedAt = fromMillis(createdAt)
	l.UpdatedAt = fromMillis(updatedAt)
	if photos != "" {
		if err := json.Unmarshal([]byte(photos), &l.Photos); err != nil {
			return nil, fmt.Errorf("decode photos of %s: %w", id, err)
		}
	}
	return &l, nil
}

func scanListings(rows *sql.Rows) ([]*domainlistings.Listing, error) {
	defer rows.Close()
	var out []*domainlistings.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	return out, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

var _ domainlistings.Repository = listingRepo{}
