package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domainlistings "motomarket/internal/domain/listings"
	domainsavedsearch "motomarket/internal/domain/savedsearch"
	domainuser "motomarket/internal/domain/user"
)

type savedSearchRepo struct{ r runner }

const savedSearchColumns = `id, user_id, name, filters, sort, alerts_enabled, created_at, last_run_at`

func (repo savedSearchRepo) Save(ctx context.Context, s *domainsavedsearch.SavedSearch) error {
	if s == nil || strings.TrimSpace(string(s.ID)) == "" {
		return domainsavedsearch.ErrIDRequired
	}
	filters, err := json.Marshal(s.Filters)
	if err != nil {
		return fmt.Errorf("encode filters: %w", err)
	}
	_, err = repo.r.exec(ctx,
		`INSERT INTO saved_searches (`+savedSearchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name,
		   filters = excluded.filters,
		   sort = excluded.sort,
		   alerts_enabled = excluded.alerts_enabled,
		   last_run_at = excluded.last_run_at`,
		string(s.ID),
		string(s.UserID),
		s.Name,
		string(filters),
		string(s.Sort),
		boolInt(s.AlertsEnabled),
		toMillis(s.CreatedAt),
		toMillis(s.LastRunAt),
	)
	if err != nil {
		return fmt.Errorf("save saved search: %w", err)
	}
	return nil
}

func (repo savedSearchRepo) ByID(ctx context.Context, id domainsavedsearch.ID) (*domainsavedsearch.SavedSearch, error) {
	row := repo.r.queryRow(ctx, `SELECT `+savedSearchColumns+` FROM saved_searches WHERE id = ?`, string(id))
	s, err := scanSavedSearch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainsavedsearch.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan saved search: %w", err)
	}
	return s, nil
}

func (repo savedSearchRepo) Delete(ctx context.Context, id domainsavedsearch.ID) error {
	res, err := repo.r.exec(ctx, `DELETE FROM saved_searches WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete saved search: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domainsavedsearch.ErrNotFound
	}
	return nil
}

func (repo savedSearchRepo) ListByUser(ctx context.Context, userID domainuser.ID) ([]*domainsavedsearch.SavedSearch, error) {
	return repo.list(ctx,
		`SELECT `+savedSearchColumns+` FROM saved_searches WHERE user_id = ? ORDER BY created_at DESC, id ASC`,
		string(userID))
}

func (repo savedSearchRepo) CountByUser(ctx context.Context, userID domainuser.ID) (int, error) {
	var count int
	err := repo.r.queryRow(ctx, `SELECT COUNT(*) FROM saved_searches WHERE user_id = ?`, string(userID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count saved searches: %w", err)
	}
	return count, nil
}

func (repo savedSearchRepo) ListAlerting(ctx context.Context) ([]*domainsavedsearch.SavedSearch, error) {
	return repo.list(ctx, `SELECT `+savedSearchColumns+` FROM saved_searches WHERE alerts_enabled = 1 ORDER BY id ASC`)
}

func (repo savedSearchRepo) list(ctx context.Context, query string, args ...any) ([]*domainsavedsearch.SavedSearch, error) {
	rows, err := repo.r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list saved searches: %w", err)
	}
	defer rows.Close()
	var out []*domainsavedsearch.SavedSearch
	for rows.Next() {
		s, err := scanSavedSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saved search: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved searches: %w", err)
	}
	return out, nil
}

func scanSavedSearch(row rowScanner) (*domainsavedsearch.SavedSearch, error) {
	var (
		s                         domainsavedsearch.SavedSearch
		id, userID, filters, sort string
		alerts                    int
		createdAt, lastRunAt      int64
	)
	if err := row.Scan(&id, &userID, &s.Name, &filters, &sort, &alerts, &createdAt, &lastRunAt); err != nil {
		return nil, err
	}
	if filters != "" {
		if err := json.Unmarshal([]byte(filters), &s.Filters); err != nil {
			return nil, fmt.Errorf("decode filters of %s: %w", id, err)
		}
	}
	s.ID = domainsavedsearch.ID(id)
	s.UserID = domainuser.ID(userID)
	s.Sort = domainlistings.ParseSort(sort)
	s.AlertsEnabled = alerts != 0
	s.CreatedAt = fromMillis(createdAt)
	s.LastRunAt = fromMillis(lastRunAt)
	return &s, nil
}

var _ domainsavedsearch.Repository = savedSearchRepo{}
