package savedsearches

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"motomarket/internal/app/commands"
	"motomarket/internal/app/dto"
	"motomarket/internal/app/queries"
	"motomarket/internal/app/uow"
	domainlistings "motomarket/internal/domain/listings"
	domainsavedsearch "motomarket/internal/domain/savedsearch"
	domainuser "motomarket/internal/domain/user"
)

const (
	createKey = "savedsearches.create"
	deleteKey = "savedsearches.delete"
	listKey   = "savedsearches.list"
	runKey    = "savedsearches.run"
)

type CreateCommand struct {
	UserID        string
	Name          string
	Filters       domainlistings.Filters
	Sort          string
	AlertsEnabled bool
}

func (c CreateCommand) Key() string     { return createKey }
func (c CreateCommand) ActorID() string { return c.UserID }

type CreateHandler struct {
	Logger *slog.Logger
	Now    func() time.Time
}

func (h *CreateHandler) Handle(ctx context.Context, cmd CreateCommand) (dto.SavedSearch, error) {
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.SavedSearch{}, err
	}
	owner := domainuser.ID(cmd.UserID)
	count, err := unit.SavedSearches().CountByUser(ctx, owner)
	if err != nil {
		return dto.SavedSearch{}, err
	}
	if count >= domainsavedsearch.MaxPerUser {
		return dto.SavedSearch{}, domainsavedsearch.ErrLimitReached
	}
	search, err := domainsavedsearch.New(domainsavedsearch.CreateParams{
		ID:            domainsavedsearch.ID(uuid.NewString()),
		UserID:        owner,
		Name:          cmd.Name,
		Filters:       cmd.Filters,
		Sort:          domainlistings.CatalogSort(cmd.Sort),
		AlertsEnabled: cmd.AlertsEnabled,
		Now:           clock(h.Now),
	})
	if err != nil {
		return dto.SavedSearch{}, err
	}
	if err := unit.SavedSearches().Save(ctx, search); err != nil {
		return dto.SavedSearch{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("saved search created", "saved_search_id", search.ID, "user_id", owner, "alerts", search.AlertsEnabled)
	}
	return dto.MapSavedSearch(search), nil
}

type DeleteCommand struct {
	UserID string
	ID     string
}

func (c DeleteCommand) Key() string     { return deleteKey }
func (c DeleteCommand) ActorID() string { return c.UserID }

type DeleteHandler struct{}

func (h *DeleteHandler) Handle(ctx context.Context, cmd DeleteCommand) (struct{}, error) {
	unit, search, err := loadOwned(ctx, cmd.UserID, cmd.ID)
	if err != nil {
		return struct{}{}, err
	}
	return struct{}{}, unit.SavedSearches().Delete(ctx, search.ID)
}

// RunCommand executes the stored filters against the public catalog and
// stamps the last run time, hence a command rather than a query.
type RunCommand struct {
	UserID string
	ID     string
	Limit  int
	Offset int
}

func (c RunCommand) Key() string     { return runKey }
func (c RunCommand) ActorID() string { return c.UserID }

type RunHandler struct {
	Now func() time.Time
}

func (h *RunHandler) Handle(ctx context.Context, cmd RunCommand) (dto.SavedSearchResults, error) {
	unit, search, err := loadOwned(ctx, cmd.UserID, cmd.ID)
	if err != nil {
		return dto.SavedSearchResults{}, err
	}
	params := search.Params(cmd.Limit, cmd.Offset)
	result, err := unit.Listings().Search(ctx, params)
	if err != nil {
		return dto.SavedSearchResults{}, err
	}
	search.MarkRun(clock(h.Now))
	if err := unit.SavedSearches().Save(ctx, search); err != nil {
		return dto.SavedSearchResults{}, err
	}
	return dto.SavedSearchResults{
		Search:  dto.MapSavedSearch(search),
		Catalog: dto.MapCatalog(result, params),
	}, nil
}

type ListQuery struct {
	UserID string
}

func (q ListQuery) Key() string     { return listKey }
func (q ListQuery) ActorID() string { return q.UserID }

type ListHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListHandler) Handle(ctx context.Context, q ListQuery) (dto.SavedSearchList, error) {
	unit, ctx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.SavedSearchList{}, err
	}
	defer release()

	items, err := unit.SavedSearches().ListByUser(ctx, domainuser.ID(q.UserID))
	if err != nil {
		return dto.SavedSearchList{}, err
	}
	out := dto.SavedSearchList{Items: make([]dto.SavedSearch, 0, len(items))}
	for _, s := range items {
		out.Items = append(out.Items, dto.MapSavedSearch(s))
	}
	return out, nil
}

func loadOwned(ctx context.Context, userID, id string) (uow.UnitOfWork, *domainsavedsearch.SavedSearch, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil, domainsavedsearch.ErrIDRequired
	}
	unit, err := uow.Require(ctx)
	if err != nil {
		return nil, nil, err
	}
	search, err := unit.SavedSearches().ByID(ctx, domainsavedsearch.ID(id))
	if err != nil {
		return nil, nil, err
	}
	if !search.OwnedBy(domainuser.ID(userID)) {
		return nil, nil, domainsavedsearch.ErrNotOwner
	}
	return unit, search, nil
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}

var (
	_ commands.Handler[CreateCommand, dto.SavedSearch]     = (*CreateHandler)(nil)
	_ commands.Handler[DeleteCommand, struct{}]            = (*DeleteHandler)(nil)
	_ commands.Handler[RunCommand, dto.SavedSearchResults] = (*RunHandler)(nil)
	_ queries.Handler[ListQuery, dto.SavedSearchList]      = (*ListHandler)(nil)
)
