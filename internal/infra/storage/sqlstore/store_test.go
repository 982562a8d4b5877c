package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"motomarket/internal/app/uow"
	domainauth "motomarket/internal/domain/auth"
	domainfavorites "motomarket/internal/domain/favorites"
	domainlistings "motomarket/internal/domain/listings"
	domainmessaging "motomarket/internal/domain/messaging"
	domainnotifications "motomarket/internal/domain/notifications"
	domainsavedsearch "motomarket/internal/domain/savedsearch"
	domainuser "motomarket/internal/domain/user"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// inTx runs fn in a committed unit.
func inTx(t *testing.T, store *Store, fn func(ctx context.Context, unit uow.UnitOfWork)) {
	t.Helper()
	ctx := context.Background()
	unit, err := store.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer unit.Rollback(ctx)
	fn(ctx, unit)
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func newListing(t *testing.T, id string, price int64, created time.Time) *domainlistings.Listing {
	t.Helper()
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:     domainlistings.ListingID(id),
		Seller: "seller-1",
		Attributes: domainlistings.Attributes{
			Title:      "Listing " + id,
			Category:   domainlistings.CategoryMotorcycle,
			Make:       "Yamaha",
			Model:      "MT-07",
			Year:       2021,
			Condition:  domainlistings.ConditionUsed,
			PriceCents: price,
			Location:   "Denver",
			Photos:     []string{"https://cdn.example.com/" + id + ".jpg"},
		},
		Now: created,
	})
	if err != nil {
		t.Fatalf("NewListing: %v", err)
	}
	return listing
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")
	first, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	second, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	if err := second.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestUsersAndSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	users := store.Users()

	u, err := domainuser.NewUser(domainuser.CreateParams{ID: "u1", Email: "rider@example.com", Name: "Rider", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	if err := users.Save(ctx, u); err != nil {
		t.Fatalf("Save: %v", err)
	}
	dup, _ := domainuser.NewUser(domainuser.CreateParams{ID: "u2", Email: "RIDER@example.com", Name: "Other", PasswordHash: "hash"})
	if err := users.Save(ctx, dup); !errors.Is(err, domainuser.ErrEmailAlreadyUsed) {
		t.Fatalf("err = %v, want %v", err, domainuser.ErrEmailAlreadyUsed)
	}
	got, err := users.ByEmail(ctx, "Rider@Example.com")
	if err != nil {
		t.Fatalf("ByEmail: %v", err)
	}
	if got.ID != "u1" || got.Name != "Rider" {
		t.Fatalf("user = %+v", got)
	}

	sessions := store.Sessions()
	now := time.Now().UTC()
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{ID: "s1", UserID: "u1", TTL: time.Hour, Now: now})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := sessions.Save(ctx, session); err != nil {
		t.Fatalf("Save session: %v", err)
	}
	loaded, err := sessions.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.UserID != "u1" {
		t.Fatalf("session user = %s, want u1", loaded.UserID)
	}
	if err := sessions.DeleteByUser(ctx, "u1"); err != nil {
		t.Fatalf("DeleteByUser: %v", err)
	}
	if _, err := sessions.Get(ctx, "s1"); !errors.Is(err, domainauth.ErrSessionNotFound) {
		t.Fatalf("err = %v, want %v", err, domainauth.ErrSessionNotFound)
	}
}

func TestListingRoundTripAndSearch(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	inTx(t, store, func(ctx context.Context, unit uow.UnitOfWork) {
		for i := 0; i < 4; i++ {
			l := newListing(t, fmt.Sprintf("l%d", i), int64(1000*(i+1)), base.Add(time.Duration(i)*time.Hour))
			if err := unit.Listings().Save(ctx, l); err != nil {
				t.Fatalf("Save: %v", err)
			}
		}
		sold := newListing(t, "sold", 500, base)
		if err := sold.MarkSold(base); err != nil {
			t.Fatalf("MarkSold: %v", err)
		}
		if err := unit.Listings().Save(ctx, sold); err != nil {
			t.Fatalf("Save: %v", err)
		}
	})

	inTx(t, store, func(ctx context.Context, unit uow.UnitOfWork) {
		got, err := unit.Listings().ByID(ctx, "l2")
		if err != nil {
			t.Fatalf("ByID: %v", err)
		}
		if got.PriceCents != 3000 || got.Make != "Yamaha" || len(got.Photos) != 1 {
			t.Fatalf("listing = %+v", got)
		}
		if !got.CreatedAt.Equal(base.Add(2 * time.Hour)) {
			t.Fatalf("created = %v", got.CreatedAt)
		}

		res, err := unit.Listings().Search(ctx, domainlistings.SearchParams{
			Sort:       domainlistings.SortPriceDesc,
			Limit:      2,
			OnlyActive: true,
		})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if res.Total != 4 {
			t.Fatalf("total = %d, want 4", res.Total)
		}
		if len(res.Items) != 2 || res.Items[0].ID != "l3" || res.Items[1].ID != "l2" {
			t.Fatalf("items = %v", res.Items)
		}

		filtered, err := unit.Listings().Search(ctx, domainlistings.SearchParams{
			Filters:    domainlistings.Filters{Query: "LISTING L1"},
			OnlyActive: true,
		})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if filtered.Total != 1 || filtered.Items[0].ID != "l1" {
			t.Fatalf("filtered = %+v", filtered)
		}

		if err := unit.Listings().Delete(ctx, "missing"); !errors.Is(err, domainlistings.ErrNotFound) {
			t.Fatalf("err = %v, want %v", err, domainlistings.ErrNotFound)
		}
	})
}

func TestRollbackDiscardsWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	unit, err := store.Begin(ctx, uow.TxOptions{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := unit.Listings().Save(ctx, newListing(t, "l1", 100, time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := unit.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	inTx(t, store, func(ctx context.Context, unit uow.UnitOfWork) {
		if _, err := unit.Listings().ByID(ctx, "l1"); !errors.Is(err, domainlistings.ErrNotFound) {
			t.Fatalf("err = %v, want %v", err, domainlistings.ErrNotFound)
		}
	})
}

func TestConversationPairIsUnique(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	inTx(t, store, func(ctx context.Context, unit uow.UnitOfWork) {
		first, _ := domainmessaging.NewConversation(domainmessaging.NewConversationParams{ID: "c1", Initiator: "buyer", Counterpart: "seller", ListingID: "l1"})
		if err := unit.Conversations().Create(ctx, first); err != nil {
			t.Fatalf("Create: %v", err)
		}
		mirrored, _ := domainmessaging.NewConversation(domainmessaging.NewConversationParams{ID: "c2", Initiator: "seller", Counterpart: "buyer", ListingID: "l1"})
		if err := unit.Conversations().Create(ctx, mirrored); !errors.Is(err, domainmessaging.ErrConversationExists) {
			t.Fatalf("err = %v, want %v", err, domainmessaging.ErrConversationExists)
		}
	})
	inTx(t, store, func(ctx context.Context, unit uow.UnitOfWork) {
		found, err := unit.Conversations().FindByParticipants(ctx, "seller", "buyer", "l1")
		if err != nil {
			t.Fatalf("FindByParticipants: %v", err)
		}
		if found.ID != "c1" || found.UnreadFor("seller") != 0 {
			t.Fatalf("conversation = %+v", found)
		}
		list, err := unit.Conversations().ListByParticipant(ctx, "seller")
		if err != nil {
			t.Fatalf("ListByParticipant: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("len = %d, want 1", len(list))
		}
	})
}

func TestMessagesOrderAndRead(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	inTx(t, store, func(ctx context.Context, unit uow.UnitOfWork) {
		conv, _ := domainmessaging.NewConversation(domainmessaging.NewConversationParams{ID: "c1", Initiator: "a", Counterpart: "b", Now: base})
		if err := unit.Conversations().Create(ctx, conv); err != nil {
			t.Fatalf("Create: %v", err)
		}
		for i, sender := range []domainuser.ID{"a", "b", "a", "a"} {
			msg, err := domainmessaging.NewMessage(domainmessaging.NewMessageParams{
				ID:             domainmessaging.MessageID(fmt.Sprintf("m%d", i)),
				ConversationID: "c1",
				SenderID:       sender,
				Content:        "ping",
				Now:            base.Add(time.Duration(i) * time.Minute),
			})
			if err != nil {
				t.Fatalf("NewMessage: %v", err)
			}
			if _, err := conv.Deliver(msg); err != nil {
				t.Fatalf("Deliver: %v", err)
			}
			if err := unit.Messages().Append(ctx, msg); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}
		if err := unit.Conversations().Save(ctx, conv); err != nil {
			t.Fatalf("Save: %v", err)
		}
	})

	inTx(t, store, func(ctx context.Context, unit uow.UnitOfWork) {
		page, err := unit.Messages().ListByConversation(ctx, "c1", domainmessaging.MessagePage{Limit: 3})
		if err != nil {
			t.Fatalf("ListByConversation: %v", err)
		}
		if len(page) != 3 || page[0].ID != "m1" || page[2].ID != "m3" {
			t.Fatalf("page = %+v", page)
		}
		conv, err := unit.Conversations().ByID(ctx, "c1")
		if err != nil {
			t.Fatalf("ByID: %v", err)
		}
		if conv.UnreadFor("b") != 3 || conv.UnreadFor("a") != 1 {
			t.Fatalf("unread = %v", conv.Unread)
		}
		changed, err := unit.Messages().MarkRead(ctx, "c1", "b")
		if err != nil {
			t.Fatalf("MarkRead: %v", err)
		}
		if changed != 3 {
			t.Fatalf("changed = %d, want 3", changed)
		}
		if n, _ := unit.Messages().CountUnread(ctx, "c1", "b"); n != 0 {
			t.Fatalf("unread for b = %d, want 0", n)
		}
	})
}

func TestMessagesPageByIDWhenTimestampsTie(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	inTx(t, store, func(ctx context.Context, unit uow.UnitOfWork) {
		conv, _ := domainmessaging.NewConversation(domainmessaging.NewConversationParams{ID: "c1", Initiator: "a", Counterpart: "b", Now: at})
		if err := unit.Conversations().Create(ctx, conv); err != nil {
			t.Fatalf("Create: %v", err)
		}
		for i := 0; i < 3; i++ {
			msg, _ := domainmessaging.NewMessage(domainmessaging.NewMessageParams{
				ID:             domainmessaging.MessageID(fmt.Sprintf("m%d", i)),
				ConversationID: "c1",
				SenderID:       "a",
				Content:        "same instant",
				Now:            at,
			})
			if err := unit.Messages().Append(ctx, msg); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}
	})

	inTx(t, store, func(ctx context.Context, unit uow.UnitOfWork) {
		first, err := unit.Messages().ListByConversation(ctx, "c1", domainmessaging.MessagePage{Limit: 2})
		if err != nil {
			t.Fatalf("ListByConversation: %v", err)
		}
		if len(first) != 2 || first[0].ID != "m1" || first[1].ID != "m2" {
			t.Fatalf("first = %+v", first)
		}
		second, err := unit.Messages().ListByConversation(ctx, "c1", domainmessaging.MessagePage{Limit: 2, BeforeID: first[0].ID})
		if err != nil {
			t.Fatalf("ListByConversation: %v", err)
		}
		if len(second) != 1 || second[0].ID != "m0" {
			t.Fatalf("second = %+v", second)
		}
	})
}

func TestMessageSeqIsUniquePerConversation(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	insert := `INSERT INTO messages (id, conversation_id, seq, sender_id, content, sent_at, is_read) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := store.db.ExecContext(ctx, insert, "m1", "c1", 1, "a", "one", 1, 0); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.db.ExecContext(ctx, insert, "m2", "c2", 1, "a", "other thread", 1, 0); err != nil {
		t.Fatalf("insert other thread: %v", err)
	}
	_, err := store.db.ExecContext(ctx, insert, "m3", "c1", 1, "b", "duplicate seq", 1, 0)
	if !isUniqueViolation(err) {
		t.Fatalf("duplicate seq err = %v, want unique violation", err)
	}
}

func TestWriteUnitsLockConversationRows(t *testing.T) {
	t.Parallel()

	locked := rebind(dialectPostgres, conversationQuery(`id = ?`, true))
	if !strings.HasSuffix(locked, "WHERE id = $1 FOR UPDATE") {
		t.Fatalf("locked query = %q", locked)
	}
	if plain := conversationQuery(`id = ?`, false); strings.Contains(plain, "FOR UPDATE") {
		t.Fatalf("plain query = %q", plain)
	}

	pg := &Store{dialect: dialectPostgres}
	if !pg.lockRows(uow.TxOptions{}) {
		t.Fatal("postgres write units must lock conversation rows")
	}
	if pg.lockRows(uow.TxOptions{ReadOnly: true}) {
		t.Fatal("postgres read-only units must not lock")
	}

	store := openTestStore(t)
	unit, err := store.Begin(context.Background(), uow.TxOptions{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer unit.Rollback(context.Background())
	if repo := unit.Conversations().(conversationRepo); repo.lock {
		t.Fatal("sqlite units rely on BEGIN IMMEDIATE, not row locks")
	}
	if _, err := unit.Conversations().ByID(context.Background(), "missing"); !errors.Is(err, domainmessaging.ErrConversationNotFound) {
		t.Fatalf("ByID err = %v", err)
	}
}

func TestNotificationsNewestFirst(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	inTx(t, store, func(ctx context.Context, unit uow.UnitOfWork) {
		for i := 0; i < 3; i++ {
			n, err := domainnotifications.New(domainnotifications.CreateParams{
				ID:          domainnotifications.ID(fmt.Sprintf("n%d", i)),
				RecipientID: "u1",
				Type:        domainnotifications.TypeMessage,
				Title:       "New message",
				Actor:       &domainuser.Details{ID: "u2", Name: "Sam"},
				Now:         base.Add(time.Duration(i) * time.Minute),
			})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if err := unit.Notifications().Save(ctx, n); err != nil {
				t.Fatalf("Save: %v", err)
			}
		}
	})

	inTx(t, store, func(ctx context.Context, unit uow.UnitOfWork) {
		list, err := unit.Notifications().ListByRecipient(ctx, "u1", domainnotifications.ListParams{Limit: 2})
		if err != nil {
			t.Fatalf("ListByRecipient: %v", err)
		}
		if len(list) != 2 || list[0].ID != "n2" || list[0].Actor == nil || list[0].Actor.Name != "Sam" {
			t.Fatalf("list = %+v", list)
		}
		changed, err := unit.Notifications().MarkAllRead(ctx, "u1")
		if err != nil {
			t.Fatalf("MarkAllRead: %v", err)
		}
		if changed != 3 {
			t.Fatalf("changed = %d, want 3", changed)
		}
		if n, _ := unit.Notifications().CountUnread(ctx, "u1"); n != 0 {
			t.Fatalf("unread = %d, want 0", n)
		}
	})
}

func TestFavoritesDuplicatesAndMissing(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	now := time.Now().UTC()
	inTx(t, store, func(ctx context.Context, unit uow.UnitOfWork) {
		fav := domainfavorites.Favorite{UserID: "u1", ListingID: "l1", CreatedAt: now}
		if err := unit.Favorites().Add(ctx, fav); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if err := unit.Favorites().Add(ctx, fav); !errors.Is(err, domainfavorites.ErrAlreadyExists) {
			t.Fatalf("err = %v, want %v", err, domainfavorites.ErrAlreadyExists)
		}
	})
	inTx(t, store, func(ctx context.Context, unit uow.UnitOfWork) {
		if ok, _ := unit.Favorites().Exists(ctx, "u1", "l1"); !ok {
			t.Fatal("favorite missing after commit")
		}
		if err := unit.Favorites().Remove(ctx, "u1", "l2"); !errors.Is(err, domainfavorites.ErrNotFound) {
			t.Fatalf("err = %v, want %v", err, domainfavorites.ErrNotFound)
		}
		if err := unit.Favorites().RemoveByListing(ctx, "l1"); err != nil {
			t.Fatalf("RemoveByListing: %v", err)
		}
		list, err := unit.Favorites().ListByUser(ctx, "u1")
		if err != nil {
			t.Fatalf("ListByUser: %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("len = %d, want 0", len(list))
		}
	})
}

func TestSavedSearchFiltersRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	inTx(t, store, func(ctx context.Context, unit uow.UnitOfWork) {
		s, err := domainsavedsearch.New(domainsavedsearch.CreateParams{
			ID:            "s1",
			UserID:        "u1",
			Name:          "Cheap Yamahas",
			Filters:       domainlistings.Filters{Make: "yamaha", PriceMaxCents: 500000},
			Sort:          domainlistings.SortPriceAsc,
			AlertsEnabled: true,
		})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if err := unit.SavedSearches().Save(ctx, s); err != nil {
			t.Fatalf("Save: %v", err)
		}
	})
	inTx(t, store, func(ctx context.Context, unit uow.UnitOfWork) {
		got, err := unit.SavedSearches().ByID(ctx, "s1")
		if err != nil {
			t.Fatalf("ByID: %v", err)
		}
		if got.Filters.Make != "yamaha" || got.Filters.PriceMaxCents != 500000 || got.Sort != domainlistings.SortPriceAsc {
			t.Fatalf("saved search = %+v", got)
		}
		alerting, err := unit.SavedSearches().ListAlerting(ctx)
		if err != nil {
			t.Fatalf("ListAlerting: %v", err)
		}
		if len(alerting) != 1 {
			t.Fatalf("alerting = %d, want 1", len(alerting))
		}
		if n, _ := unit.SavedSearches().CountByUser(ctx, "u1"); n != 1 {
			t.Fatalf("count = %d, want 1", n)
		}
		if err := unit.SavedSearches().Delete(ctx, "s1"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := unit.SavedSearches().ByID(ctx, "s1"); !errors.Is(err, domainsavedsearch.ErrNotFound) {
			t.Fatalf("err = %v, want %v", err, domainsavedsearch.ErrNotFound)
		}
	})
}
