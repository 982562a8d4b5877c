package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"motomarket/internal/app/middleware"
	"motomarket/internal/app/uow"
	domainfavorites "motomarket/internal/domain/favorites"
	domainlistings "motomarket/internal/domain/listings"
	domainmessaging "motomarket/internal/domain/messaging"
	domainuser "motomarket/internal/domain/user"
)

func begin(t *testing.T, f *Factory) uow.UnitOfWork {
	t.Helper()
	unit, err := f.Begin(context.Background(), uow.TxOptions{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return unit
}

func newListing(t *testing.T, id string, price int64, created time.Time) *domainlistings.Listing {
	t.Helper()
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:     domainlistings.ListingID(id),
		Seller: "seller-1",
		Attributes: domainlistings.Attributes{
			Title:      "Listing " + id,
			Category:   domainlistings.CategoryMotorcycle,
			Make:       "Honda",
			Model:      "CB500",
			Year:       2020,
			Condition:  domainlistings.ConditionUsed,
			PriceCents: price,
			Location:   "Austin",
		},
		Now: created,
	})
	if err != nil {
		t.Fatalf("NewListing: %v", err)
	}
	return listing
}

func TestRollbackUndoesWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := NewFactory(NewStore())
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	unit := begin(t, f)
	if err := unit.Listings().Save(ctx, newListing(t, "a", 1000, base)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	unit = begin(t, f)
	updated := newListing(t, "a", 5000, base)
	if err := unit.Listings().Save(ctx, updated); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := unit.Listings().Save(ctx, newListing(t, "b", 2000, base)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := unit.Favorites().Add(ctx, domainfavorites.Favorite{UserID: "u1", ListingID: "a", CreatedAt: base}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := unit.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	reader := begin(t, f)
	defer reader.Rollback(ctx)
	got, err := reader.Listings().ByID(ctx, "a")
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if got.PriceCents != 1000 {
		t.Fatalf("price = %d, want 1000", got.PriceCents)
	}
	if _, err := reader.Listings().ByID(ctx, "b"); !errors.Is(err, domainlistings.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, domainlistings.ErrNotFound)
	}
	if ok, _ := reader.Favorites().Exists(ctx, "u1", "a"); ok {
		t.Fatal("favorite survived rollback")
	}
}

func TestReadOnlyUnitRejectsWrites(t *testing.T) {
	t.Parallel()

	f := NewFactory(NewStore())
	unit, err := f.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer unit.Rollback(context.Background())
	err = unit.Listings().Save(context.Background(), newListing(t, "a", 100, time.Now()))
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("err = %v, want %v", err, ErrReadOnly)
	}
}

func TestSearchSortsAndPages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := NewFactory(NewStore())
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	unit := begin(t, f)
	for i := 0; i < 5; i++ {
		l := newListing(t, fmt.Sprintf("l%d", i), int64(1000*(5-i)), base.Add(time.Duration(i)*time.Hour))
		if err := unit.Listings().Save(ctx, l); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	sold := newListing(t, "sold", 1, base)
	if err := sold.MarkSold(base); err != nil {
		t.Fatalf("MarkSold: %v", err)
	}
	if err := unit.Listings().Save(ctx, sold); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := unit.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	reader := begin(t, f)
	defer reader.Rollback(ctx)
	res, err := reader.Listings().Search(ctx, domainlistings.SearchParams{
		Sort:       domainlistings.SortPriceAsc,
		Limit:      2,
		Offset:     1,
		OnlyActive: true,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 5 {
		t.Fatalf("total = %d, want 5", res.Total)
	}
	if len(res.Items) != 2 || res.Items[0].ID != "l3" || res.Items[1].ID != "l2" {
		t.Fatalf("items = %v", ids(res.Items))
	}

	newest, err := reader.Listings().Search(ctx, domainlistings.SearchParams{OnlyActive: true})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if newest.Items[0].ID != "l4" {
		t.Fatalf("first = %s, want l4", newest.Items[0].ID)
	}
}

func ids(items []*domainlistings.Listing) []domainlistings.ListingID {
	out := make([]domainlistings.ListingID, 0, len(items))
	for _, l := range items {
		out = append(out, l.ID)
	}
	return out
}

func TestConversationPairIsUnique(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := NewFactory(NewStore())
	unit := begin(t, f)
	defer unit.Rollback(ctx)

	first, err := domainmessaging.NewConversation(domainmessaging.NewConversationParams{ID: "c1", Initiator: "buyer", Counterpart: "seller", ListingID: "l1"})
	if err != nil {
		t.Fatalf("NewConversation: %v", err)
	}
	if err := unit.Conversations().Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	mirrored, _ := domainmessaging.NewConversation(domainmessaging.NewConversationParams{ID: "c2", Initiator: "seller", Counterpart: "buyer", ListingID: "l1"})
	if err := unit.Conversations().Create(ctx, mirrored); !errors.Is(err, domainmessaging.ErrConversationExists) {
		t.Fatalf("err = %v, want %v", err, domainmessaging.ErrConversationExists)
	}
	found, err := unit.Conversations().FindByParticipants(ctx, "seller", "buyer", "l1")
	if err != nil {
		t.Fatalf("FindByParticipants: %v", err)
	}
	if found.ID != "c1" {
		t.Fatalf("found = %s, want c1", found.ID)
	}
	if _, err := unit.Conversations().FindByParticipants(ctx, "seller", "buyer", ""); !errors.Is(err, domainmessaging.ErrConversationNotFound) {
		t.Fatalf("err = %v, want %v", err, domainmessaging.ErrConversationNotFound)
	}
}

func TestMessagesPageAndMarkRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := NewFactory(NewStore())
	unit := begin(t, f)
	defer unit.Rollback(ctx)

	conv, _ := domainmessaging.NewConversation(domainmessaging.NewConversationParams{ID: "c1", Initiator: "a", Counterpart: "b"})
	if err := unit.Conversations().Create(ctx, conv); err != nil {
		t.Fatalf("Create: %v", err)
	}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	senders := []domainuser.ID{"a", "b", "a", "a"}
	for i, sender := range senders {
		msg, err := domainmessaging.NewMessage(domainmessaging.NewMessageParams{
			ID:             domainmessaging.MessageID(fmt.Sprintf("m%d", i)),
			ConversationID: "c1",
			SenderID:       sender,
			Content:        "hello",
			Now:            base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("NewMessage: %v", err)
		}
		if err := unit.Messages().Append(ctx, msg); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	page, err := unit.Messages().ListByConversation(ctx, "c1", domainmessaging.MessagePage{Limit: 2})
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if len(page) != 2 || page[0].ID != "m2" || page[1].ID != "m3" {
		t.Fatalf("page = %+v", page)
	}

	unread, _ := unit.Messages().CountUnread(ctx, "c1", "b")
	if unread != 3 {
		t.Fatalf("unread = %d, want 3", unread)
	}
	changed, err := unit.Messages().MarkRead(ctx, "c1", "b")
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if changed != 3 {
		t.Fatalf("changed = %d, want 3", changed)
	}
	if unread, _ := unit.Messages().CountUnread(ctx, "c1", "a"); unread != 1 {
		t.Fatalf("unread for a = %d, want 1", unread)
	}
}

func TestMessagesPageByIDWhenTimestampsTie(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := NewFactory(NewStore())
	unit := begin(t, f)
	defer unit.Rollback(ctx)

	conv, _ := domainmessaging.NewConversation(domainmessaging.NewConversationParams{ID: "c1", Initiator: "a", Counterpart: "b"})
	if err := unit.Conversations().Create(ctx, conv); err != nil {
		t.Fatalf("Create: %v", err)
	}
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
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
	missing, err := unit.Messages().ListByConversation(ctx, "c1", domainmessaging.MessagePage{Limit: 2, BeforeID: "nope"})
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("unknown cursor = %+v", missing)
	}
}

func TestUsersRejectDuplicateEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	users := NewFactory(NewStore()).Users()
	first, _ := domainuser.NewUser(domainuser.CreateParams{ID: "u1", Email: "Rider@Example.com", Name: "Rider", PasswordHash: "x"})
	if err := users.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, _ := domainuser.NewUser(domainuser.CreateParams{ID: "u2", Email: "rider@example.com", Name: "Other", PasswordHash: "x"})
	if err := users.Save(ctx, second); !errors.Is(err, domainuser.ErrEmailAlreadyUsed) {
		t.Fatalf("err = %v, want %v", err, domainuser.ErrEmailAlreadyUsed)
	}
	got, err := users.ByEmail(ctx, "  RIDER@example.com ")
	if err != nil {
		t.Fatalf("ByEmail: %v", err)
	}
	if got.ID != "u1" {
		t.Fatalf("id = %s, want u1", got.ID)
	}
}

func TestIdempotencyRecordsExpire(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewIdempotencyStore(time.Hour)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Save(ctx, middleware.IdempotencyRecord{Key: "messaging.send:abc", Payload: []byte(`{"id":"m-1"}`)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec, ok, err := store.Get(ctx, "messaging.send:abc")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if string(rec.Payload) != `{"id":"m-1"}` || !rec.OccurredAt.Equal(now) {
		t.Fatalf("record = %+v", rec)
	}

	now = now.Add(time.Hour)
	if _, ok, _ := store.Get(ctx, "messaging.send:abc"); ok {
		t.Fatal("expired record was replayed")
	}
}
