package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"motomarket/internal/app/dto"
	"motomarket/internal/infra/config"
	ginserver "motomarket/internal/infra/http/gin"
	"motomarket/internal/infra/obs"
)

type testClient struct {
	t      *testing.T
	router http.Handler
}

func newTestApp(t *testing.T) (*application, testClient) {
	t.Helper()
	cfg := config.Default()
	cfg.Env = "test"
	cfg.JWTSecret = "test-secret"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := buildApplication(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("buildApplication: %v", err)
	}
	t.Cleanup(func() { _ = app.close(context.Background()) })
	router := ginserver.NewRouter(cfg, obs.Middleware{}, app.health, app.handlers)
	return app, testClient{t: t, router: router}
}

func (c testClient) call(method, target, token string, body any, out any) int {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			c.t.Fatalf("%s %s: decode %s: %v", method, target, rec.Body.String(), err)
		}
	}
	return rec.Code
}

func (c testClient) register(email, name string) dto.AuthResponse {
	c.t.Helper()
	var out dto.AuthResponse
	body := map[string]any{"email": email, "name": name, "password": "correct horse"}
	if code := c.call(http.MethodPost, "/api/v1/auth/register", "", body, &out); code != http.StatusCreated {
		c.t.Fatalf("register %s: status %d", email, code)
	}
	return out
}

func TestMarketplaceFlow(t *testing.T) {
	_, client := newTestApp(t)
	seller := client.register("seller@example.com", "Seller")
	buyer := client.register("buyer@example.com", "Buyer")

	var search dto.SavedSearch
	code := client.call(http.MethodPost, "/api/v1/saved-searches", buyer.Token, map[string]any{
		"name":          "Ducatis",
		"filters":       map[string]any{"make": "ducati"},
		"alertsEnabled": true,
	}, &search)
	if code != http.StatusCreated {
		t.Fatalf("create saved search: status %d", code)
	}

	var listing dto.ListingDetail
	code = client.call(http.MethodPost, "/api/v1/listings", seller.Token, map[string]any{
		"title":      "Ducati Panigale V2",
		"category":   "motorcycle",
		"make":       "Ducati",
		"model":      "Panigale V2",
		"year":       2022,
		"condition":  "used",
		"priceCents": 1650000,
		"currency":   "EUR",
		"location":   "Milan",
	}, &listing)
	if code != http.StatusCreated {
		t.Fatalf("create listing: status %d", code)
	}

	var catalog dto.ListingCatalog
	if code := client.call(http.MethodGet, "/api/v1/listings?make=ducati", "", nil, &catalog); code != http.StatusOK {
		t.Fatalf("catalog: status %d", code)
	}
	if catalog.Meta.Total != 1 || catalog.Items[0].ID != listing.ID {
		t.Fatalf("catalog = %+v", catalog)
	}

	var notes dto.NotificationList
	if code := client.call(http.MethodGet, "/api/v1/notifications", buyer.Token, nil, &notes); code != http.StatusOK {
		t.Fatalf("notifications: status %d", code)
	}
	if notes.UnreadCount != 1 || notes.Items[0].Type != "saved_search" {
		t.Fatalf("buyer notifications = %+v", notes)
	}

	var started dto.ConversationStart
	code = client.call(http.MethodPost, "/api/v1/conversations", buyer.Token, map[string]any{
		"listingId":      listing.ID,
		"initialMessage": "Is the price negotiable?",
	}, &started)
	if code != http.StatusCreated || !started.Created {
		t.Fatalf("start conversation: status %d, %+v", code, started)
	}
	again := dto.ConversationStart{}
	code = client.call(http.MethodPost, "/api/v1/conversations", buyer.Token, map[string]any{"listingId": listing.ID}, &again)
	if code != http.StatusOK || again.Conversation.ID != started.Conversation.ID {
		t.Fatalf("repeat start: status %d, %+v", code, again)
	}

	var inbox dto.ConversationList
	client.call(http.MethodGet, "/api/v1/conversations", seller.Token, nil, &inbox)
	if len(inbox.Items) != 1 || inbox.Items[0].UnreadCount != 1 {
		t.Fatalf("seller inbox = %+v", inbox)
	}
	if inbox.Items[0].OtherParticipant.ID != buyer.User.ID {
		t.Fatalf("other participant = %+v", inbox.Items[0].OtherParticipant)
	}

	convPath := "/api/v1/conversations/" + started.Conversation.ID
	var reply dto.ChatMessage
	if code := client.call(http.MethodPost, convPath+"/messages", seller.Token, map[string]any{"content": "A little."}, &reply); code != http.StatusCreated {
		t.Fatalf("reply: status %d", code)
	}
	var read dto.ConversationReadResult
	client.call(http.MethodPost, convPath+"/read", seller.Token, nil, &read)
	if read.MarkedCount != 1 {
		t.Fatalf("marked = %d, want 1", read.MarkedCount)
	}

	var messages dto.ChatMessageList
	client.call(http.MethodGet, convPath+"/messages", buyer.Token, nil, &messages)
	if len(messages.Items) != 2 || messages.Items[1].ID != reply.ID {
		t.Fatalf("messages = %+v", messages.Items)
	}

	if code := client.call(http.MethodGet, convPath+"/messages", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous history: status %d", code)
	}
	outsider := client.register("outsider@example.com", "Outsider")
	if code := client.call(http.MethodGet, convPath+"/messages", outsider.Token, nil, nil); code != http.StatusForbidden {
		t.Fatalf("outsider history: status %d", code)
	}
}

func TestFavoritesConflictAndMissing(t *testing.T) {
	_, client := newTestApp(t)
	seller := client.register("s@example.com", "Seller")
	buyer := client.register("b@example.com", "Buyer")

	var listing dto.ListingDetail
	client.call(http.MethodPost, "/api/v1/listings", seller.Token, map[string]any{
		"title": "Shoei GT-Air 2", "category": "gear", "condition": "new", "priceCents": 45000,
	}, &listing)
	if listing.ID == "" {
		t.Fatal("listing not created")
	}

	body := map[string]any{"listingId": listing.ID}
	if code := client.call(http.MethodPost, "/api/v1/favorites", buyer.Token, body, nil); code != http.StatusCreated {
		t.Fatalf("add favorite: status %d", code)
	}
	if code := client.call(http.MethodPost, "/api/v1/favorites", buyer.Token, body, nil); code != http.StatusConflict {
		t.Fatalf("duplicate favorite: status %d", code)
	}
	var detail dto.ListingDetail
	client.call(http.MethodGet, "/api/v1/listings/"+listing.ID, buyer.Token, nil, &detail)
	if !detail.IsFavorite {
		t.Fatal("detail does not flag favorite")
	}
	if code := client.call(http.MethodDelete, "/api/v1/favorites/"+listing.ID, buyer.Token, nil, nil); code != http.StatusNoContent {
		t.Fatalf("remove favorite: status %d", code)
	}
	if code := client.call(http.MethodDelete, "/api/v1/favorites/"+listing.ID, buyer.Token, nil, nil); code != http.StatusNotFound {
		t.Fatalf("remove missing favorite: status %d", code)
	}
}

func TestFixturesImportOnce(t *testing.T) {
	app, client := newTestApp(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	for range 2 {
		if err := app.loadListingFixtures(ctx, "../../data/listings.json", logger); err != nil {
			t.Fatalf("loadListingFixtures: %v", err)
		}
	}
	var catalog dto.ListingCatalog
	client.call(http.MethodGet, "/api/v1/listings", "", nil, &catalog)
	if catalog.Meta.Total != 4 {
		t.Fatalf("catalog total = %d, want 4", catalog.Meta.Total)
	}

	var login dto.AuthResponse
	code := client.call(http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "anna@motomarket.local", "password": "motomarket",
	}, &login)
	if code != http.StatusOK || login.Token == "" {
		t.Fatalf("fixture seller login: status %d", code)
	}
}

func TestMissingFixturesAreSkipped(t *testing.T) {
	app, _ := newTestApp(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := app.loadListingFixtures(context.Background(), t.TempDir()+"/none.json", logger); err != nil {
		t.Fatalf("loadListingFixtures: %v", err)
	}
}
