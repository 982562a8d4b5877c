package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"

	"motomarket/internal/app/commands"
	"motomarket/internal/app/dto"
	favoriteapp "motomarket/internal/app/handlers/favorites"
	listingapp "motomarket/internal/app/handlers/listings"
	messagingapp "motomarket/internal/app/handlers/messaging"
	"motomarket/internal/app/queries"
	"motomarket/internal/app/services/auth"
	domainauth "motomarket/internal/domain/auth"
	domainfavorites "motomarket/internal/domain/favorites"
	domainlistings "motomarket/internal/domain/listings"
	domainmessaging "motomarket/internal/domain/messaging"
	domainuser "motomarket/internal/domain/user"
	"motomarket/internal/infra/config"
	"motomarket/internal/infra/obs"
)

type fakeCommandBus struct {
	fn   func(cmd commands.Command) (any, error)
	seen []commands.Command
}

func (b *fakeCommandBus) Dispatch(_ context.Context, cmd commands.Command) (any, error) {
	b.seen = append(b.seen, cmd)
	if b.fn == nil {
		return nil, fmt.Errorf("unexpected command %s", cmd.Key())
	}
	return b.fn(cmd)
}

type fakeQueryBus struct {
	fn func(q queries.Query) (any, error)
}

func (b *fakeQueryBus) Ask(_ context.Context, q queries.Query) (any, error) {
	if b.fn == nil {
		return nil, fmt.Errorf("unexpected query %s", q.Key())
	}
	return b.fn(q)
}

type fakeTokens map[string]*domainuser.User

func (f fakeTokens) ResolveToken(_ context.Context, token string) (*auth.ResolveResult, error) {
	u, ok := f[token]
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	return &auth.ResolveResult{User: u, Session: &domainauth.Session{ID: "s", UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}}, nil
}

var testUser = &domainuser.User{ID: "u-1", Email: "rider@example.com", Name: "Rider", Roles: []domainuser.Role{domainuser.RoleBuyer}}

func newTestRouter(t *testing.T, cmds *fakeCommandBus, qs *fakeQueryBus) *gin.Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{Env: "test", CORSOrigins: []string{"http://localhost:3000"}}
	tokens := fakeTokens{"good": testUser}
	return NewRouter(cfg, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Listings:       ListingHandler{Commands: cmds, Queries: qs, Logger: logger},
		Favorites:      FavoriteHandler{Commands: cmds, Queries: qs, Logger: logger},
		Chat:           ChatHandler{Commands: cmds, Queries: qs, Logger: logger},
		AuthMiddleware: AuthMiddleware{Service: tokens, Logger: logger}.Handle,
	})
}

func do(router http.Handler, method, target string, body any, header map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var bearer = map[string]string{"Authorization": "Bearer good"}

func TestCatalogIsPublic(t *testing.T) {
	var got listingapp.SearchCatalogQuery
	qs := &fakeQueryBus{fn: func(q queries.Query) (any, error) {
		got = q.(listingapp.SearchCatalogQuery)
		return dto.ListingCatalog{}, nil
	}}
	router := newTestRouter(t, &fakeCommandBus{}, qs)

	rec := do(router, http.MethodGet, "/api/v1/listings?make=ducati&price_max=900000&sort=price_asc", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got.Filters.Make != "ducati" || got.Filters.PriceMaxCents != 900000 || got.Sort != "price_asc" {
		t.Fatalf("query = %+v", got)
	}
	if got.Limit != domainlistings.DefaultSearchLimit {
		t.Fatalf("limit = %d", got.Limit)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	cmds := &fakeCommandBus{}
	router := newTestRouter(t, cmds, &fakeQueryBus{})

	for _, tc := range []struct {
		method, target string
		header         map[string]string
	}{
		{http.MethodPost, "/api/v1/listings", nil},
		{http.MethodGet, "/api/v1/favorites", map[string]string{"Authorization": "Bearer stale"}},
		{http.MethodPost, "/api/v1/conversations/c-1/messages", nil},
	} {
		rec := do(router, tc.method, tc.target, map[string]string{}, tc.header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: status = %d", tc.method, tc.target, rec.Code)
		}
	}
	if len(cmds.seen) != 0 {
		t.Fatalf("commands dispatched for anonymous callers: %d", len(cmds.seen))
	}
}

func TestSessionCookieAuthenticates(t *testing.T) {
	qs := &fakeQueryBus{fn: func(q queries.Query) (any, error) {
		if q.(favoriteapp.ListFavoritesQuery).UserID != "u-1" {
			return nil, errors.New("wrong user")
		}
		return dto.FavoriteList{}, nil
	}}
	router := newTestRouter(t, &fakeCommandBus{}, qs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/favorites", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestStaleBearerFallsBackToSessionCookie(t *testing.T) {
	qs := &fakeQueryBus{fn: func(q queries.Query) (any, error) {
		if q.(favoriteapp.ListFavoritesQuery).UserID != "u-1" {
			return nil, errors.New("wrong user")
		}
		return dto.FavoriteList{}, nil
	}}
	router := newTestRouter(t, &fakeCommandBus{}, qs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/favorites", nil)
	req.Header.Set("Authorization", "Bearer expired")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestListMessagesForwardsCursor(t *testing.T) {
	qs := &fakeQueryBus{fn: func(q queries.Query) (any, error) {
		query := q.(messagingapp.ListMessagesQuery)
		if query.BeforeID != "m-9" || query.Limit != 5 || query.ConversationID != "c-1" {
			return nil, fmt.Errorf("query = %+v", query)
		}
		return dto.ChatMessageList{NextBeforeID: "m-4"}, nil
	}}
	router := newTestRouter(t, &fakeCommandBus{}, qs)

	rec := do(router, http.MethodGet, "/api/v1/conversations/c-1/messages?limit=5&before_id=m-9", nil, bearer)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"nextBeforeId":"m-4"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestDomainErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domainfavorites.ErrAlreadyExists, http.StatusConflict},
		{domainfavorites.ErrNotFound, http.StatusNotFound},
		{domainlistings.ErrNotOwner, http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", domainmessaging.ErrContentTooLong), http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		cmds := &fakeCommandBus{fn: func(commands.Command) (any, error) { return nil, tc.err }}
		router := newTestRouter(t, cmds, &fakeQueryBus{})
		rec := do(router, http.MethodPost, "/api/v1/favorites", map[string]string{"listingId": "l-1"}, bearer)
		if rec.Code != tc.want {
			t.Fatalf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
		if tc.want == http.StatusInternalServerError && bytes.Contains(rec.Body.Bytes(), []byte("disk")) {
			t.Fatalf("internal error leaked: %s", rec.Body.String())
		}
	}
}

func TestIdempotencyHeaderReachesCommand(t *testing.T) {
	cmds := &fakeCommandBus{fn: func(cmd commands.Command) (any, error) {
		return dto.ChatMessage{ID: "m-1"}, nil
	}}
	router := newTestRouter(t, cmds, &fakeQueryBus{})
	header := map[string]string{"Authorization": "Bearer good", idempotencyHeader: "retry-1"}

	rec := do(router, http.MethodPost, "/api/v1/conversations/c-1/messages", map[string]string{"content": "still available?"}, header)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	cmd := cmds.seen[0].(messagingapp.SendMessageCommand)
	if cmd.RequestKey != "retry-1" || cmd.SenderID != "u-1" || cmd.ConversationID != "c-1" {
		t.Fatalf("command = %+v", cmd)
	}
}

func TestStartConversationStatusReflectsCreation(t *testing.T) {
	created := true
	cmds := &fakeCommandBus{fn: func(commands.Command) (any, error) {
		return dto.ConversationStart{Created: created}, nil
	}}
	router := newTestRouter(t, cmds, &fakeQueryBus{})
	body := map[string]string{"listingId": "l-1"}

	if rec := do(router, http.MethodPost, "/api/v1/conversations", body, bearer); rec.Code != http.StatusCreated {
		t.Fatalf("first start: status = %d", rec.Code)
	}
	created = false
	if rec := do(router, http.MethodPost, "/api/v1/conversations", body, bearer); rec.Code != http.StatusOK {
		t.Fatalf("repeat start: status = %d", rec.Code)
	}
}

func multipartPhoto(t *testing.T, contentType string, size int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="photo"; filename="bike"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	_, _ = part.Write(bytes.Repeat([]byte{0xff}, size))
	_ = w.Close()
	return &buf, w.FormDataContentType()
}

func TestUploadPhotoValidatesType(t *testing.T) {
	cmds := &fakeCommandBus{fn: func(cmd commands.Command) (any, error) {
		return &dto.PhotoUploadResult{ListingID: "l-1"}, nil
	}}
	router := newTestRouter(t, cmds, &fakeQueryBus{})

	body, ct := multipartPhoto(t, "application/pdf", 16)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/l-1/photos", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("pdf upload: status = %d", rec.Code)
	}

	body, ct = multipartPhoto(t, "image/png", 16)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/listings/l-1/photos", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", "Bearer good")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("png upload: status = %d, body %s", rec.Code, rec.Body.String())
	}
	cmd := cmds.seen[0].(listingapp.UploadListingPhotoCommand)
	if cmd.ContentType != "image/png" || cmd.Size != 16 || len(cmd.ObjectKey) == 0 {
		t.Fatalf("command = %+v", cmd)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://moto.example"})
	req := httptest.NewRequest(http.MethodGet, "http://api.moto.example/api/v1/realtime", nil)

	req.Header.Set("Origin", "https://moto.example")
	if !check(req) {
		t.Fatal("allow-listed origin rejected")
	}
	req.Header.Set("Origin", "https://evil.example")
	if check(req) {
		t.Fatal("foreign origin accepted")
	}
}
