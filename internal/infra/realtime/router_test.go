package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, router *Router) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		router.Serve(r.URL.Query().Get("user"), ws)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + user
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func waitForConnections(t *testing.T, router *Router, user string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for router.Connections(user) != want {
		if time.Now().After(deadline) {
			t.Fatalf("connections(%s) = %d, want %d", user, router.Connections(user), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSendReachesEveryConnectionOfUser(t *testing.T) {
	t.Parallel()

	router := NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := newTestServer(t, router)
	first := dial(t, srv, "u1")
	second := dial(t, srv, "u1")
	other := dial(t, srv, "u2")
	waitForConnections(t, router, "u1", 2)
	waitForConnections(t, router, "u2", 1)

	if err := router.Send(context.Background(), "u1", "notification", map[string]string{"id": "n1"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	for _, ws := range []*websocket.Conn{first, second} {
		_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		var env struct {
			Type string            `json:"type"`
			Data map[string]string `json:"data"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Type != "notification" || env.Data["id"] != "n1" {
			t.Fatalf("envelope = %+v", env)
		}
	}

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Fatal("u2 received a push meant for u1")
	}
}

func TestDisconnectDetaches(t *testing.T) {
	t.Parallel()

	router := NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := newTestServer(t, router)
	ws := dial(t, srv, "u1")
	waitForConnections(t, router, "u1", 1)

	_ = ws.Close()
	waitForConnections(t, router, "u1", 0)

	if err := router.Send(context.Background(), "u1", "message", nil); err != nil {
		t.Fatalf("Send to offline user: %v", err)
	}
}
