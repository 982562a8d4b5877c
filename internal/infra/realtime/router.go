package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"motomarket/internal/app/policies"
)

// Envelope is the frame pushed to clients.
type Envelope struct {
	Type string    `json:"type"`
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

// Router tracks live connections per user and fans pushes out to all of
// them. It implements policies.Notifier.
type Router struct {
	Logger *slog.Logger

	mu    sync.RWMutex
	users map[string]map[string]*Connection // userID -> connID -> connection
}

func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{Logger: logger, users: make(map[string]map[string]*Connection)}
}

// Serve attaches ws for userID and blocks until the peer disconnects.
func (r *Router) Serve(userID string, ws *websocket.Conn) {
	conn := NewConnection(userID, ws)
	r.attach(conn)
	defer r.detach(conn)

	go conn.writeLoop()
	conn.readLoop()
	conn.Close(websocket.CloseNormalClosure, "")
}

func (r *Router) attach(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns := r.users[conn.UserID]
	if conns == nil {
		conns = make(map[string]*Connection)
		r.users[conn.UserID] = conns
	}
	conns[conn.ID] = conn
	r.Logger.Debug("realtime connection attached", "user_id", conn.UserID, "conn_id", conn.ID)
}

func (r *Router) detach(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns := r.users[conn.UserID]
	delete(conns, conn.ID)
	if len(conns) == 0 {
		delete(r.users, conn.UserID)
	}
	r.Logger.Debug("realtime connection detached", "user_id", conn.UserID, "conn_id", conn.ID)
}

// Connections returns how many sockets userID has open.
func (r *Router) Connections(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID])
}

// Send pushes kind/data to every connection of to. Offline users are not an
// error.
func (r *Router) Send(ctx context.Context, to string, kind string, data any) error {
	payload, err := json.Marshal(Envelope{Type: kind, Data: data, At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("realtime: encode %s: %w", kind, err)
	}
	r.mu.RLock()
	targets := make([]*Connection, 0, len(r.users[to]))
	for _, conn := range r.users[to] {
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.Send(payload); err != nil {
			r.Logger.Debug("realtime push dropped", "user_id", to, "conn_id", conn.ID, "error", err)
		}
	}
	return nil
}

// Close terminates every tracked connection.
func (r *Router) Close() {
	r.mu.Lock()
	var all []*Connection
	for _, conns := range r.users {
		for _, conn := range conns {
			all = append(all, conn)
		}
	}
	r.users = make(map[string]map[string]*Connection)
	r.mu.Unlock()

	for _, conn := range all {
		conn.Close(websocket.CloseGoingAway, "server shutdown")
	}
}

var _ policies.Notifier = (*Router)(nil)
