package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"motomarket/internal/domain/user"
)

var (
	ErrSessionIDRequired = errors.New("auth: session id is required")
	ErrUserRequired      = errors.New("auth: user is required")
	ErrTTLInvalid        = errors.New("auth: ttl must be positive")
	ErrSessionNotFound   = errors.New("auth: session not found")
)

// SessionID is the token identifier (jti) a signed token points at.
type SessionID string

type Session struct {
	ID        SessionID
	UserID    user.ID
	Roles     []user.Role
	CreatedAt time.Time
	ExpiresAt time.Time
}

type CreateSessionParams struct {
	ID     SessionID
	UserID user.ID
	Roles  []user.Role
	TTL    time.Duration
	Now    time.Time
}

func NewSession(params CreateSessionParams) (*Session, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrSessionIDRequired
	}
	if strings.TrimSpace(string(params.UserID)) == "" {
		return nil, ErrUserRequired
	}
	if params.TTL <= 0 {
		return nil, ErrTTLInvalid
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Session{
		ID:        SessionID(id),
		UserID:    params.UserID,
		Roles:     append([]user.Role(nil), params.Roles...),
		CreatedAt: now,
		ExpiresAt: now.Add(params.TTL),
	}, nil
}

func (s *Session) Expired(at time.Time) bool {
	if at.IsZero() {
		at = time.Now()
	}
	return !s.ExpiresAt.After(at.UTC())
}

type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, id SessionID) (*Session, error)
	Delete(ctx context.Context, id SessionID) error
	DeleteByUser(ctx context.Context, userID user.ID) error
}
