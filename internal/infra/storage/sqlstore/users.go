package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domainauth "motomarket/internal/domain/auth"
	domainuser "motomarket/internal/domain/user"
)

type userRepo struct{ r runner }

const userColumns = `id, email, name, avatar_url, password_hash, roles, created_at, updated_at`

func (repo userRepo) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	row := repo.r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, string(id))
	return scanUser(row)
}

func (repo userRepo) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	row := repo.r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, domainuser.NormalizeEmail(email))
	return scanUser(row)
}

func (repo userRepo) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	email := domainuser.NormalizeEmail(user.Email)
	if email == "" {
		return domainuser.ErrEmailRequired
	}
	_, err := repo.r.exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   email = excluded.email,
		   name = excluded.name,
		   avatar_url = excluded.avatar_url,
		   password_hash = excluded.password_hash,
		   roles = excluded.roles,
		   updated_at = excluded.updated_at`,
		string(user.ID),
		email,
		user.Name,
		user.AvatarURL,
		user.PasswordHash,
		domainuser.JoinRoles(user.Roles),
		toMillis(user.CreatedAt),
		toMillis(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domainuser.ErrEmailAlreadyUsed
		}
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*domainuser.User, error) {
	var (
		u                    domainuser.User
		id, roles            string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&id, &u.Email, &u.Name, &u.AvatarURL, &u.PasswordHash, &roles, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainuser.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = domainuser.ID(id)
	u.Roles = domainuser.ParseRoles(roles)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return &u, nil
}

type sessionStore struct{ r runner }

func (s sessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil || session.ID == "" {
		return domainauth.ErrSessionIDRequired
	}
	_, err := s.r.exec(ctx,
		`INSERT INTO sessions (id, user_id, roles, created_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET roles = excluded.roles, expires_at = excluded.expires_at`,
		string(session.ID),
		string(session.UserID),
		domainuser.JoinRoles(session.Roles),
		toMillis(session.CreatedAt),
		toMillis(session.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s sessionStore) Get(ctx context.Context, id domainauth.SessionID) (*domainauth.Session, error) {
	var (
		session              domainauth.Session
		userID, roles        string
		createdAt, expiresAt int64
	)
	row := s.r.queryRow(ctx, `SELECT user_id, roles, created_at, expires_at FROM sessions WHERE id = ?`, string(id))
	if err := row.Scan(&userID, &roles, &createdAt, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	session.ID = id
	session.UserID = domainuser.ID(userID)
	session.Roles = domainuser.ParseRoles(roles)
	session.CreatedAt = fromMillis(createdAt)
	session.ExpiresAt = fromMillis(expiresAt)
	if session.Expired(timeNow()) {
		_ = s.Delete(ctx, id)
		return nil, domainauth.ErrSessionNotFound
	}
	return &session, nil
}

func (s sessionStore) Delete(ctx context.Context, id domainauth.SessionID) error {
	if _, err := s.r.exec(ctx, `DELETE FROM sessions WHERE id = ?`, string(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s sessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	if _, err := s.r.exec(ctx, `DELETE FROM sessions WHERE user_id = ?`, string(userID)); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

var (
	_ domainuser.Repository   = userRepo{}
	_ domainauth.SessionStore = sessionStore{}
)
