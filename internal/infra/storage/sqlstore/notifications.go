package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domainnotifications "motomarket/internal/domain/notifications"
	domainuser "motomarket/internal/domain/user"
)

type notificationRepo struct{ r runner }

const notificationColumns = `id, recipient_id, type, title, message, link, actor_id, actor_name, actor_avatar_url,
	created_at, is_read`

func (repo notificationRepo) Save(ctx context.Context, n *domainnotifications.Notification) error {
	if n == nil || strings.TrimSpace(string(n.ID)) == "" {
		return domainnotifications.ErrIDRequired
	}
	var actor domainuser.Details
	if n.Actor != nil {
		actor = *n.Actor
	}
	_, err := repo.r.exec(ctx,
		`INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET is_read = excluded.is_read`,
		string(n.ID),
		string(n.RecipientID),
		string(n.Type),
		n.Title,
		n.Message,
		n.Link,
		string(actor.ID),
		actor.Name,
		actor.AvatarURL,
		toMillis(n.CreatedAt),
		boolInt(n.IsRead),
	)
	if err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	return nil
}

func (repo notificationRepo) ByID(ctx context.Context, id domainnotifications.ID) (*domainnotifications.Notification, error) {
	row := repo.r.queryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, string(id))
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainnotifications.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	return n, nil
}

func (repo notificationRepo) ListByRecipient(ctx context.Context, recipient domainuser.ID, params domainnotifications.ListParams) ([]*domainnotifications.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id = ?`
	args := []any{string(recipient)}
	if params.UnreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if params.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, params.Limit)
	}
	rows, err := repo.r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	var out []*domainnotifications.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func (repo notificationRepo) CountUnread(ctx context.Context, recipient domainuser.ID) (int, error) {
	var count int
	err := repo.r.queryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = 0`, string(recipient)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (repo notificationRepo) MarkAllRead(ctx context.Context, recipient domainuser.ID) (int, error) {
	res, err := repo.r.exec(ctx,
		`UPDATE notifications SET is_read = 1 WHERE recipient_id = ? AND is_read = 0`, string(recipient))
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return int(n), nil
}

func scanNotification(row rowScanner) (*domainnotifications.Notification, error) {
	var (
		n                               domainnotifications.Notification
		id, recipient, kind             string
		actorID, actorName, actorAvatar string
		createdAt                       int64
		isRead                          int
	)
	err := row.Scan(&id, &recipient, &kind, &n.Title, &n.Message, &n.Link, &actorID, &actorName, &actorAvatar,
		&createdAt, &isRead)
	if err != nil {
		return nil, err
	}
	n.ID = domainnotifications.ID(id)
	n.RecipientID = domainuser.ID(recipient)
	n.Type = domainnotifications.Type(kind)
	n.CreatedAt = fromMillis(createdAt)
	n.IsRead = isRead != 0
	if actorID != "" {
		n.Actor = &domainuser.Details{ID: domainuser.ID(actorID), Name: actorName, AvatarURL: actorAvatar}
	}
	return &n, nil
}

var _ domainnotifications.Repository = notificationRepo{}
