package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domainlistings "motomarket/internal/domain/listings"
	domainmessaging "motomarket/internal/domain/messaging"
	domainuser "motomarket/internal/domain/user"
)

// conversationRepo loads threads with a row lock when lock is set, so the
// read-modify-write of the unread counters and the message sequence is
// serialized per conversation for the rest of the transaction.
type conversationRepo struct {
	r    runner
	lock bool
}

const conversationColumns = `id, participant_a, participant_b, listing_id, listing_title, last_message_snippet,
	last_message_at, unread_a, unread_b, created_at`

func (repo conversationRepo) ByID(ctx context.Context, id domainmessaging.ConversationID) (*domainmessaging.Conversation, error) {
	row := repo.r.queryRow(ctx, conversationQuery(`id = ?`, repo.lock), string(id))
	return scanConversationRow(row)
}

func (repo conversationRepo) FindByParticipants(ctx context.Context, a, b domainuser.ID, listing domainlistings.ListingID) (*domainmessaging.Conversation, error) {
	lo, hi := domainmessaging.OrderedPair(a, b)
	row := repo.r.queryRow(ctx,
		conversationQuery(`participant_low = ? AND participant_high = ? AND listing_id = ?`, repo.lock),
		string(lo), string(hi), string(listing))
	return scanConversationRow(row)
}

func conversationQuery(where string, lock bool) string {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE ` + where
	if lock {
		query += ` FOR UPDATE`
	}
	return query
}

func (repo conversationRepo) ListByParticipant(ctx context.Context, participant domainuser.ID) ([]*domainmessaging.Conversation, error) {
	rows, err := repo.r.query(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		 WHERE participant_a = ? OR participant_b = ?
		 ORDER BY last_message_at DESC, id ASC`,
		string(participant), string(participant))
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()
	var out []*domainmessaging.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return out, nil
}

func (repo conversationRepo) Create(ctx context.Context, conv *domainmessaging.Conversation) error {
	if conv == nil || strings.TrimSpace(string(conv.ID)) == "" {
		return domainmessaging.ErrIDRequired
	}
	a, b := conv.Participants[0], conv.Participants[1]
	lo, hi := domainmessaging.OrderedPair(a, b)
	_, err := repo.r.exec(ctx,
		`INSERT INTO conversations (id, participant_a, participant_b, participant_low, participant_high, listing_id,
		   listing_title, last_message_snippet, last_message_at, unread_a, unread_b, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(conv.ID),
		string(a),
		string(b),
		string(lo),
		string(hi),
		string(conv.ListingID),
		conv.ListingTitle,
		conv.LastMessageSnippet,
		toMillis(conv.LastMessageAt),
		conv.UnreadFor(a),
		conv.UnreadFor(b),
		toMillis(conv.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domainmessaging.ErrConversationExists
		}
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

func (repo conversationRepo) Save(ctx context.Context, conv *domainmessaging.Conversation) error {
	if conv == nil || strings.TrimSpace(string(conv.ID)) == "" {
		return domainmessaging.ErrIDRequired
	}
	res, err := repo.r.exec(ctx,
		`UPDATE conversations SET listing_title = ?, last_message_snippet = ?, last_message_at = ?,
		   unread_a = ?, unread_b = ?
		 WHERE id = ?`,
		conv.ListingTitle,
		conv.LastMessageSnippet,
		toMillis(conv.LastMessageAt),
		conv.UnreadFor(conv.Participants[0]),
		conv.UnreadFor(conv.Participants[1]),
		string(conv.ID),
	)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domainmessaging.ErrConversationNotFound
	}
	return nil
}

func scanConversationRow(row *sql.Row) (*domainmessaging.Conversation, error) {
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainmessaging.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return conv, nil
}

func scanConversation(row rowScanner) (*domainmessaging.Conversation, error) {
	var (
		conv                domainmessaging.Conversation
		id, a, b, listingID string
		lastAt, createdAt   int64
		unreadA, unreadB    int
	)
	err := row.Scan(&id, &a, &b, &listingID, &conv.ListingTitle, &conv.LastMessageSnippet,
		&lastAt, &unreadA, &unreadB, &createdAt)
	if err != nil {
		return nil, err
	}
	conv.ID = domainmessaging.ConversationID(id)
	conv.Participants = [2]domainuser.ID{domainuser.ID(a), domainuser.ID(b)}
	conv.ListingID = domainlistings.ListingID(listingID)
	conv.LastMessageAt = fromMillis(lastAt)
	conv.CreatedAt = fromMillis(createdAt)
	conv.Unread = map[domainuser.ID]int{
		domainuser.ID(a): unreadA,
		domainuser.ID(b): unreadB,
	}
	return &conv, nil
}

type messageRepo struct{ r runner }

func (repo messageRepo) Append(ctx context.Context, msg *domainmessaging.Message) error {
	if msg == nil || strings.TrimSpace(string(msg.ID)) == "" {
		return domainmessaging.ErrIDRequired
	}
	_, err := repo.r.exec(ctx,
		`INSERT INTO messages (id, conversation_id, seq, sender_id, content, sent_at, is_read)
		 SELECT ?, ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ? FROM messages WHERE conversation_id = ?`,
		string(msg.ID),
		string(msg.ConversationID),
		string(msg.SenderID),
		msg.Content,
		toMillis(msg.SentAt),
		boolInt(msg.IsRead),
		string(msg.ConversationID),
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListByConversation reads the newest page backwards and returns it in
// chronological order. BeforeID pages by seq, which is unique per thread.
func (repo messageRepo) ListByConversation(ctx context.Context, id domainmessaging.ConversationID, page domainmessaging.MessagePage) ([]*domainmessaging.Message, error) {
	query := `SELECT id, conversation_id, sender_id, content, sent_at, is_read FROM messages WHERE conversation_id = ?`
	args := []any{string(id)}
	if page.BeforeID != "" {
		query += ` AND seq < (SELECT seq FROM messages WHERE conversation_id = ? AND id = ?)`
		args = append(args, string(id), string(page.BeforeID))
	}
	if !page.Before.IsZero() {
		query += ` AND sent_at < ?`
		args = append(args, toMillis(page.Before))
	}
	query += ` ORDER BY seq DESC`
	if page.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, page.Limit)
	}
	rows, err := repo.r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	var out []*domainmessaging.Message
	for rows.Next() {
		var (
			msg                     domainmessaging.Message
			msgID, convID, senderID string
			sentAt                  int64
			isRead                  int
		)
		if err := rows.Scan(&msgID, &convID, &senderID, &msg.Content, &sentAt, &isRead); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.ID = domainmessaging.MessageID(msgID)
		msg.ConversationID = domainmessaging.ConversationID(convID)
		msg.SenderID = domainuser.ID(senderID)
		msg.SentAt = fromMillis(sentAt)
		msg.IsRead = isRead != 0
		out = append(out, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (repo messageRepo) MarkRead(ctx context.Context, id domainmessaging.ConversationID, reader domainuser.ID) (int, error) {
	res, err := repo.r.exec(ctx,
		`UPDATE messages SET is_read = 1 WHERE conversation_id = ? AND sender_id <> ? AND is_read = 0`,
		string(id), string(reader))
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark messages read: %w", err)
	}
	return int(n), nil
}

func (repo messageRepo) CountUnread(ctx context.Context, id domainmessaging.ConversationID, reader domainuser.ID) (int, error) {
	var count int
	err := repo.r.queryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND sender_id <> ? AND is_read = 0`,
		string(id), string(reader)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}

var (
	_ domainmessaging.ConversationRepository = conversationRepo{}
	_ domainmessaging.MessageRepository      = messageRepo{}
)
