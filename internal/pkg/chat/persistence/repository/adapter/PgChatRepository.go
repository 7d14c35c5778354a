package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "convohub/internal/pkg/chat/application/domain"
	repository "convohub/internal/pkg/chat/persistence/repository/port"
)

// PgChatRepository implements the ChatRepository port on top of a pgx pool.
// Tables live in the chat schema: conversation, participant, message
// (see schema.sql).
type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

var _ repository.ChatRepository = (*PgChatRepository)(nil)

func (r *PgChatRepository) CreateConversation(ctx context.Context, name *string, participantIDs []string) (*chat.Conversation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	conv := chat.Conversation{Name: name}
	err = tx.QueryRow(ctx, `
		INSERT INTO chat.conversation (name) VALUES ($1)
		RETURNING id::text, created_at, updated_at
	`, name).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, err
	}

	for _, userID := range participantIDs {
		var p chat.Participant
		err = tx.QueryRow(ctx, `
			INSERT INTO chat.participant (conversation_id, user_id)
			VALUES ($1::uuid, $2::uuid)
			RETURNING conversation_id::text, user_id::text, joined_at
		`, conv.ID, userID).Scan(&p.ConversationID, &p.UserID, &p.JoinedAt)
		if err != nil {
			return nil, err
		}
		conv.Participants = append(conv.Participants, p)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *PgChatRepository) FindDirectConversation(ctx context.Context, userA, userB string) (*chat.Conversation, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		SELECT p.conversation_id::text
		FROM chat.participant p
		GROUP BY p.conversation_id
		HAVING COUNT(*) = 2
		   AND COUNT(*) FILTER (WHERE p.user_id IN ($1::uuid, $2::uuid)) = 2
		LIMIT 1
	`, userA, userB).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.GetConversation(ctx, id)
}

func (r *PgChatRepository) GetConversation(ctx context.Context, id string) (*chat.Conversation, error) {
	var conv chat.Conversation
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, created_at, updated_at
		FROM chat.conversation WHERE id = $1::uuid
	`, id).Scan(&conv.ID, &conv.Name, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if conv.Participants, err = r.ListParticipants(ctx, id); err != nil {
		return nil, err
	}
	if conv.LastMessage, err = r.latestMessage(ctx, id); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *PgChatRepository) ListUserConversations(ctx context.Context, userID string) ([]chat.Conversation, error) {
	ids, err := r.ListUserConversationIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	convs := make([]chat.Conversation, 0, len(ids))
	for _, id := range ids {
		conv, err := r.GetConversation(ctx, id)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *conv)
	}
	return convs, nil
}

func (r *PgChatRepository) ListUserConversationIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id::text
		FROM chat.conversation c
		JOIN chat.participant p ON p.conversation_id = c.id
		WHERE p.user_id = $1::uuid
		ORDER BY c.updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PgChatRepository) TouchConversation(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE chat.conversation SET updated_at = $2 WHERE id = $1::uuid`, id, at)
	return err
}

func (r *PgChatRepository) DeleteConversation(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chat.message WHERE conversation_id = $1::uuid`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM chat.participant WHERE conversation_id = $1::uuid`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM chat.conversation WHERE id = $1::uuid`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PgChatRepository) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chat.participant
			WHERE conversation_id = $1::uuid AND user_id = $2::uuid
		)
	`, conversationID, userID).Scan(&ok)
	return ok, err
}

func (r *PgChatRepository) ListParticipants(ctx context.Context, conversationID string) ([]chat.Participant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT conversation_id::text, user_id::text, joined_at, last_read_at
		FROM chat.participant
		WHERE conversation_id = $1::uuid
		ORDER BY joined_at
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chat.Participant
	for rows.Next() {
		var p chat.Participant
		if err := rows.Scan(&p.ConversationID, &p.UserID, &p.JoinedAt, &p.LastReadAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PgChatRepository) AddParticipants(ctx context.Context, conversationID string, userIDs []string) ([]string, error) {
	var added []string
	for _, userID := range userIDs {
		var id string
		err := r.pool.QueryRow(ctx, `
			INSERT INTO chat.participant (conversation_id, user_id)
			VALUES ($1::uuid, $2::uuid)
			ON CONFLICT (conversation_id, user_id) DO NOTHING
			RETURNING user_id::text
		`, conversationID, userID).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			continue // already a participant
		}
		if err != nil {
			return nil, err
		}
		added = append(added, id)
	}
	return added, nil
}

func (r *PgChatRepository) RemoveParticipant(ctx context.Context, conversationID, userID string) (int, error) {
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM chat.participant
		WHERE conversation_id = $1::uuid AND user_id = $2::uuid
	`, conversationID, userID)
	if err != nil {
		return 0, err
	}
	if ct.RowsAffected() == 0 {
		return 0, chat.ErrNotParticipant
	}

	var remaining int
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chat.participant WHERE conversation_id = $1::uuid`,
		conversationID).Scan(&remaining)
	return remaining, err
}

func (r *PgChatRepository) SetLastReadAt(ctx context.Context, conversationID, userID string, at time.Time) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE chat.participant
		SET last_read_at = $3
		WHERE conversation_id = $1::uuid AND user_id = $2::uuid
	`, conversationID, userID, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return chat.ErrNotParticipant
	}
	return nil
}

func (r *PgChatRepository) SaveMessage(ctx context.Context, m chat.Message) (*chat.Message, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat.message (conversation_id, sender_id, content, created_at)
		VALUES ($1::uuid, $2::uuid, $3, $4)
		RETURNING id::text, created_at
	`, m.ConversationID, m.SenderID, m.Content, m.CreatedAt).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgChatRepository) GetMessage(ctx context.Context, id string) (*chat.Message, error) {
	var m chat.Message
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, conversation_id::text, sender_id::text, content, created_at, is_deleted
		FROM chat.message WHERE id = $1::uuid
	`, id).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt, &m.IsDeleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns up to limit non-deleted messages strictly older than
// the cursor, newest first. Cursor pagination on created_at avoids skew under
// concurrent inserts; callers reverse for display.
func (r *PgChatRepository) ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, conversation_id::text, sender_id::text, content, created_at, is_deleted
		FROM chat.message
		WHERE conversation_id = $1::uuid
		  AND NOT is_deleted
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, conversationID, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt, &m.IsDeleted); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *PgChatRepository) SoftDeleteMessage(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE chat.message SET is_deleted = TRUE WHERE id = $1::uuid`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return chat.ErrNotFound
	}
	return nil
}

func (r *PgChatRepository) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM chat.message m
		JOIN chat.participant p
		  ON p.conversation_id = m.conversation_id AND p.user_id = $2::uuid
		WHERE m.conversation_id = $1::uuid
		  AND m.sender_id <> $2::uuid
		  AND NOT m.is_deleted
		  AND (p.last_read_at IS NULL OR m.created_at > p.last_read_at)
	`, conversationID, userID).Scan(&count)
	return count, err
}

func (r *PgChatRepository) UnreadCounts(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.conversation_id::text,
		       COUNT(m.id) FILTER (
		           WHERE m.sender_id <> $1::uuid
		             AND NOT m.is_deleted
		             AND (p.last_read_at IS NULL OR m.created_at > p.last_read_at)
		       )
		FROM chat.participant p
		LEFT JOIN chat.message m ON m.conversation_id = p.conversation_id
		WHERE p.user_id = $1::uuid
		GROUP BY p.conversation_id
		HAVING COUNT(m.id) FILTER (
		           WHERE m.sender_id <> $1::uuid
		             AND NOT m.is_deleted
		             AND (p.last_read_at IS NULL OR m.created_at > p.last_read_at)
		       ) > 0
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (r *PgChatRepository) MessageStats(ctx context.Context, from, until time.Time) (chat.DailyStats, error) {
	stats := chat.DailyStats{Day: from}
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT conversation_id),
		       COUNT(DISTINCT sender_id)
		FROM chat.message
		WHERE created_at >= $1 AND created_at < $2 AND NOT is_deleted
	`, from, until).Scan(&stats.Messages, &stats.ActiveConversations, &stats.ActiveSenders)
	return stats, err
}

func (r *PgChatRepository) latestMessage(ctx context.Context, conversationID string) (*chat.Message, error) {
	var m chat.Message
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, conversation_id::text, sender_id::text, content, created_at, is_deleted
		FROM chat.message
		WHERE conversation_id = $1::uuid AND NOT is_deleted
		ORDER BY created_at DESC
		LIMIT 1
	`, conversationID).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt, &m.IsDeleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
