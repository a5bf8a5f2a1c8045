package postgres

import (
	"context"

	"github.com/virtual-dev/presence-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Save(ctx context.Context, m *domain.ChatMessage) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO chat_messages (id, user_id, username, message, position_x, position_y)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, m.ID, m.UserID, m.Username, m.Message, m.Position.X, m.Position.Y).Scan(&m.CreatedAt)
	if err != nil {
		return storeErr("chat_messages.Save", err)
	}
	return nil
}

// History pages newest-first with a (created_at, id) cursor.
func (r *ChatRepository) History(ctx context.Context, after string, limit int) ([]domain.ChatMessage, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	cur, err := decodeHistoryCursor(after)
	if err != nil {
		return nil, "", err
	}

	const q = `
		SELECT id, user_id, username, message, position_x, position_y, created_at
		FROM chat_messages
		WHERE ($1::timestamptz IS NULL
		       OR created_at < $1
		       OR (created_at = $1 AND id < $2))
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	var createdAt, id any
	if cur != nil {
		createdAt = cur.Ts
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, q, createdAt, id, limit)
	if err != nil {
		return nil, "", storeErr("chat_messages.History", err)
	}
	defer rows.Close()

	var out []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Username, &m.Message,
			&m.Position.X, &m.Position.Y, &m.CreatedAt); err != nil {
			return nil, "", storeErr("chat_messages.History", err)
		}
		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, "", storeErr("chat_messages.History", err)
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		next = encodeHistoryCursor(last.CreatedAt, last.ID)
	}
	return out, next, nil
}
