package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/virtual-dev/presence-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NPCRepository struct {
	db *pgxpool.Pool
}

func NewNPCRepository(db *pgxpool.Pool) *NPCRepository {
	return &NPCRepository{db: db}
}

func (r *NPCRepository) List(ctx context.Context) ([]domain.NPCConfig, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, role, system_prompt, position_x, position_y, COALESCE(icon_url, '')
		FROM npcs ORDER BY name
	`)
	if err != nil {
		return nil, storeErr("npcs.List", err)
	}
	defer rows.Close()

	var out []domain.NPCConfig
	for rows.Next() {
		var n domain.NPCConfig
		if err := rows.Scan(&n.ID, &n.Name, &n.Role, &n.SystemPrompt,
			&n.Position.X, &n.Position.Y, &n.IconURL); err != nil {
			return nil, storeErr("npcs.List", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("npcs.List", err)
	}
	return out, nil
}

func (r *NPCRepository) Get(ctx context.Context, id string) (*domain.NPCConfig, error) {
	var n domain.NPCConfig
	err := r.db.QueryRow(ctx, `
		SELECT id, name, role, system_prompt, position_x, position_y, COALESCE(icon_url, '')
		FROM npcs WHERE id=$1
	`, id).Scan(&n.ID, &n.Name, &n.Role, &n.SystemPrompt, &n.Position.X, &n.Position.Y, &n.IconURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNPCNotFound
		}
		return nil, storeErr("npcs.Get", err)
	}
	return &n, nil
}

// GetConversation returns the running conversation between a participant and
// an NPC, or ErrConversationMissing when none has been started.
func (r *NPCRepository) GetConversation(ctx context.Context, npcID, userID string) (*domain.Conversation, error) {
	var c domain.Conversation
	var raw []byte
	err := r.db.QueryRow(ctx, `
		SELECT id, npc_id, user_id, messages, created_at, updated_at
		FROM npc_conversations WHERE npc_id=$1 AND user_id=$2
	`, npcID, userID).Scan(&c.ID, &c.NPCID, &c.UserID, &raw, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationMissing
		}
		return nil, storeErr("npc_conversations.Get", err)
	}
	if err := json.Unmarshal(raw, &c.Messages); err != nil {
		return nil, fmt.Errorf("npc_conversations.Get: decode messages: %w", err)
	}
	return &c, nil
}

func (r *NPCRepository) SaveConversation(ctx context.Context, c *domain.Conversation) error {
	raw, err := json.Marshal(c.Messages)
	if err != nil {
		return fmt.Errorf("npc_conversations.Save: encode messages: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO npc_conversations (id, npc_id, user_id, messages)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (npc_id, user_id) DO UPDATE
		SET messages=$4, updated_at=now()
	`, c.ID, c.NPCID, c.UserID, raw)
	if err != nil {
		return storeErr("npc_conversations.Save", err)
	}
	return nil
}
