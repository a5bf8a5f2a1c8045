package domain

import "time"

// NPCConfig describes a scripted character placed on the map. Participants
// within proximity radius of its position may open a conversation with it.
type NPCConfig struct {
	ID           string   `json:"id" db:"id"`
	Name         string   `json:"name" db:"name"`
	Role         string   `json:"role" db:"role"`
	SystemPrompt string   `json:"-" db:"system_prompt"`
	Position     Position `json:"position"`
	IconURL      string   `json:"iconUrl,omitempty" db:"icon_url"`
}

type ConversationMessage struct {
	Role      string    `json:"role"` // user | assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Conversation struct {
	ID        string                `json:"id" db:"id"`
	NPCID     string                `json:"npcId" db:"npc_id"`
	UserID    string                `json:"userId" db:"user_id"`
	Messages  []ConversationMessage `json:"messages"`
	CreatedAt time.Time             `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time             `json:"updatedAt" db:"updated_at"`
}
