package domain

import "time"

// ChatMessage is a proximity-gated chat line, persisted for history.
type ChatMessage struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	Message   string    `json:"message" db:"message"`
	Position  Position  `json:"position"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
