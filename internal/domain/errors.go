package domain

import "errors"

var (
	// ErrStoreUnavailable wraps any backing-store failure. Callers report it
	// to the affected connection and keep the connection open.
	ErrStoreUnavailable = errors.New("session store unavailable")

	ErrSessionNotFound     = errors.New("session not found")
	ErrUnknownParticipant  = errors.New("unknown participant")
	ErrNPCNotFound         = errors.New("npc not found")
	ErrConversationMissing = errors.New("conversation not found")
)
