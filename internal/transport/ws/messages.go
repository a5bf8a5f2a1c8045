package ws

import "github.com/virtual-dev/presence-service/internal/domain"

// Wire event types.
const (
	TypeJoin           = "join"            // client -> server
	TypeJoinResponse   = "join-response"   // server -> joining client
	TypeUserJoined     = "user-joined"     // server -> broadcast
	TypeUserLeft       = "user-left"       // server -> broadcast
	TypeMove           = "move"            // client -> server
	TypePositionUpdate = "position-update" // server -> broadcast
	TypeProximityEnter = "proximity-enter" // server -> each side of the pair
	TypeProximityExit  = "proximity-exit"  // server -> each side of the pair
	TypeChat           = "chat"            // client -> server
	TypeChatMessage    = "chat-message"    // server -> nearby peers
	TypeAdminMessage   = "admin-message"   // server -> broadcast
	TypeKicked         = "kicked"          // server -> kicked client
	TypeError          = "error"           // server -> client
)

// ExitDistance marks proximity-exit payloads: the pair is out of range, so no
// meaningful distance exists.
const ExitDistance = -1

// Error codes carried by the error event.
const (
	CodeInvalidPayload   = "INVALID_PAYLOAD"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeJoinError        = "JOIN_ERROR"
	CodeChatError        = "CHAT_ERROR"
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type JoinPayload struct {
	Username  string `json:"username,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type JoinResponsePayload struct {
	User  domain.Participant   `json:"user"`
	Users []domain.Participant `json:"users"`
	NPCs  []domain.NPCConfig   `json:"npcs"`
}

type UserLeftPayload struct {
	UserID string `json:"userId"`
}

type MovePayload struct {
	Position domain.Position `json:"position"`
}

type PositionUpdatePayload struct {
	UserID   string          `json:"userId"`
	Position domain.Position `json:"position"`
}

// ProximityPayload is addressed per recipient: UserID is the recipient's own
// id, TargetID the peer that entered or left its radius.
type ProximityPayload struct {
	UserID   string  `json:"userId"`
	TargetID string  `json:"targetId"`
	Distance float64 `json:"distance"`
}

type ChatPayload struct {
	Message string `json:"message"`
}

type AdminMessagePayload struct {
	Message string `json:"message"`
}

type KickedPayload struct {
	Reason string `json:"reason"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
