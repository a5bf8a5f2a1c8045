package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/virtual-dev/presence-service/internal/domain"
	"github.com/virtual-dev/presence-service/internal/llm"
	"github.com/virtual-dev/presence-service/internal/metrics"
	"github.com/virtual-dev/presence-service/internal/postgres"
	"github.com/virtual-dev/presence-service/internal/service"
)

// Registry is the slice of the websocket server the admin API drives.
type Registry interface {
	Kick(participantID, reason string) bool
	BroadcastAdminMessage(text string)
	ActiveParticipants() []string
}

type PresenceReader interface {
	Roster(ctx context.Context) ([]domain.Participant, error)
	Touch(ctx context.Context, id string) error
	MapBounds() (w, h float64)
}

type NPCChat interface {
	Chat(ctx context.Context, npcID, userID, message string) (*service.ChatResult, error)
	StreamChat(ctx context.Context, npcID, userID, message string, onChunk func(string)) (*service.ChatResult, error)
}

type ChatHistory interface {
	History(ctx context.Context, after string, limit int) ([]domain.ChatMessage, string, error)
}

type StorePinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	registry Registry
	presence PresenceReader
	npcChat  NPCChat
	history  ChatHistory
	store    StorePinger
	metrics  *metrics.Metrics
}

func NewHandler(registry Registry, presence PresenceReader, npcChat NPCChat, history ChatHistory, store StorePinger, m *metrics.Metrics) *Handler {
	return &Handler{
		registry: registry,
		presence: presence,
		npcChat:  npcChat,
		history:  history,
		store:    store,
		metrics:  m,
	}
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: msg})
}

// GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "presence-service API",
		"version": "1.0.0",
	})
}

type npcChatRequest struct {
	NPCID          string `json:"npcId"`
	UserID         string `json:"userId"`
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

// POST /api/npc/chat
func (h *Handler) NPCChat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeNPCChat(w, r)
	if !ok {
		return
	}

	result, err := h.npcChat.Chat(r.Context(), req.NPCID, req.UserID, req.Message)
	if err != nil {
		h.npcChatError(w, req, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"conversationId": result.ConversationID,
		"message":        result.Message,
		"npcName":        result.NPCName,
	})
}

// POST /api/npc/chat/stream, SSE: chunk events followed by done or error.
func (h *Handler) NPCChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeNPCChat(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeSSE := func(v any) {
		raw, err := json.Marshal(v)
		if err != nil {
			return
		}
		_, _ = fmt.Fprintf(w, "data: %s\n\n", raw)
		flusher.Flush()
	}

	result, err := h.npcChat.StreamChat(r.Context(), req.NPCID, req.UserID, req.Message, func(chunk string) {
		writeSSE(map[string]any{"type": "chunk", "content": chunk})
	})
	if err != nil {
		slog.Error("npc stream chat failed", "npc", req.NPCID, "user", req.UserID, "err", err)
		writeSSE(map[string]any{"type": "error", "error": publicNPCError(err)})
		return
	}

	writeSSE(map[string]any{
		"type":           "done",
		"conversationId": result.ConversationID,
		"npcName":        result.NPCName,
	})
}

func (h *Handler) decodeNPCChat(w http.ResponseWriter, r *http.Request) (npcChatRequest, bool) {
	var req npcChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return req, false
	}
	if req.NPCID == "" || req.Message == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "missing required fields: npcId, message, userId")
		return req, false
	}
	// chatting counts as activity for the session TTL; best-effort
	if err := h.presence.Touch(r.Context(), req.UserID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		slog.Debug("session touch failed", "user", req.UserID, "err", err)
	}
	return req, true
}

func (h *Handler) npcChatError(w http.ResponseWriter, req npcChatRequest, err error) {
	slog.Error("npc chat failed", "npc", req.NPCID, "user", req.UserID, "err", err)
	switch {
	case errors.Is(err, domain.ErrNPCNotFound):
		writeError(w, http.StatusNotFound, "npc not found")
	case errors.Is(err, llm.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, publicNPCError(err))
	default:
		writeError(w, http.StatusInternalServerError, publicNPCError(err))
	}
}

func publicNPCError(err error) string {
	if errors.Is(err, llm.ErrNotConfigured) {
		return "npc chat is not configured"
	}
	return "internal server error"
}

// GET /api/chat/history?after=&limit=
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	msgs, next, err := h.history.History(r.Context(), r.URL.Query().Get("after"), limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		slog.Error("chat history failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"items":      msgs,
		"nextCursor": next,
	})
}

// GET /api/admin/users
func (h *Handler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	roster, err := h.presence.Roster(r.Context())
	if err != nil {
		slog.Error("admin list users failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	connected := make(map[string]struct{})
	for _, id := range h.registry.ActiveParticipants() {
		connected[id] = struct{}{}
	}
	users := make([]domain.Participant, 0, len(roster))
	for _, p := range roster {
		if _, ok := connected[p.ID]; ok {
			users = append(users, p)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "users": users})
}

// GET /api/admin/metrics
func (h *Handler) AdminMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"metrics": h.metrics.Snapshot(),
	})
}

// GET /api/admin/health
func (h *Handler) AdminHealth(w http.ResponseWriter, r *http.Request) {
	status, store := "healthy", "connected"
	if err := h.store.Ping(r.Context()); err != nil {
		status, store = "degraded", "disconnected"
	}
	width, height := h.presence.MapBounds()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"health": map[string]any{
			"status":      status,
			"store":       store,
			"activeUsers": len(h.registry.ActiveParticipants()),
			"uptime":      int64(h.metrics.Uptime().Seconds()),
			"world":       map[string]any{"width": width, "height": height},
		},
	})
}

type kickRequest struct {
	UserID string `json:"userId"`
	Reason string `json:"reason,omitempty"`
}

// POST /api/admin/kick
func (h *Handler) AdminKick(w http.ResponseWriter, r *http.Request) {
	var req kickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if !h.registry.Kick(req.UserID, req.Reason) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	slog.Info("user kicked", "user", req.UserID, "reason", req.Reason)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "user kicked"})
}

type broadcastRequest struct {
	Message string `json:"message"`
}

// POST /api/admin/broadcast
func (h *Handler) AdminBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	h.registry.BroadcastAdminMessage(req.Message)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "broadcast sent"})
}
