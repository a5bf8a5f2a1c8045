package ws

import (
	"sync"
)

type Conn interface {
	Send(msg Message) error
	Close() error
	ConnID() string
}

// Hub is the connection registry: it owns the connID <-> participantID
// association and resolves a participant id to its live connection for
// directly-addressed events.
type Hub struct {
	mu            sync.RWMutex
	conns         map[string]Conn   // connID -> connection
	participants  map[string]string // connID -> participantID
	byParticipant map[string]string // participantID -> connID
}

func NewHub() *Hub {
	return &Hub{
		conns:         make(map[string]Conn),
		participants:  make(map[string]string),
		byParticipant: make(map[string]string),
	}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ConnID()] = c
}

// Bind associates a connection with a joined participant.
func (h *Hub) Bind(connID, participantID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[connID]; !ok {
		return
	}
	h.participants[connID] = participantID
	h.byParticipant[participantID] = connID
}

// Remove drops the connection and any binding. Safe to call repeatedly; the
// second call is a no-op and reports ok=false.
func (h *Hub) Remove(connID string) (participantID string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.conns[connID]; !exists {
		return "", false
	}
	delete(h.conns, connID)
	if pid, bound := h.participants[connID]; bound {
		delete(h.participants, connID)
		if h.byParticipant[pid] == connID {
			delete(h.byParticipant, pid)
		}
		return pid, true
	}
	return "", true
}

// SendTo delivers an event to one participant's connection. Best-effort:
// reports false when the participant has no live connection.
func (h *Hub) SendTo(participantID string, msg Message) bool {
	h.mu.RLock()
	connID, ok := h.byParticipant[participantID]
	var c Conn
	if ok {
		c = h.conns[connID]
	}
	h.mu.RUnlock()
	if c == nil {
		return false
	}
	return c.Send(msg) == nil
}

func (h *Hub) Broadcast(msg Message) {
	for _, c := range h.snapshot() {
		_ = c.Send(msg) // best-effort
	}
}

// BroadcastExcept fans out to every bound connection except the named
// participant's own.
func (h *Hub) BroadcastExcept(participantID string, msg Message) {
	h.mu.RLock()
	skip := h.byParticipant[participantID]
	h.mu.RUnlock()
	for _, c := range h.snapshot() {
		if c.ConnID() == skip {
			continue
		}
		_ = c.Send(msg)
	}
}

// ConnFor resolves a participant to its live connection, if any.
func (h *Hub) ConnFor(participantID string) Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if connID, ok := h.byParticipant[participantID]; ok {
		return h.conns[connID]
	}
	return nil
}

// ParticipantIDs lists participants with a live, joined connection.
func (h *Hub) ParticipantIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.byParticipant))
	for pid := range h.byParticipant {
		out = append(out, pid)
	}
	return out
}

func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) snapshot() []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Conn, 0, len(h.conns))
	for _, c := range h.conns {
		out = append(out, c)
	}
	return out
}
