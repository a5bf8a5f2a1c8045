package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/virtual-dev/presence-service/internal/domain"
	"github.com/virtual-dev/presence-service/internal/metrics"
	"github.com/virtual-dev/presence-service/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ConnState is the per-connection protocol state. Events arriving in the
// wrong state are dropped, never escalated into a connection teardown.
type ConnState int

const (
	StateUnjoined ConnState = iota
	StateActive
	StateTerminated
)

type PresenceSvc interface {
	Join(ctx context.Context, sessionID, requestedName string) (*domain.Participant, []domain.Participant, error)
	UpdatePosition(ctx context.Context, id string, pos domain.Position) (*domain.Participant, error)
	Roster(ctx context.Context) ([]domain.Participant, error)
	Disconnect(ctx context.Context, id string) error
}

type Tracker interface {
	UpdateOnMove(p domain.Participant, all []domain.Participant) (entered []service.Neighbor, exited []string)
	RemoveParticipant(id string) []string
	Neighbors(id string) []string
}

type ChatSvc interface {
	Save(ctx context.Context, sender domain.Participant, text string) (*domain.ChatMessage, error)
}

type NPCLister interface {
	ListNPCs(ctx context.Context) ([]domain.NPCConfig, error)
}

// Server drives every websocket connection through the join/move/disconnect
// protocol and routes outbound events, broadcast or directly addressed.
type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	presence PresenceSvc
	tracker  Tracker
	chat     ChatSvc
	npcs     NPCLister
	metrics  *metrics.Metrics

	pingEvery time.Duration
}

func NewServer(hub *Hub, presence PresenceSvc, tracker Tracker, chat ChatSvc, npcs NPCLister, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.New()
	}
	return &Server{
		hub:      hub,
		presence: presence,
		tracker:  tracker,
		chat:     chat,
		npcs:     npcs,
		metrics:  m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// session is the coordinator's view of one connection. Its mutex serializes
// event handling for that connection, so a participant's own moves can never
// interleave; different connections proceed concurrently.
type session struct {
	conn Conn

	mu          sync.Mutex
	state       ConnState
	participant *domain.Participant
}

// WS endpoint: GET /ws
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn, uuid.NewString())
	s.hub.Add(c)
	s.metrics.ConnectionsTotal.Add(1)
	s.metrics.ConnectionsActive.Add(1)

	sess := &session{conn: c, state: StateUnjoined}

	go s.writeLoop(r.Context(), c)
	s.readLoop(r.Context(), c, sess)

	s.terminate(sess)
}

// Kick force-disconnects a participant. Cleanup and peer notification run
// through the normal disconnect path when the read loop unwinds.
func (s *Server) Kick(participantID, reason string) bool {
	c := s.hub.ConnFor(participantID)
	if c == nil {
		return false
	}
	if reason == "" {
		reason = "You have been removed by an administrator"
	}
	_ = c.Send(Message{Type: TypeKicked, Payload: KickedPayload{Reason: reason}})
	_ = c.Close()
	s.metrics.Kicks.Add(1)
	return true
}

// BroadcastAdminMessage fans an operator notice out to every connection.
func (s *Server) BroadcastAdminMessage(text string) {
	s.hub.Broadcast(Message{Type: TypeAdminMessage, Payload: AdminMessagePayload{Message: text}})
}

// ActiveParticipants lists participants with a live, joined connection.
func (s *Server) ActiveParticipants() []string {
	return s.hub.ParticipantIDs()
}

func (s *Server) readLoop(ctx context.Context, c *wsConn, sess *session) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(ctx, sess, data)
	}
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// dispatch is the single (state, event) switch. Anything outside the table is
// a defined no-op.
func (s *Server) dispatch(ctx context.Context, sess *session, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.sendError(sess.conn, "malformed event", CodeInvalidPayload)
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch {
	case sess.state == StateUnjoined && env.Type == TypeJoin:
		s.handleJoin(ctx, sess, env.Payload)
	case sess.state == StateActive && env.Type == TypeMove:
		s.handleMove(ctx, sess, env.Payload)
	case sess.state == StateActive && env.Type == TypeChat:
		s.handleChat(ctx, sess, env.Payload)
	default:
		s.metrics.DroppedEvents.Add(1)
		slog.Debug("ws event dropped", "type", env.Type, "state", sess.state, "conn", sess.conn.ConnID())
	}
}

func (s *Server) handleJoin(ctx context.Context, sess *session, raw json.RawMessage) {
	var p JoinPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			s.sendError(sess.conn, "invalid join payload", CodeInvalidPayload)
			return
		}
	}

	user, others, err := s.presence.Join(ctx, p.SessionID, p.Username)
	if err != nil {
		s.reportErr(sess.conn, "", TypeJoin, err, CodeJoinError)
		return
	}

	s.hub.Bind(sess.conn.ConnID(), user.ID)
	sess.state = StateActive
	sess.participant = user
	s.metrics.Joins.Add(1)

	var npcs []domain.NPCConfig
	if s.npcs != nil {
		if npcs, err = s.npcs.ListNPCs(ctx); err != nil {
			slog.Warn("ws list npcs failed", "user", user.ID, "err", err)
			npcs = nil
		}
	}

	if err := sess.conn.Send(Message{
		Type: TypeJoinResponse,
		Payload: JoinResponsePayload{
			User:  *user,
			Users: others,
			NPCs:  npcs,
		},
	}); err != nil {
		slog.Warn("ws send join response failed", "user", user.ID, "err", err)
	}

	s.hub.BroadcastExcept(user.ID, Message{Type: TypeUserJoined, Payload: *user})
	slog.Info("user joined", "user", user.ID, "username", user.Username, "resumed", p.SessionID != "")
}

func (s *Server) handleMove(ctx context.Context, sess *session, raw json.RawMessage) {
	var mp MovePayload
	if err := json.Unmarshal(raw, &mp); err != nil {
		s.sendError(sess.conn, "invalid move payload", CodeInvalidPayload)
		return
	}

	user := sess.participant
	moved, err := s.presence.UpdatePosition(ctx, user.ID, mp.Position)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownParticipant) {
			// stale client with an expired record: drop quietly
			s.metrics.DroppedEvents.Add(1)
			return
		}
		s.reportErr(sess.conn, user.ID, TypeMove, err, "")
		return
	}
	sess.participant = moved
	s.metrics.Moves.Add(1)

	s.hub.BroadcastExcept(moved.ID, Message{
		Type:    TypePositionUpdate,
		Payload: PositionUpdatePayload{UserID: moved.ID, Position: moved.Position},
	})

	roster, err := s.presence.Roster(ctx)
	if err != nil {
		s.reportErr(sess.conn, user.ID, TypeMove, err, "")
		return
	}

	entered, exited := s.tracker.UpdateOnMove(*moved, roster)
	for _, n := range entered {
		s.metrics.ProximityEnters.Add(1)
		s.hub.SendTo(moved.ID, Message{
			Type:    TypeProximityEnter,
			Payload: ProximityPayload{UserID: moved.ID, TargetID: n.ID, Distance: n.Distance},
		})
		s.hub.SendTo(n.ID, Message{
			Type:    TypeProximityEnter,
			Payload: ProximityPayload{UserID: n.ID, TargetID: moved.ID, Distance: n.Distance},
		})
	}
	for _, id := range exited {
		s.metrics.ProximityExits.Add(1)
		s.hub.SendTo(moved.ID, Message{
			Type:    TypeProximityExit,
			Payload: ProximityPayload{UserID: moved.ID, TargetID: id, Distance: ExitDistance},
		})
		s.hub.SendTo(id, Message{
			Type:    TypeProximityExit,
			Payload: ProximityPayload{UserID: id, TargetID: moved.ID, Distance: ExitDistance},
		})
	}
}

// handleChat relays a chat line to the sender and everyone currently within
// proximity radius.
func (s *Server) handleChat(ctx context.Context, sess *session, raw json.RawMessage) {
	var cp ChatPayload
	if err := json.Unmarshal(raw, &cp); err != nil {
		s.sendError(sess.conn, "invalid chat payload", CodeInvalidPayload)
		return
	}
	if s.chat == nil {
		s.metrics.DroppedEvents.Add(1)
		return
	}

	user := sess.participant
	msg, err := s.chat.Save(ctx, *user, cp.Message)
	if err != nil {
		s.reportErr(sess.conn, user.ID, TypeChat, err, CodeChatError)
		return
	}
	s.metrics.ChatMessages.Add(1)

	out := Message{Type: TypeChatMessage, Payload: *msg}
	_ = sess.conn.Send(out)
	for _, id := range s.tracker.Neighbors(user.ID) {
		s.hub.SendTo(id, out)
	}
}

// terminate runs the disconnect protocol exactly once per connection.
// Repeated calls, including a kick racing the read loop's own exit, are
// no-ops.
func (s *Server) terminate(sess *session) {
	sess.mu.Lock()
	if sess.state == StateTerminated {
		sess.mu.Unlock()
		return
	}
	wasActive := sess.state == StateActive
	sess.state = StateTerminated
	user := sess.participant
	sess.mu.Unlock()

	s.hub.Remove(sess.conn.ConnID())
	_ = sess.conn.Close()
	s.metrics.ConnectionsActive.Add(-1)

	if !wasActive || user == nil {
		return
	}

	// The departing side cannot receive its exit, but every former neighbor
	// must still learn the pair is broken.
	former := s.tracker.RemoveParticipant(user.ID)
	for _, id := range former {
		s.metrics.ProximityExits.Add(1)
		s.hub.SendTo(id, Message{
			Type:    TypeProximityExit,
			Payload: ProximityPayload{UserID: id, TargetID: user.ID, Distance: ExitDistance},
		})
	}

	s.hub.Broadcast(Message{Type: TypeUserLeft, Payload: UserLeftPayload{UserID: user.ID}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.presence.Disconnect(ctx, user.ID); err != nil {
		s.metrics.StoreErrors.Add(1)
		slog.Warn("disconnect cleanup failed", "user", user.ID, "err", err)
	}
	slog.Info("user left", "user", user.ID, "username", user.Username)
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

// reportErr maps a handler failure onto a wire error event. The connection
// stays open in every case; faults are isolated to the connection they hit.
func (s *Server) reportErr(c Conn, userID, event string, err error, fallbackCode string) {
	code := fallbackCode
	msg := "internal error"
	if errors.Is(err, domain.ErrStoreUnavailable) {
		s.metrics.StoreErrors.Add(1)
		code = CodeStoreUnavailable
		msg = "session store unavailable, try again"
	} else if fallbackCode != "" {
		msg = "failed to handle " + event
	}
	slog.Error("ws handler error", "event", event, "user", userID, "err", err)
	s.sendError(c, msg, code)
}

func (s *Server) sendError(c Conn, message, code string) {
	_ = c.Send(Message{Type: TypeError, Payload: ErrorPayload{Message: message, Code: code}})
}
