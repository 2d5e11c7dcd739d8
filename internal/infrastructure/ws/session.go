package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/hilthontt/relay/internal/domain"
	"github.com/hilthontt/relay/internal/infrastructure/configs"
	"github.com/hilthontt/relay/internal/infrastructure/events"
	"github.com/hilthontt/relay/internal/infrastructure/logging"
	"github.com/hilthontt/relay/internal/infrastructure/metrics"
)

const (
	closeNormal       = 1000
	deleteCloseReason = "Room deleted by owner"
)

// SessionDeps bundles the collaborators a session needs. The publisher
// and metrics may be nil; the session degrades to protocol-only behavior.
type SessionDeps struct {
	Registry  *Registry
	Rooms     domain.RoomRepository
	Messages  domain.MessageRepository
	Publisher *events.RoomPublisher
	Metrics   *metrics.Metrics
	Logger    logging.Logger
	Config    configs.RelayConfig
}

// Session drives one connection through its lifecycle. Frames are
// processed sequentially by the read loop, so persist-then-broadcast
// ordering holds without per-frame locking.
type Session struct {
	deps   SessionDeps
	conn   Conn
	client *Client

	uid      string
	username string
	roomID   string
	bound    bool

	closeOnce sync.Once
}

func NewSession(conn Conn, deps SessionDeps) *Session {
	return &Session{
		deps:   deps,
		conn:   conn,
		client: NewClient(conn, deps.Config.SendBuffer),
	}
}

// Run reads frames until the connection drops, then cleans up the
// member entry. It blocks; the write pump runs on its own goroutine.
func (s *Session) Run(ctx context.Context) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ActiveConnections.Inc()
		defer s.deps.Metrics.ActiveConnections.Dec()
	}

	go s.client.WritePump()
	defer s.teardown()

	for {
		raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Type == "" {
			s.client.TrySend(NewErrorEvent("malformed frame"))
			continue
		}

		s.dispatch(ctx, frame)
	}
}

func (s *Session) dispatch(ctx context.Context, frame Frame) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.FramesReceived.WithLabelValues(frame.Type).Inc()
	}

	switch frame.Type {
	case FrameCreateRoom:
		s.handleCreateRoom(ctx, frame.Payload)
	case FrameJoinRoom:
		s.handleJoin(ctx, frame.Payload, true)
	case FrameReconnect:
		s.handleJoin(ctx, frame.Payload, false)
	case FrameChat:
		s.handleChat(ctx, frame.Payload)
	case FrameLeaveRoom:
		s.handleLeaveRoom(ctx)
	case FrameDeleteRoom:
		s.handleDeleteRoom(ctx)
	default:
		s.client.TrySend(NewErrorEvent("unknown frame type"))
	}
}

func decodeIdentity(payload json.RawMessage) (IdentityPayload, error) {
	var p IdentityPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return p, errors.New("malformed frame")
	}
	return p, p.Validate()
}

func (s *Session) handleCreateRoom(ctx context.Context, payload json.RawMessage) {
	p, err := decodeIdentity(payload)
	if err != nil {
		s.client.TrySend(NewErrorEvent(err.Error()))
		return
	}

	room := domain.NewRoom(p.RoomID, p.User)
	if err := s.deps.Rooms.Insert(ctx, room); err != nil {
		if errors.Is(err, domain.ErrRoomAlreadyExists) {
			s.client.TrySend(NewErrorEvent("Room already exists"))
			return
		}
		s.fail(ctx, "create room failed", p.RoomID, err)
		return
	}

	active := s.deps.Registry.GetOrCreate(p.RoomID, p.User)
	active.AddMember(p.ID, p.User, s.client)
	s.bind(p)

	s.client.TrySend(NewRoomCreatedEvent(p.User))
	s.countDelivered(EventRoomCreated, 1)
	s.observeRooms()

	if err := s.deps.Publisher.PublishRoomCreated(ctx, *room); err != nil {
		s.logPublishError(ctx, p.RoomID, err)
	}

	s.deps.Logger.Info(logging.Relay, logging.Session, "room created", map[logging.ExtraKey]any{
		logging.RoomID:    p.RoomID,
		logging.MemberUID: p.ID,
	})
}

func (s *Session) handleJoin(ctx context.Context, payload json.RawMessage, announce bool) {
	p, err := decodeIdentity(payload)
	if err != nil {
		s.client.TrySend(NewErrorEvent(err.Error()))
		return
	}

	room, err := s.deps.Rooms.GetByID(ctx, p.RoomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			s.client.TrySend(NewErrorEvent("Room not found"))
			return
		}
		s.fail(ctx, "room lookup failed", p.RoomID, err)
		return
	}

	active := s.deps.Registry.GetOrCreate(room.RoomID, room.Owner)

	start := time.Now()
	history, err := s.deps.Messages.GetRecentByRoomID(ctx, room.RoomID, int64(s.historyLimit()))
	if err != nil {
		s.fail(ctx, "history load failed", room.RoomID, err)
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.HistoryDuration.Observe(time.Since(start).Seconds())
	}

	active.AddMember(p.ID, p.User, s.client)
	s.bind(p)
	s.observeRooms()

	s.client.TrySend(NewHistoryEvent(room.Owner, history, active.ResolveUID))
	s.countDelivered(EventHistory, 1)

	if announce {
		delivered, dropped := active.Broadcast(NewSystemEvent(p.User + " joined."))
		s.countBroadcast(EventSystem, delivered, dropped)
	}

	if err := s.deps.Publisher.PublishMemberJoined(ctx, *room, p.ID, p.User, active.MemberCount()); err != nil {
		s.logPublishError(ctx, room.RoomID, err)
	}
}

func (s *Session) handleChat(ctx context.Context, payload json.RawMessage) {
	if !s.bound {
		return
	}

	var p ChatPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.client.TrySend(NewErrorEvent("malformed frame"))
		return
	}
	if err := p.Validate(); err != nil {
		s.client.TrySend(NewErrorEvent(err.Error()))
		return
	}

	stored, err := s.deps.Messages.Insert(ctx, &domain.Message{
		RoomID:   s.roomID,
		UID:      s.uid,
		Username: s.username,
		Body:     p.Message,
	})
	if err != nil {
		s.fail(ctx, "message persist failed", s.roomID, err)
		return
	}

	// A missing active room only suppresses delivery; the message is
	// already durable and shows up in the next history replay.
	active, ok := s.deps.Registry.Get(s.roomID)
	if !ok {
		return
	}

	delivered, dropped := active.Broadcast(NewChatEvent(stored))
	s.countBroadcast(EventChat, delivered, dropped)

	if err := s.deps.Publisher.PublishMessageSent(ctx, domain.Room{RoomID: s.roomID, Owner: active.Owner}, s.uid, s.username); err != nil {
		s.logPublishError(ctx, s.roomID, err)
	}
}

func (s *Session) handleLeaveRoom(ctx context.Context) {
	if !s.bound {
		return
	}
	s.leaveActiveRoom(ctx)
}

// leaveActiveRoom removes the member, notifies the remaining members,
// and unbinds the session. Explicit leave-room frames and transport
// closes share this path.
func (s *Session) leaveActiveRoom(ctx context.Context) {
	active, ok := s.deps.Registry.Get(s.roomID)
	if !ok {
		s.unbind()
		return
	}

	active.RemoveMember(s.uid)
	delivered, dropped := active.Broadcast(NewSystemEvent(s.username + " left."))
	s.countBroadcast(EventSystem, delivered, dropped)

	if err := s.deps.Publisher.PublishMemberLeft(ctx, domain.Room{RoomID: s.roomID, Owner: active.Owner}, s.uid, s.username, active.MemberCount()); err != nil {
		s.logPublishError(ctx, s.roomID, err)
	}

	s.unbind()
}

func (s *Session) handleDeleteRoom(ctx context.Context) {
	if !s.bound {
		return
	}

	active, ok := s.deps.Registry.Get(s.roomID)
	if !ok {
		return
	}
	if active.Owner != s.username {
		if s.deps.Config.SurfaceUnauthorized {
			s.client.TrySend(NewErrorEvent("Only the room owner can delete the room"))
		}
		return
	}

	roomID := s.roomID
	memberCount := active.MemberCount()

	// The deletion notice is written directly rather than queued, so it
	// reaches the socket before the forced close.
	event := NewRoomDeletedEvent()
	delivered := 0
	for _, client := range active.snapshot() {
		if err := client.WriteDirect(event); err == nil {
			delivered++
		}
		client.CloseSend()
		_ = client.conn.CloseWithReason(closeNormal, deleteCloseReason)
	}
	s.countDelivered(EventRoomDeleted, delivered)

	s.deps.Registry.Remove(roomID)
	s.observeRooms()

	if err := s.deps.Rooms.Delete(ctx, roomID); err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
		s.logStoreError(ctx, "room delete failed", roomID, err)
	}
	if err := s.deps.Messages.DeleteByRoomID(ctx, roomID); err != nil {
		s.logStoreError(ctx, "message purge failed", roomID, err)
	}

	if err := s.deps.Publisher.PublishRoomDeleted(ctx, domain.Room{RoomID: roomID, Owner: s.username}, memberCount); err != nil {
		s.logPublishError(ctx, roomID, err)
	}

	s.deps.Logger.Info(logging.Relay, logging.Session, "room deleted", map[logging.ExtraKey]any{
		logging.RoomID:    roomID,
		logging.MemberUID: s.uid,
	})

	s.unbind()
}

func (s *Session) bind(p IdentityPayload) {
	s.uid = p.ID
	s.username = p.User
	s.roomID = p.RoomID
	s.bound = true
}

func (s *Session) unbind() {
	s.uid = ""
	s.username = ""
	s.roomID = ""
	s.bound = false
}

// teardown mirrors an explicit leave-room when the connection drops
// while still bound, so the remaining members get the departure notice.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		if s.bound {
			s.leaveActiveRoom(context.Background())
		}
		s.client.CloseSend()
		_ = s.conn.Close()
	})
}

func (s *Session) historyLimit() int {
	if s.deps.Config.HistoryLimit > 0 {
		return s.deps.Config.HistoryLimit
	}
	return 50
}

// fail logs the fault and surfaces a generic error event to the caller
// only. One connection's store trouble never crashes the loop.
func (s *Session) fail(ctx context.Context, msg, roomID string, err error) {
	s.logStoreError(ctx, msg, roomID, err)
	s.client.TrySend(NewErrorEvent("internal error"))
}

func (s *Session) logStoreError(_ context.Context, msg, roomID string, err error) {
	s.deps.Logger.Error(logging.Mongo, logging.Persistence, msg, map[logging.ExtraKey]any{
		logging.RoomID:       roomID,
		logging.ErrorMessage: err.Error(),
	})
}

func (s *Session) logPublishError(_ context.Context, roomID string, err error) {
	s.deps.Logger.Warn(logging.RabbitMQ, logging.ExternalService, "event publish failed", map[logging.ExtraKey]any{
		logging.RoomID:       roomID,
		logging.ErrorMessage: err.Error(),
	})
}

func (s *Session) countDelivered(eventType string, n int) {
	if s.deps.Metrics == nil || n == 0 {
		return
	}
	s.deps.Metrics.EventsDelivered.WithLabelValues(eventType).Add(float64(n))
}

func (s *Session) countBroadcast(eventType string, delivered, dropped int) {
	if s.deps.Metrics == nil {
		return
	}
	s.deps.Metrics.EventsDelivered.WithLabelValues(eventType).Add(float64(delivered))
	if dropped > 0 {
		s.deps.Metrics.EventsDropped.Add(float64(dropped))
	}
}

func (s *Session) observeRooms() {
	if s.deps.Metrics == nil {
		return
	}
	s.deps.Metrics.ActiveRooms.Set(float64(s.deps.Registry.Len()))
}
