package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/relay/internal/domain"
	"github.com/hilthontt/relay/internal/infrastructure/configs"
	"github.com/hilthontt/relay/internal/infrastructure/events"
	"github.com/hilthontt/relay/internal/infrastructure/logging"
	"github.com/hilthontt/relay/internal/infrastructure/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConn struct {
	mu          sync.Mutex
	inbound     chan []byte
	writes      []any
	closed      bool
	closeCode   int
	closeReason string
}

func newMockConn() *mockConn {
	return &mockConn{inbound: make(chan []byte, 16)}
}

func (m *mockConn) ReadMessage() ([]byte, error) {
	raw, ok := <-m.inbound
	if !ok {
		return nil, io.EOF
	}
	return raw, nil
}

func (m *mockConn) WriteJSON(v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("write on closed conn")
	}
	m.writes = append(m.writes, v)
	return nil
}

func (m *mockConn) CloseWithReason(code int, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closeCode = code
	m.closeReason = reason
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) directWrites() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.writes...)
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type nopLogger struct{}

func (nopLogger) Init() {}
func (nopLogger) Debug(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Debugf(string, ...any)                                                         {}
func (nopLogger) Info(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any)  {}
func (nopLogger) Infof(string, ...any)                                                          {}
func (nopLogger) Warn(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any)  {}
func (nopLogger) Warnf(string, ...any)                                                          {}
func (nopLogger) Error(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Errorf(string, ...any)                                                         {}
func (nopLogger) Fatal(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Fatalf(string, ...any)                                                         {}

// failingMessages wraps a repository so history lookups break.
type failingMessages struct {
	domain.MessageRepository
}

func (failingMessages) GetRecentByRoomID(context.Context, string, int64) ([]domain.Message, error) {
	return nil, errors.New("cursor exhausted")
}

type fixture struct {
	deps     SessionDeps
	rooms    domain.RoomRepository
	messages domain.MessageRepository
}

func newFixture() *fixture {
	roomRepo := repository.NewRoomRepository()
	messageRepo := repository.NewMessageRepository()

	return &fixture{
		rooms:    roomRepo,
		messages: messageRepo,
		deps: SessionDeps{
			Registry:  NewRegistry(),
			Rooms:     roomRepo,
			Messages:  messageRepo,
			Publisher: events.NewRoomPublisher(nil),
			Logger:    nopLogger{},
			Config: configs.RelayConfig{
				HistoryLimit:        50,
				SurfaceUnauthorized: true,
				SendBuffer:          64,
			},
		},
	}
}

func (f *fixture) newSession() (*Session, *mockConn) {
	conn := newMockConn()
	return NewSession(conn, f.deps), conn
}

func identityFrame(t *testing.T, frameType, id, user, roomID string) Frame {
	t.Helper()

	payload, err := json.Marshal(IdentityPayload{ID: id, User: user, RoomID: roomID})
	require.NoError(t, err)

	return Frame{Type: frameType, Payload: payload}
}

func chatFrame(t *testing.T, message string) Frame {
	t.Helper()

	payload, err := json.Marshal(map[string]string{"message": message})
	require.NoError(t, err)

	return Frame{Type: FrameChat, Payload: payload}
}

// popEvent pulls the next queued outbound event without blocking.
func popEvent(t *testing.T, s *Session) any {
	t.Helper()

	select {
	case v := <-s.client.send:
		return v
	default:
		t.Fatal("no event queued")
		return nil
	}
}

func assertNoEvent(t *testing.T, s *Session) {
	t.Helper()

	select {
	case v := <-s.client.send:
		t.Fatalf("unexpected event queued: %#v", v)
	default:
	}
}

func TestCreateRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("creates room and binds session", func(t *testing.T) {
		f := newFixture()
		s, _ := f.newSession()

		s.dispatch(ctx, identityFrame(t, FrameCreateRoom, "uid-1", "alice", "r1"))

		event, ok := popEvent(t, s).(RoomCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, EventRoomCreated, event.Type)
		assert.Equal(t, "alice", event.Owner)

		room, err := f.rooms.GetByID(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "alice", room.Owner)

		active, found := f.deps.Registry.Get("r1")
		require.True(t, found)
		assert.Equal(t, 1, active.MemberCount())
		assert.True(t, s.bound)
	})

	t.Run("duplicate roomId yields error and leaves session unbound", func(t *testing.T) {
		f := newFixture()
		first, _ := f.newSession()
		first.dispatch(ctx, identityFrame(t, FrameCreateRoom, "uid-1", "alice", "r1"))
		popEvent(t, first)

		second, _ := f.newSession()
		second.dispatch(ctx, identityFrame(t, FrameCreateRoom, "uid-2", "mallory", "r1"))

		event, ok := popEvent(t, second).(ErrorEvent)
		require.True(t, ok)
		assert.Equal(t, "Room already exists", event.Message)
		assert.False(t, second.bound)

		// Original owner is untouched.
		room, err := f.rooms.GetByID(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "alice", room.Owner)
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		f := newFixture()
		s, _ := f.newSession()

		s.dispatch(ctx, identityFrame(t, FrameCreateRoom, "", "alice", "r1"))

		event, ok := popEvent(t, s).(ErrorEvent)
		require.True(t, ok)
		assert.Equal(t, "id: this field is required", event.Message)
		assert.False(t, s.bound)
	})
}

func TestJoinRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown room yields RoomNotFound and no registry mutation", func(t *testing.T) {
		f := newFixture()
		s, _ := f.newSession()

		s.dispatch(ctx, identityFrame(t, FrameJoinRoom, "uid-1", "bob", "ghost"))

		event, ok := popEvent(t, s).(ErrorEvent)
		require.True(t, ok)
		assert.Equal(t, "Room not found", event.Message)
		assert.False(t, s.bound)
		assert.Equal(t, 0, f.deps.Registry.Len())
	})

	t.Run("join replays history and broadcasts a notice", func(t *testing.T) {
		f := newFixture()
		owner, _ := f.newSession()
		owner.dispatch(ctx, identityFrame(t, FrameCreateRoom, "uid-1", "alice", "r1"))
		popEvent(t, owner)

		owner.dispatch(ctx, chatFrame(t, "hello"))
		popEvent(t, owner)

		joiner, _ := f.newSession()
		joiner.dispatch(ctx, identityFrame(t, FrameJoinRoom, "uid-2", "bob", "r1"))

		history, ok := popEvent(t, joiner).(HistoryEvent)
		require.True(t, ok)
		assert.Equal(t, "alice", history.Owner)
		require.Len(t, history.Messages, 1)
		assert.Equal(t, "alice", history.Messages[0].User)
		assert.Equal(t, "uid-1", history.Messages[0].UID)
		assert.Equal(t, "hello", history.Messages[0].Message)

		// Both members get the join notice, the joiner included.
		notice, ok := popEvent(t, joiner).(SystemEvent)
		require.True(t, ok)
		assert.Equal(t, "bob joined.", notice.Message)

		ownerNotice, ok := popEvent(t, owner).(SystemEvent)
		require.True(t, ok)
		assert.Equal(t, "bob joined.", ownerNotice.Message)
	})

	t.Run("reconnect replays history without a notice", func(t *testing.T) {
		f := newFixture()
		owner, _ := f.newSession()
		owner.dispatch(ctx, identityFrame(t, FrameCreateRoom, "uid-1", "alice", "r1"))
		popEvent(t, owner)

		rejoiner, _ := f.newSession()
		rejoiner.dispatch(ctx, identityFrame(t, FrameReconnect, "uid-2", "bob", "r1"))

		_, ok := popEvent(t, rejoiner).(HistoryEvent)
		require.True(t, ok)
		assertNoEvent(t, rejoiner)
		assertNoEvent(t, owner)
	})

	t.Run("history failure yields only an error and no membership", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.rooms.Insert(ctx, domain.NewRoom("r1", "alice")))
		f.deps.Messages = failingMessages{f.messages}

		s, _ := f.newSession()
		s.dispatch(ctx, identityFrame(t, FrameJoinRoom, "uid-2", "bob", "r1"))

		event, ok := popEvent(t, s).(ErrorEvent)
		require.True(t, ok)
		assert.Equal(t, "internal error", event.Message)
		assertNoEvent(t, s)
		assert.False(t, s.bound)

		if active, found := f.deps.Registry.Get("r1"); found {
			assert.Equal(t, 0, active.MemberCount())
		}
	})

	t.Run("reconnect reactivates a room after restart", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.rooms.Insert(ctx, domain.NewRoom("r1", "alice")))

		s, _ := f.newSession()
		s.dispatch(ctx, identityFrame(t, FrameReconnect, "uid-1", "alice", "r1"))

		history, ok := popEvent(t, s).(HistoryEvent)
		require.True(t, ok)
		assert.Equal(t, "alice", history.Owner)

		active, found := f.deps.Registry.Get("r1")
		require.True(t, found)
		assert.Equal(t, "alice", active.Owner)
		assert.Equal(t, 1, active.MemberCount())
	})
}

func TestHistoryReplay(t *testing.T) {
	ctx := context.Background()

	t.Run("history is capped and ordered oldest first", func(t *testing.T) {
		f := newFixture()
		f.deps.Config.HistoryLimit = 5

		owner, _ := f.newSession()
		owner.dispatch(ctx, identityFrame(t, FrameCreateRoom, "uid-1", "alice", "r1"))
		popEvent(t, owner)

		for i := 0; i < 8; i++ {
			owner.dispatch(ctx, chatFrame(t, fmt.Sprintf("msg-%d", i)))
			popEvent(t, owner)
		}

		joiner, _ := f.newSession()
		joiner.deps.Config.HistoryLimit = 5
		joiner.dispatch(ctx, identityFrame(t, FrameJoinRoom, "uid-2", "bob", "r1"))

		history, ok := popEvent(t, joiner).(HistoryEvent)
		require.True(t, ok)
		require.Len(t, history.Messages, 5)
		assert.Equal(t, "msg-3", history.Messages[0].Message)
		assert.Equal(t, "msg-7", history.Messages[4].Message)

		for i := 1; i < len(history.Messages); i++ {
			assert.False(t, history.Messages[i].Timestamp.Before(history.Messages[i-1].Timestamp))
		}
	})

	t.Run("legacy records resolve uid through live members", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.rooms.Insert(ctx, domain.NewRoom("r1", "alice")))

		// Record without a persisted uid, as an older deployment wrote it.
		_, err := f.messages.Insert(ctx, &domain.Message{RoomID: "r1", Username: "alice", Body: "old"})
		require.NoError(t, err)

		owner, _ := f.newSession()
		owner.dispatch(ctx, identityFrame(t, FrameReconnect, "uid-1", "alice", "r1"))
		popEvent(t, owner)

		joiner, _ := f.newSession()
		joiner.dispatch(ctx, identityFrame(t, FrameJoinRoom, "uid-2", "bob", "r1"))

		history, ok := popEvent(t, joiner).(HistoryEvent)
		require.True(t, ok)
		require.Len(t, history.Messages, 1)
		assert.Equal(t, "uid-1", history.Messages[0].UID)
	})
}

func TestChat(t *testing.T) {
	ctx := context.Background()

	t.Run("chat is persisted and echoed to every member", func(t *testing.T) {
		f := newFixture()
		owner, _ := f.newSession()
		owner.dispatch(ctx, identityFrame(t, FrameCreateRoom, "uid-1", "alice", "r1"))
		popEvent(t, owner)

		joiner, _ := f.newSession()
		joiner.dispatch(ctx, identityFrame(t, FrameJoinRoom, "uid-2", "bob", "r1"))
		popEvent(t, joiner) // history
		popEvent(t, joiner) // join notice
		popEvent(t, owner)  // join notice

		joiner.dispatch(ctx, chatFrame(t, "hi"))

		for _, s := range []*Session{owner, joiner} {
			event, ok := popEvent(t, s).(ChatEvent)
			require.True(t, ok)
			assert.Equal(t, "bob", event.User)
			assert.Equal(t, "uid-2", event.UID)
			assert.Equal(t, "hi", event.Message)
			assert.False(t, event.Timestamp.IsZero())
		}

		stored, err := f.messages.GetRecentByRoomID(ctx, "r1", 50)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, "hi", stored[0].Body)
		assert.Equal(t, "uid-2", stored[0].UID)
	})

	t.Run("chat before binding is dropped", func(t *testing.T) {
		f := newFixture()
		s, _ := f.newSession()

		s.dispatch(ctx, chatFrame(t, "hi"))

		assertNoEvent(t, s)
		stored, err := f.messages.GetRecentByRoomID(ctx, "r1", 50)
		require.NoError(t, err)
		assert.Empty(t, stored)
	})
}

func TestLeaveRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("removes only the caller and notifies the rest", func(t *testing.T) {
		f := newFixture()
		owner, _ := f.newSession()
		owner.dispatch(ctx, identityFrame(t, FrameCreateRoom, "uid-1", "alice", "r1"))
		popEvent(t, owner)

		joiner, _ := f.newSession()
		joiner.dispatch(ctx, identityFrame(t, FrameJoinRoom, "uid-2", "bob", "r1"))
		popEvent(t, joiner)
		popEvent(t, joiner)
		popEvent(t, owner)

		joiner.dispatch(ctx, Frame{Type: FrameLeaveRoom})

		active, found := f.deps.Registry.Get("r1")
		require.True(t, found)
		assert.Equal(t, 1, active.MemberCount())
		_, stillMember := active.Username("uid-1")
		assert.True(t, stillMember)

		notice, ok := popEvent(t, owner).(SystemEvent)
		require.True(t, ok)
		assert.Equal(t, "bob left.", notice.Message)
		assert.False(t, joiner.bound)
	})

	t.Run("leave before binding is a no-op", func(t *testing.T) {
		f := newFixture()
		s, _ := f.newSession()

		s.dispatch(ctx, Frame{Type: FrameLeaveRoom})
		assertNoEvent(t, s)
	})
}

func TestDeleteRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("owner delete tears everything down", func(t *testing.T) {
		f := newFixture()
		owner, ownerConn := f.newSession()
		owner.dispatch(ctx, identityFrame(t, FrameCreateRoom, "uid-1", "alice", "r1"))
		popEvent(t, owner)

		joiner, joinerConn := f.newSession()
		joiner.dispatch(ctx, identityFrame(t, FrameJoinRoom, "uid-2", "bob", "r1"))
		popEvent(t, joiner)
		popEvent(t, joiner)
		popEvent(t, owner)

		owner.dispatch(ctx, chatFrame(t, "hi"))
		popEvent(t, owner)
		popEvent(t, joiner)

		owner.dispatch(ctx, Frame{Type: FrameDeleteRoom})

		for _, conn := range []*mockConn{ownerConn, joinerConn} {
			writes := conn.directWrites()
			require.Len(t, writes, 1)
			event, ok := writes[0].(RoomDeletedEvent)
			require.True(t, ok)
			assert.Equal(t, EventRoomDeleted, event.Type)

			assert.True(t, conn.isClosed())
			assert.Equal(t, closeNormal, conn.closeCode)
			assert.Equal(t, deleteCloseReason, conn.closeReason)
		}

		_, found := f.deps.Registry.Get("r1")
		assert.False(t, found)

		_, err := f.rooms.GetByID(ctx, "r1")
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)

		stored, err := f.messages.GetRecentByRoomID(ctx, "r1", 50)
		require.NoError(t, err)
		assert.Empty(t, stored)

		// A new session joining the deleted room gets RoomNotFound.
		late, _ := f.newSession()
		late.dispatch(ctx, identityFrame(t, FrameJoinRoom, "uid-3", "carol", "r1"))
		event, ok := popEvent(t, late).(ErrorEvent)
		require.True(t, ok)
		assert.Equal(t, "Room not found", event.Message)
	})

	t.Run("non-owner delete is refused with an error event", func(t *testing.T) {
		f := newFixture()
		owner, _ := f.newSession()
		owner.dispatch(ctx, identityFrame(t, FrameCreateRoom, "uid-1", "alice", "r1"))
		popEvent(t, owner)

		joiner, joinerConn := f.newSession()
		joiner.dispatch(ctx, identityFrame(t, FrameJoinRoom, "uid-2", "bob", "r1"))
		popEvent(t, joiner)
		popEvent(t, joiner)
		popEvent(t, owner)

		joiner.dispatch(ctx, Frame{Type: FrameDeleteRoom})

		event, ok := popEvent(t, joiner).(ErrorEvent)
		require.True(t, ok)
		assert.Contains(t, event.Message, "owner")

		assert.False(t, joinerConn.isClosed())
		_, err := f.rooms.GetByID(ctx, "r1")
		assert.NoError(t, err)
		_, found := f.deps.Registry.Get("r1")
		assert.True(t, found)
	})

	t.Run("non-owner delete is silent when surfacing is off", func(t *testing.T) {
		f := newFixture()
		f.deps.Config.SurfaceUnauthorized = false

		owner, _ := f.newSession()
		owner.dispatch(ctx, identityFrame(t, FrameCreateRoom, "uid-1", "alice", "r1"))
		popEvent(t, owner)

		joiner, _ := f.newSession()
		joiner.dispatch(ctx, identityFrame(t, FrameJoinRoom, "uid-2", "bob", "r1"))
		popEvent(t, joiner)
		popEvent(t, joiner)
		popEvent(t, owner)

		joiner.dispatch(ctx, Frame{Type: FrameDeleteRoom})

		assertNoEvent(t, joiner)
		_, err := f.rooms.GetByID(ctx, "r1")
		assert.NoError(t, err)
	})
}

func TestRun(t *testing.T) {
	t.Run("malformed frames get an error event and the loop survives", func(t *testing.T) {
		f := newFixture()
		s, conn := f.newSession()

		done := make(chan struct{})
		go func() {
			s.Run(context.Background())
			close(done)
		}()

		conn.inbound <- []byte("{not json")

		frame, err := json.Marshal(identityFrame(t, FrameCreateRoom, "uid-1", "alice", "r1"))
		require.NoError(t, err)
		conn.inbound <- frame

		// Wait for the write pump to flush both events before closing.
		require.Eventually(t, func() bool {
			return len(conn.directWrites()) >= 2
		}, time.Second, 5*time.Millisecond)

		close(conn.inbound)
		<-done

		var sawError, sawCreated bool
		for _, v := range conn.directWrites() {
			switch v.(type) {
			case ErrorEvent:
				sawError = true
			case RoomCreatedEvent:
				sawCreated = true
			}
		}
		assert.True(t, sawError)
		assert.True(t, sawCreated)
	})

	t.Run("disconnect while bound notifies the remaining members", func(t *testing.T) {
		ctx := context.Background()
		f := newFixture()

		owner, _ := f.newSession()
		owner.dispatch(ctx, identityFrame(t, FrameCreateRoom, "uid-1", "alice", "r1"))
		popEvent(t, owner)

		joiner, conn := f.newSession()
		done := make(chan struct{})
		go func() {
			joiner.Run(context.Background())
			close(done)
		}()

		frame, err := json.Marshal(identityFrame(t, FrameJoinRoom, "uid-2", "bob", "r1"))
		require.NoError(t, err)
		conn.inbound <- frame

		// Wait for the join notice to reach the owner before dropping
		// the socket.
		require.Eventually(t, func() bool {
			return len(owner.client.send) >= 1
		}, time.Second, 5*time.Millisecond)
		notice, ok := popEvent(t, owner).(SystemEvent)
		require.True(t, ok)
		require.Equal(t, "bob joined.", notice.Message)

		close(conn.inbound)
		<-done

		active, found := f.deps.Registry.Get("r1")
		require.True(t, found)
		assert.Equal(t, 1, active.MemberCount())

		left, ok := popEvent(t, owner).(SystemEvent)
		require.True(t, ok)
		assert.Equal(t, "bob left.", left.Message)
	})

	t.Run("disconnect removes the member entry", func(t *testing.T) {
		f := newFixture()
		s, conn := f.newSession()

		done := make(chan struct{})
		go func() {
			s.Run(context.Background())
			close(done)
		}()

		frame, err := json.Marshal(identityFrame(t, FrameCreateRoom, "uid-1", "alice", "r1"))
		require.NoError(t, err)
		conn.inbound <- frame

		require.Eventually(t, func() bool {
			return len(conn.directWrites()) >= 1
		}, time.Second, 5*time.Millisecond)

		close(conn.inbound)
		<-done

		active, found := f.deps.Registry.Get("r1")
		require.True(t, found)
		assert.Equal(t, 0, active.MemberCount())
	})
}
