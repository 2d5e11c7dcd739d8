package ws

import (
	"encoding/json"
	"time"

	"github.com/hilthontt/relay/internal/domain"
	"github.com/hilthontt/relay/internal/infrastructure/validate"
)

// Frame is the envelope every client message arrives in. The payload is
// decoded per frame type.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// IdentityPayload carries the caller's session identity and room target.
// All frame types except chat use it directly.
type IdentityPayload struct {
	ID     string `json:"id"`
	User   string `json:"user"`
	RoomID string `json:"roomId"`
}

// ChatPayload extends the identity with the message body.
type ChatPayload struct {
	IdentityPayload
	Message string `json:"message"`
}

var (
	validUID      = validate.Field("id", validate.Required(), validate.MaxLength(64))
	validUsername = validate.Field("user", validate.Required(), validate.MaxLength(64))
	validRoomID   = validate.Field("roomId", validate.Required(), validate.MaxLength(64))
	validMessage  = validate.Field("message", validate.Required(), validate.MaxLength(4096))
)

func (p IdentityPayload) Validate() error {
	if err := validUID(p.ID); err != nil {
		return err
	}
	if err := validUsername(p.User); err != nil {
		return err
	}
	return validRoomID(p.RoomID)
}

func (p ChatPayload) Validate() error {
	return validMessage(p.Message)
}

type RoomCreatedEvent struct {
	Type  string `json:"type"`
	Owner string `json:"owner"`
}

func NewRoomCreatedEvent(owner string) RoomCreatedEvent {
	return RoomCreatedEvent{Type: EventRoomCreated, Owner: owner}
}

// HistoryEntry is one replayed message. UID is the persisted sender
// identifier; records written before identifiers were persisted fall
// back to a live-member lookup and finally to the bare username.
type HistoryEntry struct {
	User      string    `json:"user"`
	UID       string    `json:"uid"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type HistoryEvent struct {
	Type     string         `json:"type"`
	Owner    string         `json:"owner"`
	Messages []HistoryEntry `json:"messages"`
}

func NewHistoryEvent(owner string, messages []domain.Message, resolveUID func(username string) string) HistoryEvent {
	entries := make([]HistoryEntry, 0, len(messages))
	for _, m := range messages {
		uid := m.UID
		if uid == "" && resolveUID != nil {
			uid = resolveUID(m.Username)
		}
		if uid == "" {
			uid = m.Username
		}

		entries = append(entries, HistoryEntry{
			User:      m.Username,
			UID:       uid,
			Message:   m.Body,
			Timestamp: m.Timestamp,
		})
	}

	return HistoryEvent{Type: EventHistory, Owner: owner, Messages: entries}
}

type ChatEvent struct {
	Type      string    `json:"type"`
	User      string    `json:"user"`
	UID       string    `json:"uid"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChatEvent(m *domain.Message) ChatEvent {
	return ChatEvent{
		Type:      EventChat,
		User:      m.Username,
		UID:       m.UID,
		Message:   m.Body,
		Timestamp: m.Timestamp,
	}
}

type SystemEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewSystemEvent(message string) SystemEvent {
	return SystemEvent{Type: EventSystem, Message: message}
}

type RoomDeletedEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewRoomDeletedEvent() RoomDeletedEvent {
	return RoomDeletedEvent{Type: EventRoomDeleted, Message: "Room deleted by owner."}
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: message}
}
