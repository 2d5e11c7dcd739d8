package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RoomEventType string

const (
	EventRoomCreated  RoomEventType = "room_created"
	EventRoomDeleted  RoomEventType = "room_deleted"
	EventRoomReaped   RoomEventType = "room_reaped"
	EventMemberJoined RoomEventType = "member_joined"
	EventMemberLeft   RoomEventType = "member_left"
	EventMessageSent  RoomEventType = "message_sent"
)

type RoomAuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	RoomID    string         `bson:"room_id" json:"roomId"`
	EventType RoomEventType  `bson:"event_type" json:"eventType"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type RoomAuditRepository interface {
	Log(ctx context.Context, log *RoomAuditLog) error
	GetByRoomID(ctx context.Context, roomID string, limit int) ([]RoomAuditLog, error)
	GetByEventType(ctx context.Context, eventType RoomEventType, from, to time.Time) ([]RoomAuditLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) error
	EnsureIndexes(ctx context.Context) error
}

func NewRoomCreatedLog(roomID, owner string) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: EventRoomCreated,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"owner": owner,
		},
	}
}

func NewRoomDeletedLog(roomID string, memberCount int) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: EventRoomDeleted,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"member_count": memberCount,
		},
	}
}

func NewRoomReapedLog(roomID string, idleFor time.Duration) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: EventRoomReaped,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"idle_seconds": idleFor.Seconds(),
		},
	}
}

func NewMemberJoinedLog(roomID string, memberCount int) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: EventMemberJoined,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"member_count": memberCount,
		},
	}
}

func NewMemberLeftLog(roomID string, memberCount int) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: EventMemberLeft,
		Timestamp: time.Now(),
		Metadata: map[string]any{
			"member_count": memberCount,
		},
	}
}

func NewMessageSentLog(roomID string) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: EventMessageSent,
		Timestamp: time.Now(),
		Metadata:  map[string]any{},
	}
}
