package domain

import (
	"context"
	"time"
)

// Message is one durable chat line. UID is the client-generated session
// identifier of the sender; records written by older deployments may not
// carry one, in which case history replay falls back to a username lookup.
type Message struct {
	RoomID    string    `bson:"roomId" json:"roomId"`
	UID       string    `bson:"uid,omitempty" json:"uid,omitempty"`
	Username  string    `bson:"username" json:"username"`
	Body      string    `bson:"message" json:"message"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

type MessageRepository interface {
	// Insert persists the message with a server-assigned timestamp and
	// returns the stored record.
	Insert(ctx context.Context, message *Message) (*Message, error)

	// GetRecentByRoomID returns the most recent limit messages for the
	// room, ordered by ascending timestamp.
	GetRecentByRoomID(ctx context.Context, roomID string, limit int64) ([]Message, error)

	DeleteByRoomID(ctx context.Context, roomID string) error
}
