package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrNotRoomOwner      = errors.New("not the room owner")
	ErrInvalidInput      = errors.New("invalid input")
)

// Room is the durable record of a chat channel. The owner is fixed at
// creation time and never changes for the lifetime of the room.
type Room struct {
	RoomID    string    `bson:"roomId" json:"roomId"`
	Owner     string    `bson:"owner" json:"owner"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

type RoomRepository interface {
	Exists(ctx context.Context, roomID string) (bool, error)
	Insert(ctx context.Context, room *Room) error
	GetByID(ctx context.Context, roomID string) (*Room, error)
	Delete(ctx context.Context, roomID string) error
}

func NewRoom(roomID, owner string) *Room {
	return &Room{
		RoomID:    roomID,
		Owner:     owner,
		CreatedAt: time.Now().UTC(),
	}
}
