package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hilthontt/relay/internal/domain"
)

// messageRepository keeps per-room message slices in insertion order,
// which is also timestamp order since timestamps are server-assigned.
type messageRepository struct {
	messages map[string][]domain.Message
	mu       sync.RWMutex
}

func NewMessageRepository() domain.MessageRepository {
	return &messageRepository{
		messages: make(map[string][]domain.Message),
	}
}

func (r *messageRepository) Insert(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if message == nil || message.RoomID == "" || message.Username == "" {
		return nil, domain.ErrInvalidInput
	}

	stored := *message
	stored.Timestamp = time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages[stored.RoomID] = append(r.messages[stored.RoomID], stored)

	return &stored, nil
}

func (r *messageRepository) GetRecentByRoomID(ctx context.Context, roomID string, limit int64) ([]domain.Message, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}
	if limit <= 0 {
		limit = 50
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	roomMsgs := r.messages[roomID]
	if int64(len(roomMsgs)) > limit {
		roomMsgs = roomMsgs[int64(len(roomMsgs))-limit:]
	}

	// Return a copy to prevent external mutation
	cpy := make([]domain.Message, len(roomMsgs))
	copy(cpy, roomMsgs)

	return cpy, nil
}

func (r *messageRepository) DeleteByRoomID(ctx context.Context, roomID string) error {
	if roomID == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.messages, roomID)
	return nil
}
