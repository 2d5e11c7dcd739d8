package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hilthontt/relay/internal/domain"
)

// roomRepository is an in-memory store keyed by roomId. It backs tests
// and broker-less local runs; production uses the mongo-backed one.
type roomRepository struct {
	rooms map[string]*domain.Room
	mu    sync.RWMutex
}

func NewRoomRepository() domain.RoomRepository {
	return &roomRepository{
		rooms: make(map[string]*domain.Room),
	}
}

func (r *roomRepository) Exists(ctx context.Context, roomID string) (bool, error) {
	if roomID == "" {
		return false, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.rooms[roomID]
	return exists, nil
}

func (r *roomRepository) Insert(ctx context.Context, room *domain.Room) error {
	if room == nil || room.RoomID == "" || room.Owner == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[room.RoomID]; exists {
		return domain.ErrRoomAlreadyExists
	}

	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}

	stored := *room
	r.rooms[room.RoomID] = &stored

	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, roomID string) (*domain.Room, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[roomID]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}

	cpy := *room
	return &cpy, nil
}

func (r *roomRepository) Delete(ctx context.Context, roomID string) error {
	if roomID == "" {
		return domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[roomID]; !exists {
		return domain.ErrRoomNotFound
	}

	delete(r.rooms, roomID)
	return nil
}
