package rooms

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/relay/internal/domain"
	"github.com/hilthontt/relay/internal/infrastructure/json"
	"github.com/hilthontt/relay/internal/infrastructure/ws"
)

// Handler exposes a read-only REST view over rooms. All mutation goes
// through the websocket protocol.
type Handler struct {
	roomRepository    domain.RoomRepository
	messageRepository domain.MessageRepository
	registry          *ws.Registry
	historyLimit      int
}

func NewHandler(
	roomRepository domain.RoomRepository,
	messageRepository domain.MessageRepository,
	registry *ws.Registry,
	historyLimit int,
) *Handler {
	if historyLimit <= 0 {
		historyLimit = 50
	}

	return &Handler{
		roomRepository:    roomRepository,
		messageRepository: messageRepository,
		registry:          registry,
		historyLimit:      historyLimit,
	}
}

func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	room, err := h.roomRepository.GetByID(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			json.WriteError(w, http.StatusNotFound, err, "Room not found")
			return
		}
		json.WriteInternalError(w, err)
		return
	}

	messages, err := h.messageRepository.GetRecentByRoomID(r.Context(), roomID, int64(h.historyLimit))
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	mapped := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		mapped = append(mapped, messageResponse{
			User:      m.Username,
			UID:       m.UID,
			Message:   m.Body,
			Timestamp: m.Timestamp,
		})
	}

	activeMembers := 0
	if active, ok := h.registry.Get(roomID); ok {
		activeMembers = active.MemberCount()
	}

	json.Write(w, http.StatusOK, roomResponse{
		RoomID:        room.RoomID,
		Owner:         room.Owner,
		CreatedAt:     room.CreatedAt,
		ActiveMembers: activeMembers,
		Messages:      mapped,
	})
}
