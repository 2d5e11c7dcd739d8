package rooms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/relay/internal/domain"
	"github.com/hilthontt/relay/internal/infrastructure/repository"
	"github.com/hilthontt/relay/internal/infrastructure/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/rooms/{roomId}", h.GetRoomHandler)
	return r
}

func TestGetRoomHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("returns room with recent messages", func(t *testing.T) {
		roomRepo := repository.NewRoomRepository()
		messageRepo := repository.NewMessageRepository()
		registry := ws.NewRegistry()

		require.NoError(t, roomRepo.Insert(ctx, domain.NewRoom("r1", "alice")))
		_, err := messageRepo.Insert(ctx, &domain.Message{RoomID: "r1", UID: "uid-1", Username: "alice", Body: "hello"})
		require.NoError(t, err)

		router := newTestRouter(NewHandler(roomRepo, messageRepo, registry, 50))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/r1", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp roomResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "r1", resp.RoomID)
		assert.Equal(t, "alice", resp.Owner)
		assert.Equal(t, 0, resp.ActiveMembers)
		require.Len(t, resp.Messages, 1)
		assert.Equal(t, "hello", resp.Messages[0].Message)
	})

	t.Run("unknown room yields 404", func(t *testing.T) {
		router := newTestRouter(NewHandler(
			repository.NewRoomRepository(),
			repository.NewMessageRepository(),
			ws.NewRegistry(),
			50,
		))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/ghost", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
