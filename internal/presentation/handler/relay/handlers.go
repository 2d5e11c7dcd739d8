package relay

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/relay/internal/infrastructure/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler owns the websocket entry point. Every accepted connection
// gets its own session driving the relay protocol.
type Handler struct {
	deps ws.SessionDeps
}

func NewHandler(deps ws.SessionDeps) *Handler {
	return &Handler{deps: deps}
}

func (h *Handler) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	// The request context dies once the handler returns, but store writes
	// must outlive individual frames, so the session runs on its own
	// context for the life of the connection.
	session := ws.NewSession(ws.NewConn(raw), h.deps)
	go session.Run(context.Background())
}
