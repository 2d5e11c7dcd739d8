package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the transport surface the relay needs from a connection.
// Production code wraps a gorilla conn; tests substitute a fake.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	CloseWithReason(code int, reason string) error
	Close() error
}

type connWrapper struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

func NewConn(c *websocket.Conn) Conn {
	return &connWrapper{conn: c}
}

func (w *connWrapper) ReadMessage() ([]byte, error) {
	_, raw, err := w.conn.ReadMessage()
	return raw, err
}

func (w *connWrapper) WriteJSON(v any) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.WriteJSON(v)
}

func (w *connWrapper) CloseWithReason(code int, reason string) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	deadline := time.Now().Add(time.Second)
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	return w.conn.Close()
}

func (w *connWrapper) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.Close()
}
