package ws

import (
	"log"
	"sync"
)

// Client owns the outbound side of one connection. All events destined
// for the peer go through the send channel and a single write pump, so
// concurrent broadcasts never interleave writes on the socket.
type Client struct {
	conn Conn
	send chan any

	mu     sync.Mutex
	closed bool
}

func NewClient(conn Conn, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}

	return &Client{
		conn: conn,
		send: make(chan any, sendBuffer),
	}
}

// TrySend enqueues an event without blocking. It reports false when the
// client is closed or its buffer is full; slow consumers lose events
// rather than stalling the room.
func (c *Client) TrySend(v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- v:
		return true
	default:
		return false
	}
}

// CloseSend stops the write pump after any queued events drain. Safe to
// call more than once.
func (c *Client) CloseSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// WriteDirect bypasses the queue for events that must reach the peer
// before the connection is torn down.
func (c *Client) WriteDirect(v any) error {
	return c.conn.WriteJSON(v)
}

// WritePump drains the send channel onto the socket. It runs in its own
// goroutine and exits when CloseSend is called or a write fails.
func (c *Client) WritePump() {
	for v := range c.send {
		if err := c.conn.WriteJSON(v); err != nil {
			log.Printf("ws: write failed: %v", err)
			return
		}
	}
}
