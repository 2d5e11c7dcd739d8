package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_TrySend(t *testing.T) {
	t.Run("queues until the buffer is full", func(t *testing.T) {
		c := NewClient(newMockConn(), 2)

		assert.True(t, c.TrySend(NewSystemEvent("one")))
		assert.True(t, c.TrySend(NewSystemEvent("two")))
		assert.False(t, c.TrySend(NewSystemEvent("three")))
	})

	t.Run("refuses after close", func(t *testing.T) {
		c := NewClient(newMockConn(), 2)
		c.CloseSend()

		assert.False(t, c.TrySend(NewSystemEvent("late")))
	})
}

func TestClient_CloseSendIsIdempotent(t *testing.T) {
	c := NewClient(newMockConn(), 2)

	c.CloseSend()
	assert.NotPanics(t, func() { c.CloseSend() })
}

func TestClient_WritePumpDrainsQueue(t *testing.T) {
	conn := newMockConn()
	c := NewClient(conn, 4)

	require.True(t, c.TrySend(NewSystemEvent("one")))
	require.True(t, c.TrySend(NewSystemEvent("two")))
	c.CloseSend()

	done := make(chan struct{})
	go func() {
		c.WritePump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not drain")
	}

	writes := conn.directWrites()
	require.Len(t, writes, 2)
	first, ok := writes[0].(SystemEvent)
	require.True(t, ok)
	assert.Equal(t, "one", first.Message)
}
