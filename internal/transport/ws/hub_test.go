package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, h *Hub, sessionID, name string) *Connection {
	t.Helper()
	conn := &Connection{SessionID: sessionID, Name: name, Send: make(chan []byte, 16), Hub: h}
	h.Register(conn)
	return conn
}

func receive(t *testing.T, conn *Connection) *Message {
	t.Helper()
	select {
	case data, ok := <-conn.Send:
		if !ok {
			return nil
		}
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(2 * time.Second):
		t.Fatalf("no message for %s", conn.Name)
		return nil
	}
}

func TestHub_BroadcastIsScopedToSession(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	ana := connect(t, h, "s1", "ana")
	zed := connect(t, h, "s2", "zed")

	h.BroadcastToSession("s1", "state", map[string]int{"turn": 2})

	msg := receive(t, ana)
	assert.Equal(t, MessageType("state"), msg.Type)
	assert.JSONEq(t, `{"turn":2}`, string(msg.Payload))

	h.BroadcastToSession("s2", "state", map[string]int{"turn": 7})
	msg = receive(t, zed)
	assert.JSONEq(t, `{"turn":7}`, string(msg.Payload))
	assert.Empty(t, ana.Send)
}

func TestHub_PresenceAndDirectMessages(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	ana := connect(t, h, "s1", "ana")
	ben := connect(t, h, "s1", "ben")

	joined := receive(t, ana)
	assert.Equal(t, MsgPlayerConnected, joined.Type)
	assert.JSONEq(t, `{"name":"ben"}`, string(joined.Payload))

	h.BroadcastToPlayer("s1", "ben", "nudge", "vote please")
	msg := receive(t, ben)
	assert.Equal(t, MessageType("nudge"), msg.Type)

	h.Unregister(ben)
	left := receive(t, ana)
	assert.Equal(t, MsgPlayerDisconnected, left.Type)
	assert.Equal(t, 1, h.Connections("s1"))
}

func TestHub_DisconnectAfterPendingMessages(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	ana := connect(t, h, "s1", "ana")

	h.BroadcastToSession("s1", "session_over", map[string]string{"status": "ended"})
	h.DisconnectSession("s1")

	msg := receive(t, ana)
	require.NotNil(t, msg)
	assert.Equal(t, MessageType("session_over"), msg.Type)
	assert.Nil(t, receive(t, ana), "send channel closed after the final message")
	assert.Zero(t, h.Connections("s1"))

	// Late unregister from the read pump is a no-op
	h.Unregister(ana)
}

func TestHub_ReconnectReplacesSocket(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	first := connect(t, h, "s1", "ana")
	second := connect(t, h, "s1", "ana")

	assert.Nil(t, receive(t, first))
	h.Unregister(first)
	assert.Equal(t, 1, h.Connections("s1"))

	h.BroadcastToSession("s1", "state", nil)
	assert.NotNil(t, receive(t, second))
}

func TestEncodeFrame(t *testing.T) {
	data, err := encodeFrame(MsgPlayerConnected, map[string]string{"name": "ana"})
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MsgPlayerConnected, msg.Type)
	assert.JSONEq(t, `{"name":"ana"}`, string(msg.Payload))

	_, err = encodeFrame(MsgPlayerConnected, make(chan int))
	assert.Error(t, err)
}
