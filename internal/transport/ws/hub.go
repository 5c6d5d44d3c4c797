package ws

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Presence message types; state and session_over come from the session service
const (
	MsgPlayerConnected    MessageType = "player_connected"
	MsgPlayerDisconnected MessageType = "player_disconnected"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections per session. Every mutation of the
// connection table goes through run, so messages for one session are
// delivered in the order they were queued.
type Hub struct {
	// session id -> participant name -> conn
	sessions map[string]map[string]*Connection

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
	quit       chan struct{}

	logger *zap.Logger
}

// Connection represents a WebSocket connection
type Connection struct {
	SessionID string
	Name      string
	Send      chan []byte
	Hub       *Hub
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	SessionID  string
	ToPlayer   string // Empty means every participant
	Message    *Message
	Disconnect bool // Close every connection of the session after delivery
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		sessions:   make(map[string]map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		quit:       make(chan struct{}),
		logger:     logger.Named("ws"),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.sessions[conn.SessionID] == nil {
				h.sessions[conn.SessionID] = make(map[string]*Connection)
			}
			// A reconnect replaces the participant's previous socket
			if old, ok := h.sessions[conn.SessionID][conn.Name]; ok {
				close(old.Send)
			}
			h.sessions[conn.SessionID][conn.Name] = conn
			h.logger.Info("participant connected",
				zap.String("session_id", conn.SessionID),
				zap.String("name", conn.Name),
			)
			h.notifyPresence(conn.SessionID, MsgPlayerConnected, conn.Name)
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.sessions[conn.SessionID]; ok {
				if existing, ok := conns[conn.Name]; ok && existing == conn {
					delete(conns, conn.Name)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.sessions, conn.SessionID)
					}
					h.logger.Info("participant disconnected",
						zap.String("session_id", conn.SessionID),
						zap.String("name", conn.Name),
					)
					h.notifyPresence(conn.SessionID, MsgPlayerDisconnected, conn.Name)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.deliver(msg)

		case <-h.quit:
			h.mu.Lock()
			for id, conns := range h.sessions {
				for _, conn := range conns {
					close(conn.Send)
				}
				delete(h.sessions, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) deliver(msg *BroadcastMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.sessions[msg.SessionID]
	if msg.Message != nil {
		data, err := json.Marshal(msg.Message)
		if err != nil {
			h.logger.Error("failed to encode message", zap.String("type", string(msg.Message.Type)), zap.Error(err))
			return
		}
		for name, conn := range conns {
			if msg.ToPlayer != "" && name != msg.ToPlayer {
				continue
			}
			select {
			case conn.Send <- data:
			default:
				// Drop message if buffer full
				h.logger.Warn("send buffer full, dropping message",
					zap.String("session_id", msg.SessionID),
					zap.String("name", name),
				)
			}
		}
	}
	if msg.Disconnect {
		for _, conn := range conns {
			close(conn.Send)
		}
		delete(h.sessions, msg.SessionID)
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.quit:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.quit:
	}
}

// Close stops the hub and closes every open connection
func (h *Hub) Close() {
	close(h.quit)
}

// Connections returns the number of open connections for a session
func (h *Hub) Connections(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// BroadcastToSession sends a message to every participant (implements service.Broadcaster)
func (h *Hub) BroadcastToSession(sessionID string, msgType string, payload interface{}) {
	h.queue(&BroadcastMessage{SessionID: sessionID}, msgType, payload)
}

// BroadcastToPlayer sends a message to one participant (implements service.Broadcaster)
func (h *Hub) BroadcastToPlayer(sessionID, name string, msgType string, payload interface{}) {
	h.queue(&BroadcastMessage{SessionID: sessionID, ToPlayer: name}, msgType, payload)
}

// DisconnectSession closes every connection of a session once the messages
// queued before it are delivered (implements service.Broadcaster)
func (h *Hub) DisconnectSession(sessionID string) {
	h.send(&BroadcastMessage{SessionID: sessionID, Disconnect: true})
}

func (h *Hub) queue(msg *BroadcastMessage, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode payload", zap.String("type", msgType), zap.Error(err))
		return
	}
	msg.Message = &Message{Type: MessageType(msgType), Payload: data}
	h.send(msg)
}

func (h *Hub) send(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.quit:
	}
}

// notifyPresence tells the session who came or went. Caller holds h.mu.
func (h *Hub) notifyPresence(sessionID string, msgType MessageType, name string) {
	data, err := encodeFrame(msgType, map[string]string{"name": name})
	if err != nil {
		h.logger.Error("failed to encode presence", zap.String("type", string(msgType)), zap.Error(err))
		return
	}
	for other, conn := range h.sessions[sessionID] {
		if other == name {
			continue
		}
		select {
		case conn.Send <- data:
		default:
		}
	}
}

// encodeFrame wraps payload in a typed message ready for a connection's Send channel
func encodeFrame(msgType MessageType, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", msgType, err)
	}
	return json.Marshal(&Message{Type: msgType, Payload: data})
}
