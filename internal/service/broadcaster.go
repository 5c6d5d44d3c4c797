package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToSession(sessionID string, msgType string, payload interface{})
	BroadcastToPlayer(sessionID, name string, msgType string, payload interface{})
	DisconnectSession(sessionID string)
}

// Message types pushed to session subscribers
const (
	MsgState       = "state"
	MsgSessionOver = "session_over"
	MsgPowerResult = "power_result"
)
