package model

type SessionStatus string

const (
	SessionWaiting   SessionStatus = "waiting"
	SessionActive    SessionStatus = "active"
	SessionEnded     SessionStatus = "ended"
	SessionCancelled SessionStatus = "cancelled"
)

// Phase is a step of the turn cycle
type Phase string

const (
	PhaseStartTurn Phase = "start_turn"
	PhaseVoting    Phase = "voting"
	PhaseEvents    Phase = "events"
	PhaseExecution Phase = "execution"
	PhaseEndTurn   Phase = "end_turn"
	PhaseFinished  Phase = "finished" // Terminal, set by EndGame or the turn limit
)

// IsClosed reports whether the session can no longer change
func (s SessionStatus) IsClosed() bool {
	return s == SessionEnded || s == SessionCancelled
}
