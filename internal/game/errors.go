package game

import "errors"

// Not-found errors
var (
	ErrUnknownPlayer = errors.New("participant not found")
	ErrUnknownItem   = errors.New("work item not found")
)

// Precondition errors. A call failing with one of these left the state unchanged.
var (
	ErrNotFacilitator = errors.New("only the facilitator may do this")
	ErrIllegalPhase   = errors.New("operation not allowed in the current phase")
	ErrVotesPending   = errors.New("not every role-holding participant has voted")
	ErrDuplicateName  = errors.New("name already taken in this session")
	ErrNoRole         = errors.New("participant has no role")
	ErrInvalidRole    = errors.New("unknown role")
	ErrReadOnly       = errors.New("session replica is read-only")
	ErrSessionClosed  = errors.New("session has ended")
)

// IsNotFound reports whether err refers to a missing participant or item
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownPlayer) || errors.Is(err, ErrUnknownItem)
}
