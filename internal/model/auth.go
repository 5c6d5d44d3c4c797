package model

import "github.com/golang-jwt/jwt/v5"

// ParticipantClaims are JWT claims scoping a token to one session and player name
type ParticipantClaims struct {
	SessionID   string `json:"sessionId"`
	Name        string `json:"name"`
	Facilitator bool   `json:"facilitator"`
	jwt.RegisteredClaims
}

// CreateSessionRequest is the request body for creating a session
type CreateSessionRequest struct {
	FacilitatorName string `json:"facilitatorName"`
	Role            Role   `json:"role,omitempty"`
	MaxTurns        int    `json:"maxTurns,omitempty"`
}

// JoinSessionRequest is the request body for joining by code
type JoinSessionRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Role Role   `json:"role,omitempty"`
}
