package model

import "time"

// Role is the specialty a participant plays
type Role string

const (
	RoleNone         Role = ""
	RoleDeveloper    Role = "developer"
	RoleQA           Role = "qa"
	RoleDevOps       Role = "devops"
	RoleSecurity     Role = "security"
	RoleProductOwner Role = "product_owner"
	RoleSRE          Role = "sre"
)

// Roles lists every assignable role
var Roles = []Role{RoleDeveloper, RoleQA, RoleDevOps, RoleSecurity, RoleProductOwner, RoleSRE}

// Valid reports whether r is RoleNone or one of Roles
func (r Role) Valid() bool {
	if r == RoleNone {
		return true
	}
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Participant is a named player in one session
type Participant struct {
	Name        string    `json:"name" bson:"name"`
	Role        Role      `json:"role,omitempty" bson:"role,omitempty"`
	PowerUsed   bool      `json:"powerUsed" bson:"powerUsed"`
	Facilitator bool      `json:"facilitator" bson:"facilitator"`
	JoinedAt    time.Time `json:"joinedAt" bson:"joinedAt"`
}

// HasRole reports whether the participant counts as an active player
func (p *Participant) HasRole() bool {
	return p.Role != RoleNone
}

// JoinResponse is returned when a participant joins or creates a session
type JoinResponse struct {
	SessionID string       `json:"sessionId"`
	Code      string       `json:"code"`
	Token     string       `json:"token"`
	Player    *Participant `json:"player"`
}
