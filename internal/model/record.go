package model

import "time"

// SessionRecord is the durable per-session document
type SessionRecord struct {
	ID          string          `json:"id" bson:"_id"`
	Code        string          `json:"code" bson:"code"`
	Status      SessionStatus   `json:"status" bson:"status"`
	Phase       Phase           `json:"phase" bson:"phase"`
	Turn        int             `json:"turn" bson:"turn"`
	SprintState *SprintState    `json:"sprintState" bson:"sprintState"`
	Players     []*PlayerRecord `json:"players" bson:"players"`
	StartedAt   time.Time       `json:"startedAt" bson:"startedAt"`
	UpdatedAt   time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// PlayerRecord is the row-like player entry stored next to the sprint state
type PlayerRecord struct {
	SessionID   string    `json:"sessionId" bson:"sessionId"`
	Name        string    `json:"name" bson:"name"`
	Role        Role      `json:"role,omitempty" bson:"role,omitempty"`
	PowerUsed   bool      `json:"powerUsed" bson:"powerUsed"`
	Facilitator bool      `json:"facilitator" bson:"facilitator"`
	JoinedAt    time.Time `json:"joinedAt" bson:"joinedAt"`
}

// RecordFrom builds the durable record for a snapshot
func RecordFrom(s *SprintState) *SessionRecord {
	rec := &SessionRecord{
		ID:          s.SessionID,
		Code:        s.Code,
		Status:      s.Status,
		Phase:       s.Phase,
		Turn:        s.Turn,
		SprintState: s.Clone(),
		Players:     make([]*PlayerRecord, 0, len(s.Players)),
		StartedAt:   s.StartedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	for _, p := range s.Players {
		rec.Players = append(rec.Players, &PlayerRecord{
			SessionID:   s.SessionID,
			Name:        p.Name,
			Role:        p.Role,
			PowerUsed:   p.PowerUsed,
			Facilitator: p.Facilitator,
			JoinedAt:    p.JoinedAt,
		})
	}
	return rec
}
