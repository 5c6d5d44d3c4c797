package model

// Severity bands a random event
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known band
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// GameEvent is a random disruption drawn once per turn
type GameEvent struct {
	ID          string        `json:"id" bson:"id"`
	Name        string        `json:"name" bson:"name"`
	Description string        `json:"description,omitempty" bson:"description,omitempty"`
	Severity    Severity      `json:"severity" bson:"severity"`
	Impact      *MetricDeltas `json:"impact,omitempty" bson:"impact,omitempty"`
}

// Clone returns a deep copy of the event
func (e *GameEvent) Clone() *GameEvent {
	if e == nil {
		return nil
	}
	c := *e
	c.Impact = e.Impact.Clone()
	return &c
}
