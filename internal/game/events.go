package game

import "sprintquest/internal/model"

// severityEffects are applied when an event declares no impact of its own
var severityEffects = map[model.Severity]model.MetricDeltas{
	model.SeverityLow:      {Reputation: -2},
	model.SeverityMedium:   {Performance: -5, Reputation: -3},
	model.SeverityHigh:     {Performance: -10, Reputation: -5, MTTR: 5},
	model.SeverityCritical: {Performance: -15, Reputation: -10, Income: -5, MTTR: 10, ChangeFailureRate: 5},
}

// EventManager draws random disruptions and applies them on acknowledgement
type EventManager struct {
	events []*model.GameEvent
	rng    Rand
}

// NewEventManager creates an event manager over a loaded catalog
func NewEventManager(events []*model.GameEvent, rng Rand) *EventManager {
	m := &EventManager{rng: rng}
	for _, e := range events {
		if e != nil && e.ID != "" {
			m.events = append(m.events, e.Clone())
		}
	}
	return m
}

// CatalogSize returns the number of loaded events
func (m *EventManager) CatalogSize() int {
	return len(m.events)
}

// TriggerRandomEvent draws an event uniformly and makes it current.
// It returns nil and leaves the state alone when the catalog is empty.
func (m *EventManager) TriggerRandomEvent(s *model.SprintState) *model.GameEvent {
	if len(m.events) == 0 {
		return nil
	}
	e := m.events[m.rng.IntN(len(m.events))].Clone()
	s.CurrentEvent = e
	return e.Clone()
}

// AcknowledgeEvent applies the current event's effect and clears it.
// It reports false when there is no current event.
func (m *EventManager) AcknowledgeEvent(s *model.SprintState) bool {
	if s.CurrentEvent == nil {
		return false
	}
	model.Apply(&s.Business, &s.Operational, EffectOf(s.CurrentEvent), model.DeltaRaw)
	s.CurrentEvent = nil
	return true
}

// EffectOf returns the deltas an event applies. Events never lower technical debt.
func EffectOf(e *model.GameEvent) *model.MetricDeltas {
	var d model.MetricDeltas
	if !e.Impact.IsZero() {
		d = *e.Impact
	} else if band, ok := severityEffects[e.Severity]; ok {
		d = band
	}
	if d.TechDebt < 0 {
		d.TechDebt = 0
	}
	return &d
}
