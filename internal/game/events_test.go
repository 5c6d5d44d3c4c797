package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprintquest/internal/model"
)

func TestTriggerRandomEventEmptyCatalog(t *testing.T) {
	m := NewEventManager(nil, &scriptedRand{})
	s := newState(20, model.RoleQA)

	assert.Nil(t, m.TriggerRandomEvent(s))
	assert.Nil(t, s.CurrentEvent)
	assert.False(t, m.AcknowledgeEvent(s))
}

func TestAcknowledgeAppliesDeclaredImpact(t *testing.T) {
	outage := &model.GameEvent{
		ID:       "outage",
		Name:     "Region outage",
		Severity: model.SeverityHigh,
		Impact:   &model.MetricDeltas{Income: 5, Security: -10, MTTR: 60},
	}
	m := NewEventManager([]*model.GameEvent{outage}, &scriptedRand{})
	s := newState(20, model.RoleQA)

	drawn := m.TriggerRandomEvent(s)
	require.NotNil(t, drawn)
	assert.Equal(t, "outage", s.CurrentEvent.ID)

	assert.True(t, m.AcknowledgeEvent(s))
	assert.Nil(t, s.CurrentEvent)
	assert.Equal(t, 55, s.Business.Income)
	assert.Equal(t, 40, s.Business.Security)
	assert.Equal(t, model.MetricMax, s.Operational.MTTR)
	assert.Equal(t, 50, s.Business.Performance, "declared impact replaces the severity band")
}

func TestAcknowledgeFallsBackToSeverityBand(t *testing.T) {
	cases := []struct {
		severity model.Severity
		want     model.MetricDeltas
	}{
		{model.SeverityLow, model.MetricDeltas{Reputation: -2}},
		{model.SeverityMedium, model.MetricDeltas{Performance: -5, Reputation: -3}},
		{model.SeverityHigh, model.MetricDeltas{Performance: -10, Reputation: -5, MTTR: 5}},
		{model.SeverityCritical, model.MetricDeltas{Performance: -15, Reputation: -10, Income: -5, MTTR: 10, ChangeFailureRate: 5}},
	}
	for _, tc := range cases {
		t.Run(string(tc.severity), func(t *testing.T) {
			e := &model.GameEvent{ID: "e", Severity: tc.severity}
			assert.Equal(t, &tc.want, EffectOf(e))

			m := NewEventManager([]*model.GameEvent{e}, &scriptedRand{})
			s := newState(20, model.RoleQA)
			m.TriggerRandomEvent(s)
			m.AcknowledgeEvent(s)
			assert.Equal(t, 50+tc.want.Reputation, s.Business.Reputation)
			assert.Equal(t, 20, s.Business.TechDebt)
		})
	}
}

func TestEventsNeverLowerTechDebt(t *testing.T) {
	windfall := &model.GameEvent{ID: "w", Severity: model.SeverityLow, Impact: &model.MetricDeltas{TechDebt: -15, Reputation: 4}}
	rot := &model.GameEvent{ID: "r", Severity: model.SeverityLow, Impact: &model.MetricDeltas{TechDebt: 7}}

	s := newState(20, model.RoleQA)
	m := NewEventManager([]*model.GameEvent{windfall, rot}, &scriptedRand{ints: []int{0, 1}})

	m.TriggerRandomEvent(s)
	m.AcknowledgeEvent(s)
	assert.Equal(t, 20, s.Business.TechDebt)
	assert.Equal(t, 54, s.Business.Reputation)

	m.TriggerRandomEvent(s)
	m.AcknowledgeEvent(s)
	assert.Equal(t, 27, s.Business.TechDebt)
}
