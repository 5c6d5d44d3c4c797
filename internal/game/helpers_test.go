package game

import (
	"testing"
	"time"

	"sprintquest/internal/model"
)

// scriptedRand replays fixed draws. Once a script runs out IntN returns 0 and
// Float64 returns 0.99, which never triggers a descope or exploit.
type scriptedRand struct {
	ints   []int
	floats []float64
}

func (r *scriptedRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.99
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

var fixedNow = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func item(id string, cat model.Category, difficulty int) *model.WorkItem {
	return &model.WorkItem{ID: id, Title: id, Category: cat, Difficulty: difficulty}
}

// newState returns a session in the lobby with one participant per role given.
// The first participant is the facilitator.
func newState(debt int, roles ...model.Role) *model.SprintState {
	names := []string{"ana", "ben", "cleo", "dev", "eli", "fay", "gus", "hal"}
	s := &model.SprintState{
		SessionID:   "s1",
		Code:        "ABC234",
		Status:      model.SessionActive,
		Phase:       model.PhaseStartTurn,
		Turn:        1,
		Votes:       map[string]string{},
		Business:    model.DefaultBusinessMetrics(),
		Operational: model.DefaultOperationalMetrics(),
	}
	s.Business.TechDebt = debt
	for i, r := range roles {
		s.Players = append(s.Players, &model.Participant{Name: names[i], Role: r, Facilitator: i == 0})
	}
	return s
}

type testCoordinator struct {
	*Coordinator
	facilitator string
}

// newTestCoordinator creates an authoritative coordinator limited to three
// turns with one joined participant per role; the first is the facilitator.
func newTestCoordinator(t *testing.T, items []*model.WorkItem, events []*model.GameEvent, rng Rand, roles ...model.Role) *testCoordinator {
	t.Helper()
	return withPlayers(t, Options{MaxTurns: 3, WorkItems: items, Events: events, Rand: rng}, roles...)
}

func withPlayers(t *testing.T, opts Options, roles ...model.Role) *testCoordinator {
	t.Helper()
	if opts.Rand == nil {
		opts.Rand = &scriptedRand{}
	}
	opts.SessionID = "s1"
	opts.Code = "ABC234"
	opts.Now = fixedNow
	opts.Authoritative = true
	c := NewCoordinator(opts)

	names := []string{"ana", "ben", "cleo", "dev", "eli", "fay"}
	for i, r := range roles {
		if _, err := c.Join(names[i], r, i == 0); err != nil {
			t.Fatalf("join %s: %v", names[i], err)
		}
	}
	return &testCoordinator{Coordinator: c, facilitator: names[0]}
}
