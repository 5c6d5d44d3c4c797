package game

import (
	"sprintquest/internal/model"
)

// DefaultHistorySize bounds the metrics-history ring
const DefaultHistorySize = 10

// PhaseManager sequences the turn cycle
//
//	start_turn → voting → events → execution → end_turn → start_turn (turn+1)
//
// Every transition runs as a single StateStore update, so a rejected transition
// leaves the snapshot untouched and notifies nobody.
type PhaseManager struct {
	store       *StateStore
	tasks       *TaskManager
	events      *EventManager
	historySize int
}

// NewPhaseManager wires the managers a phase transition drives
func NewPhaseManager(store *StateStore, tasks *TaskManager, events *EventManager, historySize int) *PhaseManager {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &PhaseManager{
		store:       store,
		tasks:       tasks,
		events:      events,
		historySize: historySize,
	}
}

func expectPhase(s *model.SprintState, want model.Phase) error {
	if s.Status.IsClosed() {
		return ErrSessionClosed
	}
	if s.Phase != want {
		return ErrIllegalPhase
	}
	return nil
}

// StartVoting moves start_turn → voting and draws the pool
func (m *PhaseManager) StartVoting() error {
	return m.store.Update(func(s *model.SprintState) error {
		if err := expectPhase(s, model.PhaseStartTurn); err != nil {
			return err
		}
		if s.Status == model.SessionWaiting {
			s.Status = model.SessionActive
		}
		m.tasks.SelectForVoting(s)
		s.Phase = model.PhaseVoting
		return nil
	})
}

// VotingComplete reports whether every role-holding participant has voted
func VotingComplete(s *model.SprintState) bool {
	active := s.ActivePlayers()
	return active > 0 && VotesReceived(s) == active
}

// ResolveVoting moves voting → events once every vote is in. Entering events
// draws a random event; with none available the phase falls through to
// execution and the unselected consequences apply immediately.
func (m *PhaseManager) ResolveVoting() (drawn *model.GameEvent, err error) {
	err = m.store.Update(func(s *model.SprintState) error {
		if err := expectPhase(s, model.PhaseVoting); err != nil {
			return err
		}
		if !VotingComplete(s) {
			return ErrVotesPending
		}
		m.tasks.ResolveVotes(s)

		s.Phase = model.PhaseEvents
		drawn = m.events.TriggerRandomEvent(s)
		if drawn == nil {
			m.enterExecution(s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drawn, nil
}

// AcknowledgeEvent applies the current event and moves events → execution
func (m *PhaseManager) AcknowledgeEvent() error {
	return m.store.Update(func(s *model.SprintState) error {
		if err := expectPhase(s, model.PhaseEvents); err != nil {
			return err
		}
		m.events.AcknowledgeEvent(s)
		m.enterExecution(s)
		return nil
	})
}

func (m *PhaseManager) enterExecution(s *model.SprintState) {
	m.tasks.ApplyConsequences(s, s.UnselectedTasks)
	s.Phase = model.PhaseExecution
}

// CompleteTask manually finishes an unselected item during execution
func (m *PhaseManager) CompleteTask(itemID string) error {
	return m.store.Update(func(s *model.SprintState) error {
		if err := expectPhase(s, model.PhaseExecution); err != nil {
			return err
		}
		return m.tasks.CompleteTask(s, itemID)
	})
}

// EndTurn moves execution → end_turn → start_turn. The end_turn step records
// history and applies drift; the second step advances the turn and clears the
// per-turn state, or finishes the game once the turn limit is reached.
func (m *PhaseManager) EndTurn() error {
	err := m.store.Update(func(s *model.SprintState) error {
		if err := expectPhase(s, model.PhaseExecution); err != nil {
			return err
		}
		s.LastReport = m.tasks.EndOfTurnDrift(s)
		s.History = append(s.History, s.Snapshot())
		if len(s.History) > m.historySize {
			s.History = s.History[len(s.History)-m.historySize:]
		}
		s.Phase = model.PhaseEndTurn
		return nil
	})
	if err != nil {
		return err
	}

	return m.store.Update(func(s *model.SprintState) error {
		if err := expectPhase(s, model.PhaseEndTurn); err != nil {
			return err
		}
		s.CurrentTasks = nil
		s.CompletedTasks = nil
		s.UnselectedTasks = nil
		s.Votes = make(map[string]string)
		s.Tally = make(map[string]int)
		s.CurrentEvent = nil

		if s.MaxTurns > 0 && s.Turn >= s.MaxTurns {
			s.Status = model.SessionEnded
			s.Phase = model.PhaseFinished
			return nil
		}
		s.Turn++
		s.Phase = model.PhaseStartTurn
		return nil
	})
}

// EndGame finishes the session from any phase. A game that never left the
// lobby is cancelled rather than ended.
func (m *PhaseManager) EndGame() error {
	return m.store.Update(func(s *model.SprintState) error {
		if s.Status.IsClosed() {
			return ErrSessionClosed
		}
		if s.Status == model.SessionWaiting {
			s.Status = model.SessionCancelled
		} else {
			s.Status = model.SessionEnded
		}
		s.Phase = model.PhaseFinished
		return nil
	})
}
