package game

import (
	"sync"
	"time"

	"sprintquest/internal/model"
)

// StateStore holds one session's authoritative snapshot and notifies subscribers
// synchronously after every successful update.
type StateStore struct {
	mu     sync.RWMutex
	state  *model.SprintState
	subs   map[int]func(*model.SprintState)
	nextID int
	closed bool
	now    func() time.Time
}

// NewStateStore creates a store seeded with initial
func NewStateStore(initial *model.SprintState, now func() time.Time) *StateStore {
	if now == nil {
		now = time.Now
	}
	return &StateStore{
		state: initial.Clone(),
		subs:  make(map[int]func(*model.SprintState)),
		now:   now,
	}
}

// State returns a copy of the current snapshot
func (s *StateStore) State() *model.SprintState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Update runs fn against a working copy. If fn returns an error the copy is
// discarded and nobody is notified.
func (s *StateStore) Update(fn func(*model.SprintState) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	work := s.state.Clone()
	if err := fn(work); err != nil {
		s.mu.Unlock()
		return err
	}
	work.UpdatedAt = s.now()
	s.state = work

	subs := make([]func(*model.SprintState), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(work.Clone())
	}
	return nil
}

// Apply merges a replicated patch into the snapshot
func (s *StateStore) Apply(patch *model.StatePatch) error {
	return s.Update(func(st *model.SprintState) error {
		st.Merge(patch)
		return nil
	})
}

// Subscribe registers fn and returns a handle that removes it
func (s *StateStore) Subscribe(fn func(*model.SprintState)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	if !s.closed {
		s.subs[id] = fn
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Close drops every subscriber and rejects further updates
func (s *StateStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[int]func(*model.SprintState))
}
