package model

import "time"

// SprintState is the authoritative per-session snapshot that gets replicated
type SprintState struct {
	SessionID string        `json:"sessionId" bson:"sessionId"`
	Code      string        `json:"code" bson:"code"`
	Status    SessionStatus `json:"status" bson:"status"`
	Phase     Phase         `json:"phase" bson:"phase"`
	Turn      int           `json:"turn" bson:"turn"`
	MaxTurns  int           `json:"maxTurns" bson:"maxTurns"`
	StartedAt time.Time     `json:"startedAt" bson:"startedAt"`

	Players []*Participant `json:"players" bson:"players"`

	CurrentTasks    []*WorkItem       `json:"currentTasks" bson:"currentTasks"`
	CompletedTasks  []*WorkItem       `json:"completedTasks" bson:"completedTasks"`
	UnselectedTasks []*WorkItem       `json:"unselectedTasks" bson:"unselectedTasks"`
	CarryOver       []*WorkItem       `json:"carryOver" bson:"carryOver"` // In-progress items waiting for the next pool
	Votes           map[string]string `json:"votes" bson:"votes"`
	Tally           map[string]int    `json:"tally,omitempty" bson:"tally,omitempty"`
	CurrentEvent    *GameEvent        `json:"currentEvent,omitempty" bson:"currentEvent,omitempty"`

	// Catalog bookkeeping
	Done                []string `json:"done,omitempty" bson:"done,omitempty"` // Catalog ids completed this game
	Descoped            []string `json:"descoped,omitempty" bson:"descoped,omitempty"`
	PendingConsequences []string `json:"pendingConsequences,omitempty" bson:"pendingConsequences,omitempty"`

	Business    BusinessMetrics    `json:"business" bson:"business"`
	Operational OperationalMetrics `json:"operational" bson:"operational"`
	History     []HistoryEntry     `json:"history,omitempty" bson:"history,omitempty"`

	LastReport *TurnReport `json:"lastReport,omitempty" bson:"lastReport,omitempty"`
	UpdatedAt  time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// TurnReport summarises what happened during the end-of-turn drift
type TurnReport struct {
	Turn              int      `json:"turn" bson:"turn"`
	DebtAdded         int      `json:"debtAdded" bson:"debtAdded"`
	Descoped          []string `json:"descoped,omitempty" bson:"descoped,omitempty"`
	Exploited         []string `json:"exploited,omitempty" bson:"exploited,omitempty"`
	CarriedOver       []string `json:"carriedOver,omitempty" bson:"carriedOver,omitempty"`
	ReturnedToBacklog []string `json:"returnedToBacklog,omitempty" bson:"returnedToBacklog,omitempty"`
}

// Player finds a participant by name
func (s *SprintState) Player(name string) *Participant {
	for _, p := range s.Players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// ActivePlayers counts participants holding a role
func (s *SprintState) ActivePlayers() int {
	n := 0
	for _, p := range s.Players {
		if p.HasRole() {
			n++
		}
	}
	return n
}

// Facilitator returns the participant allowed to drive transitions
func (s *SprintState) Facilitator() *Participant {
	for _, p := range s.Players {
		if p.Facilitator {
			return p
		}
	}
	return nil
}

// Task finds an item in the current pool
func (s *SprintState) Task(id string) *WorkItem {
	for _, t := range s.CurrentTasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Snapshot returns the history-ring entry for the current metrics
func (s *SprintState) Snapshot() HistoryEntry {
	return HistoryEntry{Turn: s.Turn, Business: s.Business, Operational: s.Operational}
}

// Clone returns a deep copy that shares nothing with s
func (s *SprintState) Clone() *SprintState {
	if s == nil {
		return nil
	}
	c := *s
	if s.Players != nil {
		c.Players = make([]*Participant, len(s.Players))
		for i, p := range s.Players {
			cp := *p
			c.Players[i] = &cp
		}
	}
	c.CurrentTasks = CloneItems(s.CurrentTasks)
	c.CompletedTasks = CloneItems(s.CompletedTasks)
	c.UnselectedTasks = CloneItems(s.UnselectedTasks)
	c.CarryOver = CloneItems(s.CarryOver)
	c.Votes = cloneMap(s.Votes)
	c.Tally = cloneMap(s.Tally)
	c.CurrentEvent = s.CurrentEvent.Clone()
	c.Done = cloneStrings(s.Done)
	c.Descoped = cloneStrings(s.Descoped)
	c.PendingConsequences = cloneStrings(s.PendingConsequences)
	if s.History != nil {
		c.History = append([]HistoryEntry(nil), s.History...)
	}
	if s.LastReport != nil {
		r := *s.LastReport
		r.Descoped = cloneStrings(s.LastReport.Descoped)
		r.Exploited = cloneStrings(s.LastReport.Exploited)
		r.CarriedOver = cloneStrings(s.LastReport.CarriedOver)
		r.ReturnedToBacklog = cloneStrings(s.LastReport.ReturnedToBacklog)
		c.LastReport = &r
	}
	return &c
}

func cloneMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// StatePatch carries the fields of a replicated snapshot; nil fields are left alone
type StatePatch struct {
	Status          *SessionStatus      `json:"status,omitempty"`
	Phase           *Phase              `json:"phase,omitempty"`
	Turn            *int                `json:"turn,omitempty"`
	Players         []*Participant      `json:"players"`
	CurrentTasks    []*WorkItem         `json:"currentTasks"`
	CompletedTasks  []*WorkItem         `json:"completedTasks"`
	UnselectedTasks []*WorkItem         `json:"unselectedTasks"`
	CarryOver       []*WorkItem         `json:"carryOver"`
	Done            []string            `json:"done"`
	Descoped        []string            `json:"descoped"`
	Pending         []string            `json:"pendingConsequences"`
	Votes           map[string]string   `json:"votes"`
	Tally           map[string]int      `json:"tally"`
	CurrentEvent    *GameEvent          `json:"currentEvent,omitempty"`
	ClearEvent      bool                `json:"clearEvent,omitempty"`
	Business        *BusinessMetrics    `json:"business,omitempty"`
	Operational     *OperationalMetrics `json:"operational,omitempty"`
	History         []HistoryEntry      `json:"history,omitempty"`
	LastReport      *TurnReport         `json:"lastReport,omitempty"`
}

// PatchFrom builds a full patch carrying every replicated field of s
func PatchFrom(s *SprintState) *StatePatch {
	c := s.Clone()
	p := &StatePatch{
		Status:          &c.Status,
		Phase:           &c.Phase,
		Turn:            &c.Turn,
		Players:         c.Players,
		CurrentTasks:    nonNil(c.CurrentTasks),
		CompletedTasks:  nonNil(c.CompletedTasks),
		UnselectedTasks: nonNil(c.UnselectedTasks),
		CarryOver:       nonNil(c.CarryOver),
		Done:            nonNilStrings(c.Done),
		Descoped:        nonNilStrings(c.Descoped),
		Pending:         nonNilStrings(c.PendingConsequences),
		Votes:           c.Votes,
		Tally:           c.Tally,
		CurrentEvent:    c.CurrentEvent,
		ClearEvent:      c.CurrentEvent == nil,
		Business:        &c.Business,
		Operational:     &c.Operational,
		History:         c.History,
		LastReport:      c.LastReport,
	}
	if p.Votes == nil {
		p.Votes = map[string]string{}
	}
	if p.Tally == nil {
		p.Tally = map[string]int{}
	}
	return p
}

func nonNil(items []*WorkItem) []*WorkItem {
	if items == nil {
		return []*WorkItem{}
	}
	return items
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Merge copies the non-nil fields of p onto s
func (s *SprintState) Merge(p *StatePatch) {
	if p == nil {
		return
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Phase != nil {
		s.Phase = *p.Phase
	}
	if p.Turn != nil {
		s.Turn = *p.Turn
	}
	if p.Players != nil {
		s.Players = p.Players
	}
	if p.CurrentTasks != nil {
		s.CurrentTasks = p.CurrentTasks
	}
	if p.CompletedTasks != nil {
		s.CompletedTasks = p.CompletedTasks
	}
	if p.UnselectedTasks != nil {
		s.UnselectedTasks = p.UnselectedTasks
	}
	if p.CarryOver != nil {
		s.CarryOver = p.CarryOver
	}
	if p.Done != nil {
		s.Done = p.Done
	}
	if p.Descoped != nil {
		s.Descoped = p.Descoped
	}
	if p.Pending != nil {
		s.PendingConsequences = p.Pending
	}
	if p.Votes != nil {
		s.Votes = p.Votes
	}
	if p.Tally != nil {
		s.Tally = p.Tally
	}
	if p.CurrentEvent != nil {
		s.CurrentEvent = p.CurrentEvent
	} else if p.ClearEvent {
		s.CurrentEvent = nil
	}
	if p.Business != nil {
		s.Business = *p.Business
	}
	if p.Operational != nil {
		s.Operational = *p.Operational
	}
	if p.History != nil {
		s.History = p.History
	}
	if p.LastReport != nil {
		s.LastReport = p.LastReport
	}
}
