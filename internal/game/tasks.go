package game

import (
	"slices"

	"sprintquest/internal/model"
)

// TaskManager owns the work-item rules: pool selection, vote tallying,
// completion, consequences and end-of-turn drift.
type TaskManager struct {
	catalog []*model.WorkItem
	byID    map[string]*model.WorkItem
	rng     Rand
}

// NewTaskManager creates a task manager over a loaded catalog
func NewTaskManager(items []*model.WorkItem, rng Rand) *TaskManager {
	m := &TaskManager{
		byID: make(map[string]*model.WorkItem, len(items)),
		rng:  rng,
	}
	for _, it := range items {
		if it == nil || it.ID == "" || it.IsSynthetic() {
			continue
		}
		if _, dup := m.byID[it.ID]; dup {
			continue
		}
		c := it.Clone()
		c.Progress = 0
		m.catalog = append(m.catalog, c)
		m.byID[c.ID] = c
	}
	return m
}

// CatalogSize returns the number of distinct catalog items
func (m *TaskManager) CatalogSize() int {
	return len(m.catalog)
}

// TechDebtItem builds the synthetic debt-reduction task
func TechDebtItem() *model.WorkItem {
	return &model.WorkItem{
		ID:          model.TechDebtItemID,
		Title:       "Reduce technical debt",
		Description: "Spend the sprint paying down shortcuts. Every vote removes two points of debt, up to ten.",
		Category:    model.CategoryTechDebt,
		Difficulty:  0,
	}
}

// SelectForVoting builds the voting pool for the current turn and clears votes.
// The pool is carried-over in-progress items, then pending consequences, then
// fresh draws until PoolSize is reached, then the synthetic debt item.
func (m *TaskManager) SelectForVoting(s *model.SprintState) {
	seen := make(map[string]bool)
	for _, id := range s.Done {
		seen[id] = true
	}
	for _, id := range s.Descoped {
		seen[id] = true
	}

	pool := make([]*model.WorkItem, 0, maxPoolSize+1)
	for _, it := range s.CarryOver {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		pool = append(pool, it.Clone())
	}
	for _, id := range s.PendingConsequences {
		src, ok := m.byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		pool = append(pool, src.Clone())
	}

	var backlog []*model.WorkItem
	for _, it := range m.catalog {
		if !seen[it.ID] {
			backlog = append(backlog, it)
		}
	}
	for len(pool) < PoolSize(s.Turn) && len(backlog) > 0 {
		i := m.rng.IntN(len(backlog))
		pool = append(pool, backlog[i].Clone())
		backlog = slices.Delete(backlog, i, i+1)
	}
	pool = append(pool, TechDebtItem())

	active := s.ActivePlayers()
	for _, it := range pool {
		it.ProgressRequired = ProgressRequired(active, it.Difficulty, s.Business.TechDebt)
	}

	s.CurrentTasks = pool
	s.CarryOver = nil
	s.PendingConsequences = nil
	s.CompletedTasks = nil
	s.UnselectedTasks = nil
	s.Votes = make(map[string]string)
	s.Tally = make(map[string]int)
}

// SubmitVote records name's vote for itemID, replacing any earlier vote
func (m *TaskManager) SubmitVote(s *model.SprintState, name, itemID string) error {
	p := s.Player(name)
	if p == nil {
		return ErrUnknownPlayer
	}
	if !p.HasRole() {
		return ErrNoRole
	}
	if s.Task(itemID) == nil {
		return ErrUnknownItem
	}
	if s.Votes == nil {
		s.Votes = make(map[string]string)
	}
	s.Votes[name] = itemID
	return nil
}

// VotesReceived counts votes cast by role-holding participants
func VotesReceived(s *model.SprintState) int {
	n := 0
	for name := range s.Votes {
		if p := s.Player(name); p != nil && p.HasRole() {
			n++
		}
	}
	return n
}

// Tally counts effective votes per item: one per voter plus one more when the
// voter's role is recommended for the item's category.
func Tally(s *model.SprintState) map[string]int {
	counts := make(map[string]int)
	for voter, itemID := range s.Votes {
		task := s.Task(itemID)
		if task == nil {
			continue
		}
		counts[itemID]++
		if p := s.Player(voter); p != nil && IsRecommended(task.Category, p.Role) {
			counts[itemID]++
		}
	}
	return counts
}

// ResolveVotes adds effective votes to progress and splits the pool into
// completed and unselected items.
func (m *TaskManager) ResolveVotes(s *model.SprintState) (completed, unselected []*model.WorkItem) {
	counts := Tally(s)
	s.Tally = counts

	for _, task := range s.CurrentTasks {
		votes := counts[task.ID]
		if task.IsSynthetic() {
			if votes > 0 {
				reduceDebt(s, min(2*votes, maxDebtReduction))
				task.Progress = task.ProgressRequired
				completed = append(completed, task.Clone())
			}
			continue
		}

		task.Progress += votes
		if task.IsComplete() {
			model.Apply(&s.Business, &s.Operational, task.Impact, model.DeltaBeneficial)
			s.Done = append(s.Done, task.ID)
			completed = append(completed, task.Clone())
			continue
		}
		unselected = append(unselected, task.Clone())
	}

	s.CompletedTasks = append(s.CompletedTasks, completed...)
	s.UnselectedTasks = unselected
	return completed, unselected
}

// ApplyConsequences applies the penalty of every unselected item and queues
// its declared consequence items for a later pool.
func (m *TaskManager) ApplyConsequences(s *model.SprintState, unselected []*model.WorkItem) {
	for _, task := range unselected {
		model.Apply(&s.Business, &s.Operational, task.Penalty, model.DeltaHarmful)
		for _, id := range task.Consequences {
			if _, ok := m.byID[id]; !ok {
				continue
			}
			if slices.Contains(s.PendingConsequences, id) || slices.Contains(s.Done, id) || slices.Contains(s.Descoped, id) {
				continue
			}
			s.PendingConsequences = append(s.PendingConsequences, id)
		}
	}
}

// CompleteTask finishes an unselected item outside the vote, applying its
// impact as a benefit.
func (m *TaskManager) CompleteTask(s *model.SprintState, itemID string) error {
	idx := slices.IndexFunc(s.UnselectedTasks, func(t *model.WorkItem) bool { return t.ID == itemID })
	if idx < 0 {
		return ErrUnknownItem
	}
	task := s.UnselectedTasks[idx]
	finish(s, task)
	s.UnselectedTasks = slices.Delete(s.UnselectedTasks, idx, idx+1)
	return nil
}

// finish marks task complete, applies its impact and records it as done
func finish(s *model.SprintState, task *model.WorkItem) {
	task.Progress = max(task.Progress, task.ProgressRequired)
	model.Apply(&s.Business, &s.Operational, task.Impact, model.DeltaBeneficial)
	s.Done = append(s.Done, task.ID)
	s.CompletedTasks = append(s.CompletedTasks, task.Clone())
	if pooled := s.Task(task.ID); pooled != nil {
		pooled.Progress = task.Progress
	}
	withdrawConsequences(s, task)
}

// withdrawConsequences unqueues the follow-on items task declared, unless
// another unfinished item still declares them
func withdrawConsequences(s *model.SprintState, task *model.WorkItem) {
	for _, id := range task.Consequences {
		stillOwed := slices.ContainsFunc(s.UnselectedTasks, func(t *model.WorkItem) bool {
			return t.ID != task.ID && slices.Contains(t.Consequences, id)
		})
		if stillOwed {
			continue
		}
		s.PendingConsequences = slices.DeleteFunc(s.PendingConsequences, func(p string) bool { return p == id })
	}
}

// EndOfTurnDrift raises technical debt, rolls descoping and exploits for the
// unresolved items, and decides which of them carry into the next pool.
func (m *TaskManager) EndOfTurnDrift(s *model.SprintState) *model.TurnReport {
	report := &model.TurnReport{Turn: s.Turn, DebtAdded: DebtDrift(s.Turn)}
	s.Business.TechDebt = model.Clamp(s.Business.TechDebt + report.DebtAdded)

	for _, task := range s.UnselectedTasks {
		if task.IsSynthetic() {
			continue
		}
		switch task.Category {
		case model.CategoryFeature:
			if m.rng.Float64() < descopeChance {
				s.Descoped = append(s.Descoped, task.ID)
				report.Descoped = append(report.Descoped, task.ID)
				continue
			}
		case model.CategorySecurity:
			if m.rng.Float64() < exploitChance {
				model.Apply(&s.Business, &s.Operational, &model.MetricDeltas{
					Security:   exploitSecurityHit,
					Reputation: exploitReputationHit,
				}, model.DeltaHarmful)
				report.Exploited = append(report.Exploited, task.ID)
			}
		}

		if task.Progress > 0 {
			s.CarryOver = append(s.CarryOver, task.Clone())
			report.CarriedOver = append(report.CarriedOver, task.ID)
		} else {
			report.ReturnedToBacklog = append(report.ReturnedToBacklog, task.ID)
		}
	}
	return report
}

// reduceDebt is the only path that lowers technical debt outside completion impacts
func reduceDebt(s *model.SprintState, amount int) {
	s.Business.TechDebt = model.Clamp(s.Business.TechDebt - amount)
}
