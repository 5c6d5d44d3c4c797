package game

import (
	"slices"

	"sprintquest/internal/model"
)

// Power names, one per role
const (
	PowerHotfix    = "hotfix"
	PowerFastTrack = "fast_track"
	PowerAutoScale = "auto_scale"
	PowerPatch     = "patch"
	PowerDescope   = "descope"
	PowerRollback  = "rollback"
)

var powerByRole = map[model.Role]string{
	model.RoleDeveloper:    PowerHotfix,
	model.RoleQA:           PowerFastTrack,
	model.RoleDevOps:       PowerAutoScale,
	model.RoleSecurity:     PowerPatch,
	model.RoleProductOwner: PowerDescope,
	model.RoleSRE:          PowerRollback,
}

// completionTargets lists the categories a completing power may pick from
var completionTargets = map[string][]model.Category{
	PowerHotfix:    {model.CategoryDefect},
	PowerFastTrack: {model.CategoryFeature},
	PowerAutoScale: {model.CategoryInfrastructure, model.CategoryMonitoring},
	PowerPatch:     {model.CategorySecurity},
}

// PowerFor returns the power granted to role, or ""
func PowerFor(role model.Role) string {
	return powerByRole[role]
}

// PowerManager applies the single-use role powers. Powers bypass votes and
// progress accounting entirely.
type PowerManager struct {
	rng Rand
}

// NewPowerManager creates a power manager
func NewPowerManager(rng Rand) *PowerManager {
	return &PowerManager{rng: rng}
}

// UsePower runs power for the named participant. It returns false without
// touching the state if the participant has no role, already used their power,
// named another role's power, or there is nothing for the power to act on.
func (m *PowerManager) UsePower(s *model.SprintState, name, power string) bool {
	p := s.Player(name)
	if p == nil || !p.HasRole() || p.PowerUsed {
		return false
	}
	if powerByRole[p.Role] != power {
		return false
	}
	switch s.Phase {
	case model.PhaseVoting, model.PhaseEvents, model.PhaseExecution:
	default:
		return false
	}

	var ok bool
	switch power {
	case PowerDescope:
		ok = m.descope(s)
	case PowerRollback:
		ok = rollback(s)
	default:
		ok = m.completeRandom(s, completionTargets[power])
	}
	if !ok {
		return false
	}
	p.PowerUsed = true
	return true
}

// activeItems returns the items a power may act on in the current phase
func activeItems(s *model.SprintState) []*model.WorkItem {
	var src []*model.WorkItem
	if s.Phase == model.PhaseVoting {
		src = s.CurrentTasks
	} else {
		src = s.UnselectedTasks
	}
	var out []*model.WorkItem
	for _, t := range src {
		if !t.IsSynthetic() && !t.IsComplete() {
			out = append(out, t)
		}
	}
	return out
}

func (m *PowerManager) pick(s *model.SprintState, cats []model.Category) *model.WorkItem {
	var candidates []*model.WorkItem
	for _, t := range activeItems(s) {
		if cats == nil || slices.Contains(cats, t.Category) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[m.rng.IntN(len(candidates))]
}

func (m *PowerManager) completeRandom(s *model.SprintState, cats []model.Category) bool {
	task := m.pick(s, cats)
	if task == nil {
		return false
	}
	finish(s, task)
	removeActive(s, task.ID)
	return true
}

func (m *PowerManager) descope(s *model.SprintState) bool {
	task := m.pick(s, nil)
	if task == nil {
		return false
	}
	s.Descoped = append(s.Descoped, task.ID)
	removeActive(s, task.ID)
	return true
}

// removeActive drops id from the pool during voting, or from the unselected list afterwards.
// Votes already cast for a pool item are withdrawn so those voters must vote again.
func removeActive(s *model.SprintState, id string) {
	match := func(t *model.WorkItem) bool { return t.ID == id }
	if s.Phase == model.PhaseVoting {
		s.CurrentTasks = slices.DeleteFunc(s.CurrentTasks, match)
		for voter, itemID := range s.Votes {
			if itemID == id {
				delete(s.Votes, voter)
			}
		}
		return
	}
	s.UnselectedTasks = slices.DeleteFunc(s.UnselectedTasks, match)
}

// rollback restores the most degraded Business metric to its value in the
// latest history snapshot.
func rollback(s *model.SprintState) bool {
	if len(s.History) == 0 {
		return false
	}
	prev := s.History[len(s.History)-1].Business
	cur := &s.Business

	type candidate struct {
		loss    int
		restore func()
	}
	candidates := []candidate{
		{prev.Income - cur.Income, func() { cur.Income = prev.Income }},
		{prev.Security - cur.Security, func() { cur.Security = prev.Security }},
		{prev.Performance - cur.Performance, func() { cur.Performance = prev.Performance }},
		{prev.Reputation - cur.Reputation, func() { cur.Reputation = prev.Reputation }},
		{cur.TechDebt - prev.TechDebt, func() { cur.TechDebt = prev.TechDebt }},
	}

	best := -1
	for i, c := range candidates {
		if c.loss > 0 && (best < 0 || c.loss > candidates[best].loss) {
			best = i
		}
	}
	if best < 0 {
		return false
	}
	candidates[best].restore()
	return true
}
