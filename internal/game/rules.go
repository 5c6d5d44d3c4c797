package game

import "sprintquest/internal/model"

const (
	minPoolSize = 3
	maxPoolSize = 5

	maxDebtReduction     = 10
	descopeChance        = 0.25
	exploitChance        = 0.10
	exploitSecurityHit   = 15
	exploitReputationHit = 10
)

// recommended maps each role to the categories it is specialised in.
// A vote from a specialist counts twice.
var recommended = map[model.Role][]model.Category{
	model.RoleDeveloper:    {model.CategoryFeature, model.CategoryDefect},
	model.RoleQA:           {model.CategoryQuality, model.CategoryDefect},
	model.RoleDevOps:       {model.CategoryInfrastructure, model.CategoryMonitoring, model.CategoryPerformance},
	model.RoleSecurity:     {model.CategorySecurity, model.CategoryCompliance},
	model.RoleProductOwner: {model.CategoryFeature, model.CategoryCompliance},
	model.RoleSRE:          {model.CategoryPerformance, model.CategoryMonitoring, model.CategoryInfrastructure},
}

// IsRecommended reports whether role is a specialist for category
func IsRecommended(category model.Category, role model.Role) bool {
	for _, c := range recommended[role] {
		if c == category {
			return true
		}
	}
	return false
}

// RecommendedRoles lists the specialist roles for category
func RecommendedRoles(category model.Category) []model.Role {
	var roles []model.Role
	for _, r := range model.Roles {
		if IsRecommended(category, r) {
			roles = append(roles, r)
		}
	}
	return roles
}

// ProgressRequired is ⌈active + difficulty × debt/100 × active⌉, at least 1.
// Integer arithmetic keeps exact multiples from rounding up.
func ProgressRequired(activePlayers, difficulty, techDebt int) int {
	if activePlayers < 0 {
		activePlayers = 0
	}
	if difficulty < 0 {
		difficulty = 0
	}
	techDebt = model.Clamp(techDebt)
	scaled := difficulty * techDebt * activePlayers
	required := activePlayers + (scaled+99)/100
	if required < 1 {
		return 1
	}
	return required
}

// PoolSize is the number of catalog items offered on turn, growing from 3 to 5
func PoolSize(turn int) int {
	size := 2 + turn
	if size < minPoolSize {
		return minPoolSize
	}
	if size > maxPoolSize {
		return maxPoolSize
	}
	return size
}

// DebtDrift is the technical debt added at the end of turn
func DebtDrift(turn int) int {
	return 1 + turn/4
}
