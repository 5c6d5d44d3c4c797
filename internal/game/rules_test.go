package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sprintquest/internal/model"
)

func TestProgressRequiredExamples(t *testing.T) {
	cases := []struct {
		active, difficulty, debt, want int
	}{
		{4, 3, 0, 4},
		{4, 2, 50, 8},
		{4, 2, 30, 7},  // 4 + 2.4
		{1, 5, 20, 2},  // exact multiple must not round up
		{3, 1, 100, 6}, // 3 + 3
		{0, 4, 80, 1},  // floor of one
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ProgressRequired(tc.active, tc.difficulty, tc.debt),
			"active=%d difficulty=%d debt=%d", tc.active, tc.difficulty, tc.debt)
	}
}

func TestProgressRequiredIsMonotonic(t *testing.T) {
	for difficulty := 0; difficulty <= 6; difficulty++ {
		for active := 0; active <= 8; active++ {
			prev := 0
			for debt := 0; debt <= 100; debt++ {
				got := ProgressRequired(active, difficulty, debt)
				assert.GreaterOrEqual(t, got, prev, "debt not monotonic at difficulty=%d active=%d debt=%d", difficulty, active, debt)
				prev = got
			}
		}
		for debt := 0; debt <= 100; debt += 5 {
			prev := 0
			for active := 0; active <= 8; active++ {
				got := ProgressRequired(active, difficulty, debt)
				assert.GreaterOrEqual(t, got, prev, "players not monotonic at difficulty=%d debt=%d active=%d", difficulty, debt, active)
				prev = got
			}
		}
	}
}

func TestPoolSizeGrowsToCap(t *testing.T) {
	assert.Equal(t, 3, PoolSize(1))
	assert.Equal(t, 4, PoolSize(2))
	assert.Equal(t, 5, PoolSize(3))
	assert.Equal(t, 5, PoolSize(12))
}

func TestIsRecommended(t *testing.T) {
	assert.True(t, IsRecommended(model.CategoryFeature, model.RoleDeveloper))
	assert.True(t, IsRecommended(model.CategorySecurity, model.RoleSecurity))
	assert.True(t, IsRecommended(model.CategoryMonitoring, model.RoleSRE))
	assert.False(t, IsRecommended(model.CategorySecurity, model.RoleQA))
	assert.False(t, IsRecommended(model.CategoryFeature, model.RoleNone))
	assert.False(t, IsRecommended(model.CategoryTechDebt, model.RoleDeveloper))

	assert.ElementsMatch(t, []model.Role{model.RoleDeveloper, model.RoleQA}, RecommendedRoles(model.CategoryDefect))
}

func TestDebtDrift(t *testing.T) {
	assert.Equal(t, 1, DebtDrift(1))
	assert.Equal(t, 2, DebtDrift(4))
	assert.Equal(t, 3, DebtDrift(9))
}
