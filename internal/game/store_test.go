package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprintquest/internal/model"
)

func TestStateStoreNotifiesWithCopies(t *testing.T) {
	st := NewStateStore(newState(20, model.RoleQA), fixedNow)

	var got []*model.SprintState
	st.Subscribe(func(s *model.SprintState) { got = append(got, s) })

	require.NoError(t, st.Update(func(s *model.SprintState) error {
		s.Business.Income = 70
		return nil
	}))
	require.Len(t, got, 1)
	assert.Equal(t, 70, got[0].Business.Income)
	assert.Equal(t, fixedNow(), got[0].UpdatedAt)

	got[0].Business.Income = 1
	got[0].Players[0].Name = "mallory"
	assert.Equal(t, 70, st.State().Business.Income)
	assert.Equal(t, "ana", st.State().Players[0].Name)
}

func TestStateStoreDiscardsFailedUpdates(t *testing.T) {
	st := NewStateStore(newState(20, model.RoleQA), fixedNow)
	calls := 0
	st.Subscribe(func(*model.SprintState) { calls++ })

	before := st.State()
	boom := errors.New("boom")
	err := st.Update(func(s *model.SprintState) error {
		s.Business.Income = 0
		s.Phase = model.PhaseFinished
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, st.State())
	assert.Zero(t, calls)
}

func TestStateStoreUnsubscribe(t *testing.T) {
	st := NewStateStore(newState(20), fixedNow)
	calls := 0
	unsubscribe := st.Subscribe(func(*model.SprintState) { calls++ })

	require.NoError(t, st.Update(func(*model.SprintState) error { return nil }))
	unsubscribe()
	unsubscribe()
	require.NoError(t, st.Update(func(*model.SprintState) error { return nil }))
	assert.Equal(t, 1, calls)
}

func TestStateStoreClose(t *testing.T) {
	st := NewStateStore(newState(20), fixedNow)
	calls := 0
	st.Subscribe(func(*model.SprintState) { calls++ })
	st.Close()

	assert.ErrorIs(t, st.Update(func(*model.SprintState) error { return nil }), ErrSessionClosed)
	st.Subscribe(func(*model.SprintState) { calls++ })
	assert.Zero(t, calls)
}

func TestStateStoreApplyPatch(t *testing.T) {
	src := newState(20, model.RoleQA, model.RoleSRE)
	src.Phase = model.PhaseVoting
	src.Votes = map[string]string{"ana": "x"}
	src.Business.Security = 12

	st := NewStateStore(newState(20), fixedNow)
	require.NoError(t, st.Apply(model.PatchFrom(src)))

	got := st.State()
	assert.Equal(t, model.PhaseVoting, got.Phase)
	assert.Len(t, got.Players, 2)
	assert.Equal(t, map[string]string{"ana": "x"}, got.Votes)
	assert.Equal(t, 12, got.Business.Security)
}
