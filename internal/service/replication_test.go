package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sprintquest/internal/game"
	"sprintquest/internal/model"
)

func newCoordinator(t *testing.T) *game.Coordinator {
	t.Helper()
	c := game.NewCoordinator(game.Options{
		SessionID:     "s1",
		Code:          "ABC234",
		MaxTurns:      3,
		WorkItems:     starterCatalog().items,
		Rand:          game.NewRand(1),
		Authoritative: true,
	})
	_, err := c.Join("ana", model.RoleQA, true)
	require.NoError(t, err)
	return c
}

func TestBridgeFlushesFinalSnapshotOnClose(t *testing.T) {
	records, feed := newFakeRecords(), newFakeFeed()
	r := NewReplicator(ReplicationTargets{Records: records, PlayerRows: records, Feed: feed}, nil)

	c := newCoordinator(t)
	bridge := r.Attach(c)
	require.NoError(t, c.StartVoting("ana"))
	require.NoError(t, c.EndGame("ana"))
	bridge.Close()
	bridge.Close()

	rec := records.record("s1")
	require.NotNil(t, rec)
	assert.Equal(t, model.SessionEnded, rec.Status)
	assert.Equal(t, model.PhaseFinished, rec.SprintState.Phase)
	assert.Positive(t, feed.count())
	assert.LessOrEqual(t, records.saves, 4, "snapshots should coalesce")
}

func TestBridgeKeepsGoingWhenATargetFails(t *testing.T) {
	records, feed := newFakeRecords(), newFakeFeed()
	records.err = errors.New("mongo down")
	r := NewReplicator(ReplicationTargets{Records: records, Feed: feed}, nil)

	c := newCoordinator(t)
	bridge := r.Attach(c)
	require.NoError(t, c.StartVoting("ana"))
	bridge.Close()

	assert.Nil(t, records.record("s1"))
	assert.Positive(t, feed.count())
}

func TestFollowAppliesPatches(t *testing.T) {
	feed := newFakeFeed()
	r := NewReplicator(ReplicationTargets{Feed: feed}, nil)

	primary := newCoordinator(t)
	replica := game.NewReplica(primary.State(), nil)
	follower, err := r.Follow(t.Context(), replica)
	require.NoError(t, err)
	attached := r.Attach(primary)

	require.NoError(t, primary.StartVoting("ana"))
	assert.Eventually(t, func() bool { return replica.State().Phase == model.PhaseVoting }, time.Second, 5*time.Millisecond)

	follower.Close()
	attached.Close()
	assert.Positive(t, feed.count())
}

func TestSnapshotPrefersLiveStateAndForgetDropsIt(t *testing.T) {
	live, records := newFakeLive(), newFakeRecords()
	r := NewReplicator(ReplicationTargets{Sessions: live, Players: live, History: live, Tally: live, Records: records}, nil)

	c := newCoordinator(t)
	bridge := r.Attach(c)
	require.NoError(t, c.StartVoting("ana"))
	bridge.Close()

	require.NotNil(t, live.state("s1"))
	// Make the durable copy stale so the source is observable
	rec := records.record("s1")
	rec.SprintState.Phase = model.PhaseStartTurn
	require.NoError(t, records.Save(t.Context(), rec))

	state, err := r.Snapshot(t.Context(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseVoting, state.Phase)

	r.Forget(t.Context(), "s1")
	assert.Nil(t, live.state("s1"))

	state, err = r.Snapshot(t.Context(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseStartTurn, state.Phase, "falls back to the durable record")

	state, err = r.Snapshot(t.Context(), "missing")
	require.NoError(t, err)
	assert.Nil(t, state)
}
