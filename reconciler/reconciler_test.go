package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rallyscore/go-rallysync/common/types"
	"github.com/rallyscore/go-rallysync/engine"
)

func newTestReconciler(t *testing.T) *Reconciler {
	return New(engine.New(), WithLogger(zaptest.NewLogger(t)))
}

func baseSnapshot(id types.GameID) types.LiveGameSnapshot {
	return types.LiveGameSnapshot{
		GameID: id,
		State:  types.GameStatePlaying,
		Rules:  types.DefaultRuleSet(),
		Serve: types.ServeState{
			ServingTeam:    types.Team1,
			ServerNumber:   2,
			ServerPosition: types.PositionRight,
			Side:           types.CourtSideA,
		},
		TakenAt: time.Now().UTC(),
	}
}

func scoreDelta(gid types.GameID, team types.Team, logical time.Duration) types.LiveGameDelta {
	return types.NewDelta(gid, types.OpScore, logical).WithTeam(team)
}

func TestDeltaWithoutProjection(t *testing.T) {
	r := newTestReconciler(t)
	gid := types.RandomGameID()
	err := r.ApplyDelta(context.Background(), scoreDelta(gid, types.Team1, time.Second))
	require.ErrorIs(t, err, ErrNeedsSnapshot)
	_, ok := r.Projection(gid)
	require.False(t, ok)
}

func TestRetryAfterSnapshotArrives(t *testing.T) {
	r := newTestReconciler(t)
	gid := types.RandomGameID()
	ctx := context.Background()

	d := types.NewDelta(gid, types.OpSetElapsedTime, 30*time.Second)
	d.Elapsed = 30 * time.Second
	d.Running = true
	require.ErrorIs(t, r.ApplyDelta(ctx, d), ErrNeedsSnapshot)

	require.NoError(t, r.ApplySnapshot(ctx, baseSnapshot(gid)))
	// the sender retries the very same delta once a projection exists
	require.NoError(t, r.ApplyDelta(ctx, d))
	snap, ok := r.Projection(gid)
	require.True(t, ok)
	require.Equal(t, 30*time.Second, snap.Elapsed)
	require.True(t, snap.TimerRunning)
}

func TestSnapshotThenDeltas(t *testing.T) {
	r := newTestReconciler(t)
	gid := types.RandomGameID()
	ctx := context.Background()
	require.NoError(t, r.ApplySnapshot(ctx, baseSnapshot(gid)))

	require.NoError(t, r.ApplyDelta(ctx, scoreDelta(gid, types.Team1, 10*time.Second)))
	require.NoError(t, r.ApplyDelta(ctx, scoreDelta(gid, types.Team1, 20*time.Second)))
	require.NoError(t, r.ApplyDelta(ctx, types.NewDelta(gid, types.OpDecrement, 30*time.Second).WithTeam(types.Team1)))

	snap, ok := r.Projection(gid)
	require.True(t, ok)
	require.Equal(t, 1, snap.Score.Team1)
	require.Equal(t, 0, snap.Score.Team2)
}

func TestRedeliveredDeltaIsNoop(t *testing.T) {
	r := newTestReconciler(t)
	gid := types.RandomGameID()
	ctx := context.Background()
	require.NoError(t, r.ApplySnapshot(ctx, baseSnapshot(gid)))

	d := scoreDelta(gid, types.Team1, 10*time.Second)
	require.NoError(t, r.ApplyDelta(ctx, d))
	require.NoError(t, r.ApplyDelta(ctx, d))
	require.NoError(t, r.ApplyDelta(ctx, d))

	snap, _ := r.Projection(gid)
	require.Equal(t, 1, snap.Score.Team1, "redelivery applies exactly once")
}

func TestStaleDeltaDiscarded(t *testing.T) {
	r := newTestReconciler(t)
	gid := types.RandomGameID()
	ctx := context.Background()
	require.NoError(t, r.ApplySnapshot(ctx, baseSnapshot(gid)))

	require.NoError(t, r.ApplyDelta(ctx, scoreDelta(gid, types.Team1, 20*time.Second)))
	// an older delta of the same operation identity arrives late
	require.NoError(t, r.ApplyDelta(ctx, scoreDelta(gid, types.Team1, 10*time.Second)))

	snap, _ := r.Projection(gid)
	require.Equal(t, 1, snap.Score.Team1)

	// same logical time for a different identity still applies
	require.NoError(t, r.ApplyDelta(ctx, scoreDelta(gid, types.Team2, 20*time.Second)))
	snap, _ = r.Projection(gid)
	require.Equal(t, 1, snap.Score.Team2)
}

func TestSnapshotResetsWatermarks(t *testing.T) {
	r := newTestReconciler(t)
	gid := types.RandomGameID()
	ctx := context.Background()
	require.NoError(t, r.ApplySnapshot(ctx, baseSnapshot(gid)))
	require.NoError(t, r.ApplyDelta(ctx, scoreDelta(gid, types.Team1, 60*time.Second)))

	// a fresh snapshot restarts logical time, for example after a game reset
	require.NoError(t, r.ApplySnapshot(ctx, baseSnapshot(gid)))
	require.NoError(t, r.ApplyDelta(ctx, scoreDelta(gid, types.Team1, 5*time.Second)))

	snap, _ := r.Projection(gid)
	require.Equal(t, 1, snap.Score.Team1)
}

func TestUndoLastPoint(t *testing.T) {
	r := newTestReconciler(t)
	gid := types.RandomGameID()
	ctx := context.Background()
	require.NoError(t, r.ApplySnapshot(ctx, baseSnapshot(gid)))

	require.NoError(t, r.ApplyDelta(ctx, scoreDelta(gid, types.Team1, 10*time.Second)))
	before, _ := r.Projection(gid)
	require.Equal(t, 1, before.Score.Team1)
	require.Equal(t, types.PositionLeft, before.Serve.ServerPosition)

	require.NoError(t, r.ApplyDelta(ctx, types.NewDelta(gid, types.OpUndoLastPoint, 15*time.Second)))
	after, _ := r.Projection(gid)
	require.Equal(t, 0, after.Score.Team1)
	require.Equal(t, types.PositionRight, after.Serve.ServerPosition, "undo restores the serve state too")

	// a second undo with nothing to revert is a no-op
	require.NoError(t, r.ApplyDelta(ctx, types.NewDelta(gid, types.OpUndoLastPoint, 20*time.Second)))
	again, _ := r.Projection(gid)
	require.Equal(t, after.Score, again.Score)
}

func TestUndoOnlyRevertsScoring(t *testing.T) {
	r := newTestReconciler(t)
	gid := types.RandomGameID()
	ctx := context.Background()
	require.NoError(t, r.ApplySnapshot(ctx, baseSnapshot(gid)))

	require.NoError(t, r.ApplyDelta(ctx, scoreDelta(gid, types.Team1, 10*time.Second)))
	// an intervening non-scoring operation clears the undo record
	require.NoError(t, r.ApplyDelta(ctx, types.NewDelta(gid, types.OpSwitchServer, 15*time.Second)))
	require.NoError(t, r.ApplyDelta(ctx, types.NewDelta(gid, types.OpUndoLastPoint, 20*time.Second)))

	snap, _ := r.Projection(gid)
	require.Equal(t, 1, snap.Score.Team1, "undo after a non-scoring op must not revert")
}

func TestDecrementFloorsAtZero(t *testing.T) {
	r := newTestReconciler(t)
	gid := types.RandomGameID()
	ctx := context.Background()
	require.NoError(t, r.ApplySnapshot(ctx, baseSnapshot(gid)))

	require.NoError(t, r.ApplyDelta(ctx, types.NewDelta(gid, types.OpDecrement, 10*time.Second).WithTeam(types.Team2)))
	snap, _ := r.Projection(gid)
	require.Equal(t, 0, snap.Score.Team2)
}

func TestReset(t *testing.T) {
	r := newTestReconciler(t)
	gid := types.RandomGameID()
	ctx := context.Background()
	snap := baseSnapshot(gid)
	snap.Score = types.Score{Team1: 7, Team2: 4}
	snap.Elapsed = 13 * time.Minute
	snap.TimerRunning = true
	require.NoError(t, r.ApplySnapshot(ctx, snap))

	require.NoError(t, r.ApplyDelta(ctx, types.NewDelta(gid, types.OpReset, 14*time.Minute)))
	got, _ := r.Projection(gid)
	require.Equal(t, types.Score{}, got.Score)
	require.Equal(t, types.GameStateInitial, got.State)
	require.Zero(t, got.Elapsed)
	require.False(t, got.TimerRunning)
	require.Equal(t, types.Team1, got.Serve.ServingTeam)
	require.Equal(t, 2, got.Serve.ServerNumber, "two-server rotation opens on the second server")
}

func TestSetElapsedTime(t *testing.T) {
	r := newTestReconciler(t)
	gid := types.RandomGameID()
	ctx := context.Background()
	require.NoError(t, r.ApplySnapshot(ctx, baseSnapshot(gid)))

	d := types.NewDelta(gid, types.OpSetElapsedTime, 31*time.Second)
	d.Elapsed = 31 * time.Second
	d.Running = true
	require.NoError(t, r.ApplyDelta(ctx, d))

	got, _ := r.Projection(gid)
	require.Equal(t, 31*time.Second, got.Elapsed)
	require.True(t, got.TimerRunning)
}

func TestSetGameState(t *testing.T) {
	r := newTestReconciler(t)
	gid := types.RandomGameID()
	ctx := context.Background()
	require.NoError(t, r.ApplySnapshot(ctx, baseSnapshot(gid)))

	d := types.NewDelta(gid, types.OpSetGameState, 10*time.Second)
	d.State = types.GameStatePaused
	require.NoError(t, r.ApplyDelta(ctx, d))
	got, _ := r.Projection(gid)
	require.Equal(t, types.GameStatePaused, got.State)
}

func TestCorruptDeltas(t *testing.T) {
	r := newTestReconciler(t)
	gid := types.RandomGameID()
	ctx := context.Background()
	require.NoError(t, r.ApplySnapshot(ctx, baseSnapshot(gid)))

	for _, tc := range []struct {
		desc  string
		delta types.LiveGameDelta
	}{
		{"missing id", types.LiveGameDelta{GameID: gid, Op: types.OpScore, Team: types.Team1}},
		{"missing game id", types.LiveGameDelta{ID: uuid.New(), Op: types.OpScore, Team: types.Team1}},
		{"unknown op", types.LiveGameDelta{ID: uuid.New(), GameID: gid, Op: "teleport"}},
		{"score without team", types.NewDelta(gid, types.OpScore, time.Second)},
		{"bad state", func() types.LiveGameDelta {
			d := types.NewDelta(gid, types.OpSetGameState, time.Second)
			d.State = "voided"
			return d
		}()},
	} {
		err := r.ApplyDelta(ctx, tc.delta)
		require.ErrorIs(t, err, ErrCorruptDelta, tc.desc)
	}

	got, _ := r.Projection(gid)
	require.Equal(t, types.Score{}, got.Score, "corrupt deltas never touch the projection")
}

func TestSnapshotWithoutGameID(t *testing.T) {
	r := newTestReconciler(t)
	err := r.ApplySnapshot(context.Background(), types.LiveGameSnapshot{})
	require.Error(t, err)
}

func TestForget(t *testing.T) {
	r := newTestReconciler(t)
	gid := types.RandomGameID()
	ctx := context.Background()
	require.NoError(t, r.ApplySnapshot(ctx, baseSnapshot(gid)))
	require.Len(t, r.Games(), 1)

	r.Forget(gid)
	require.Empty(t, r.Games())
	err := r.ApplyDelta(ctx, scoreDelta(gid, types.Team1, time.Second))
	require.ErrorIs(t, err, ErrNeedsSnapshot)
}

func TestOrderIndependentConvergence(t *testing.T) {
	gid := types.RandomGameID()
	ctx := context.Background()

	// distinct operation identities at the same logical time commute
	deltas := []types.LiveGameDelta{
		scoreDelta(gid, types.Team1, 10*time.Second),
		scoreDelta(gid, types.Team2, 10*time.Second),
		func() types.LiveGameDelta {
			d := types.NewDelta(gid, types.OpSetElapsedTime, 10*time.Second)
			d.Elapsed = 10 * time.Second
			d.Running = true
			return d
		}(),
	}

	base := baseSnapshot(gid)
	forward := newTestReconciler(t)
	require.NoError(t, forward.ApplySnapshot(ctx, base))
	for _, d := range deltas {
		require.NoError(t, forward.ApplyDelta(ctx, d))
	}

	reversed := newTestReconciler(t)
	require.NoError(t, reversed.ApplySnapshot(ctx, base))
	for i := len(deltas) - 1; i >= 0; i-- {
		require.NoError(t, reversed.ApplyDelta(ctx, deltas[i]))
	}

	a, _ := forward.Projection(gid)
	b, _ := reversed.Projection(gid)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("projections diverged (-forward +reversed):\n%s", diff)
	}
}

func TestDedupWindowEviction(t *testing.T) {
	r := New(engine.New(), WithConfig(Config{DedupWindow: 2}), WithLogger(zaptest.NewLogger(t)))
	gid := types.RandomGameID()
	ctx := context.Background()
	require.NoError(t, r.ApplySnapshot(ctx, baseSnapshot(gid)))

	first := scoreDelta(gid, types.Team1, 10*time.Second)
	require.NoError(t, r.ApplyDelta(ctx, first))
	require.NoError(t, r.ApplyDelta(ctx, scoreDelta(gid, types.Team1, 20*time.Second)))
	require.NoError(t, r.ApplyDelta(ctx, scoreDelta(gid, types.Team1, 30*time.Second)))

	// evicted from the dedup window, but still stale by watermark
	require.NoError(t, r.ApplyDelta(ctx, first))
	snap, _ := r.Projection(gid)
	require.Equal(t, 3, snap.Score.Team1)
}
