package statusstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/redisstore"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/statusstore"
)

func newTestStore(t *testing.T) *statusstore.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return statusstore.New(redisstore.NewFromRedisClient(rdb), 7*24*time.Hour, 24*time.Hour)
}

func TestCreateAndGet_DefaultsBeforeAnyUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "t1", "analyze EV market 2025", models.ModePhased))

	task, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, task.Status)
	require.Equal(t, 0, task.Progress)
	require.Equal(t, "analyze EV market 2025", task.Query)
}

func TestUpdate_ProgressNeverRegresses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "t2", "q", models.ModePhased))

	require.NoError(t, store.Update(ctx, "t2", statusstore.UpdateInput{Status: models.StatusRunning, Progress: 5}))
	require.NoError(t, store.Update(ctx, "t2", statusstore.UpdateInput{Status: models.StatusPhase1Plan, Progress: 20}))
	require.NoError(t, store.Update(ctx, "t2", statusstore.UpdateInput{Progress: 1}))

	task, err := store.Get(ctx, "t2")
	require.NoError(t, err)
	require.Equal(t, 20, task.Progress)
	require.Equal(t, models.StatusPhase1Plan, task.Status)
}

func TestUpdate_RejectsIllegalTransition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "t3", "q", models.ModePhased))

	err := store.Update(ctx, "t3", statusstore.UpdateInput{Status: models.StatusCompleted, Progress: 100})
	require.ErrorIs(t, err, statusstore.ErrInvalidTransition)
}

func TestUpdate_FailedAllowedFromInFlightStatus(t *testing.T) {
	// The store knows nothing about Judge semantics (that Judge failure
	// never leads to `failed` is tested in pkg/workflow); this verifies
	// that an explicit failed transition from a legitimate in-flight
	// status is allowed and records the error and completion time.
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, "t4", "q", models.ModePhased))
	require.NoError(t, store.Update(ctx, "t4", statusstore.UpdateInput{Status: models.StatusRunning, Progress: 5}))
	require.NoError(t, store.Update(ctx, "t4", statusstore.UpdateInput{Status: models.StatusFailed, Error: "render failed"}))

	task, err := store.Get(ctx, "t4")
	require.NoError(t, err)
	require.Equal(t, models.StatusFailed, task.Status)
	require.Equal(t, "render failed", task.ErrorMsg)
	require.NotNil(t, task.CompletedAt)
}

func TestList_OrderedMostRecentFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "a", "q1", models.ModePhased))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, store.Create(ctx, "b", "q2", models.ModePhased))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, store.Create(ctx, "c", "q3", models.ModePhased))

	tasks, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	require.Equal(t, "c", tasks[0].TaskID)
	require.Equal(t, "b", tasks[1].TaskID)
	require.Equal(t, "a", tasks[2].TaskID)
}

func TestStats_CountsByStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "x", "q", models.ModePhased))
	require.NoError(t, store.Create(ctx, "y", "q", models.ModePhased))
	require.NoError(t, store.Update(ctx, "y", statusstore.UpdateInput{Status: models.StatusRunning, Progress: 5}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats[models.StatusPending])
	require.Equal(t, 1, stats[models.StatusRunning])
}

func TestPutResultAndGetResult(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutResult(ctx, "t5", []byte(`{"title":"hi"}`)))

	doc, ok, err := store.GetResult(ctx, "t5")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"title":"hi"}`, string(doc))
}
