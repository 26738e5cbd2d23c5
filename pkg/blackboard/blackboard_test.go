package blackboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/blackboard"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/redisstore"
)

func newTestBlackboard(t *testing.T) *blackboard.Blackboard {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return blackboard.New(redisstore.NewFromRedisClient(rdb), 7*24*time.Hour)
}

func TestPayloadRoundTrip(t *testing.T) {
	bb := newTestBlackboard(t)
	ctx := context.Background()

	rec := models.AgentPhaseRecord{
		Agent: models.AgentQuery,
		Phase: models.PhasePlan,
		Payload: map[string]any{
			models.StateDictKey: "opaque-resume-token",
			"paragraph_count":   float64(4),
		},
	}
	require.NoError(t, bb.SetPayload(ctx, "task-1", rec))

	got, ok, err := bb.GetPayload(ctx, "task-1", models.AgentQuery, models.PhasePlan)
	require.NoError(t, err)
	require.True(t, ok)
	sd, ok := got.StateDict()
	require.True(t, ok)
	require.Equal(t, "opaque-resume-token", sd)

	phase, ok, err := bb.GetPhase(ctx, "task-1", models.AgentQuery)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, models.PhasePlan, phase)
}

func TestGetPayload_AbsentReturnsNotOk(t *testing.T) {
	bb := newTestBlackboard(t)
	rec, ok, err := bb.GetPayload(context.Background(), "missing-task", models.AgentMedia, models.PhaseResearch)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, rec)
}

func TestGetAllPlans_TolerateMissingAgents(t *testing.T) {
	bb := newTestBlackboard(t)
	ctx := context.Background()

	require.NoError(t, bb.SetPayload(ctx, "task-2", models.AgentPhaseRecord{
		Agent: models.AgentQuery, Phase: models.PhasePlan,
		Payload: map[string]any{models.StateDictKey: "q"},
	}))
	require.NoError(t, bb.SetPayload(ctx, "task-2", models.AgentPhaseRecord{
		Agent: models.AgentInsight, Phase: models.PhasePlan,
		Payload: map[string]any{models.StateDictKey: "i"},
	}))

	plans, err := bb.GetAllPlans(ctx, "task-2")
	require.NoError(t, err)
	require.Len(t, plans, 2)
	require.Contains(t, plans, models.AgentQuery)
	require.Contains(t, plans, models.AgentInsight)
	require.NotContains(t, plans, models.AgentMedia)
}

func TestSupplementRound_IncrementsAndCaps(t *testing.T) {
	bb := newTestBlackboard(t)
	ctx := context.Background()

	n, err := bb.GetRound(ctx, "task-3")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	n, err = bb.IncrementRound(ctx, "task-3")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = bb.GetRound(ctx, "task-3")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestForumLog_AppendAndRead(t *testing.T) {
	bb := newTestBlackboard(t)
	ctx := context.Background()

	require.NoError(t, bb.AppendForum(ctx, "task-4", "orchestrator", "reviewing plan phase"))
	require.NoError(t, bb.AppendForum(ctx, "task-4", "query", "plan submitted"))

	log, err := bb.GetForumLog(ctx, "task-4")
	require.NoError(t, err)
	require.Len(t, log, 2)
	require.Equal(t, "orchestrator", log[0].Speaker)
	require.Equal(t, "query", log[1].Speaker)
}

func TestGuidance_RoundTrip(t *testing.T) {
	bb := newTestBlackboard(t)
	ctx := context.Background()

	_, ok, err := bb.GetGuidance(ctx, "task-5", models.PhaseResearch)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, bb.SetGuidance(ctx, "task-5", models.PhaseResearch, "dig deeper into Q3 numbers"))
	text, ok, err := bb.GetGuidance(ctx, "task-5", models.PhaseResearch)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "dig deeper into Q3 numbers", text)
}
