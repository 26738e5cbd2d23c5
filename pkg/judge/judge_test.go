package judge_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/blackboard"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/judge"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/redisstore"
)

type stubClient struct {
	model string
	reply string
	err   error
}

func (s *stubClient) Model() string { return s.model }
func (s *stubClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.reply, s.err
}

func newTestBlackboard(t *testing.T) *blackboard.Blackboard {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return blackboard.New(redisstore.NewFromRedisClient(rdb), 7*24*time.Hour)
}

func TestJudgePlan_ApprovePersistsNoGuidance(t *testing.T) {
	bb := newTestBlackboard(t)
	ctx := context.Background()
	j := judge.NewWithClients(bb, &stubClient{model: "m", reply: "DECISION: APPROVE\nGUIDANCE:\n"}, nil, time.Second)

	result := j.JudgePlan(ctx, "t1", "analyze EV market")
	require.Equal(t, judge.DecisionApprove, result.Decision)
	require.Empty(t, result.Guidance)

	_, ok, err := bb.GetGuidance(ctx, "t1", models.PhasePlan)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestJudgePlan_ReviseStillPersistsGuidanceButCallerMustAdvance(t *testing.T) {
	bb := newTestBlackboard(t)
	ctx := context.Background()
	j := judge.NewWithClients(bb, &stubClient{model: "m", reply: "DECISION: REVISE\nGUIDANCE: tighten scope to battery supply chain"}, nil, time.Second)

	result := j.JudgePlan(ctx, "t2", "analyze EV market")
	require.Equal(t, judge.DecisionRevise, result.Decision)
	require.Equal(t, "tighten scope to battery supply chain", result.Guidance)

	guidance, ok, err := bb.GetGuidance(ctx, "t2", models.PhasePlan)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tighten scope to battery supply chain", guidance)
}

func TestJudgePlan_LLMFailureDegradesToApprove(t *testing.T) {
	bb := newTestBlackboard(t)
	ctx := context.Background()
	j := judge.NewWithClients(bb, &stubClient{model: "m", err: fmt.Errorf("connection refused")}, nil, time.Second)

	result := j.JudgePlan(ctx, "t3", "analyze EV market")
	require.Equal(t, judge.DecisionApprove, result.Decision)
	require.Empty(t, result.Guidance)

	entries, err := bb.GetForumLog(ctx, "t3")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Content, "defaulting to approve")
}

func TestJudgePlan_UnparseableReplyDegradesToApprove(t *testing.T) {
	bb := newTestBlackboard(t)
	ctx := context.Background()
	j := judge.NewWithClients(bb, &stubClient{model: "m", reply: "I refuse to answer in the expected format"}, nil, time.Second)

	result := j.JudgePlan(ctx, "t4", "analyze EV market")
	require.Equal(t, judge.DecisionApprove, result.Decision)
}

func TestJudgeResearch_SupplementAllowedAtRoundZero(t *testing.T) {
	bb := newTestBlackboard(t)
	ctx := context.Background()
	j := judge.NewWithClients(bb, &stubClient{model: "m", reply: "DECISION: SUPPLEMENT\nGUIDANCE: dig deeper on battery costs"}, nil, time.Second)

	result := j.JudgeResearch(ctx, "t5", "analyze EV market", 0)
	require.Equal(t, judge.DecisionSupplement, result.Decision)
	require.Equal(t, "dig deeper on battery costs", result.Guidance)
}

func TestJudgeResearch_SupplementCappedAtRoundOne(t *testing.T) {
	bb := newTestBlackboard(t)
	ctx := context.Background()
	j := judge.NewWithClients(bb, &stubClient{model: "m", reply: "DECISION: SUPPLEMENT\nGUIDANCE: dig deeper again"}, nil, time.Second)

	result := j.JudgeResearch(ctx, "t6", "analyze EV market", 1)
	require.Equal(t, judge.DecisionApprove, result.Decision, "round >= 1 must silently downgrade SUPPLEMENT to APPROVE")
}
