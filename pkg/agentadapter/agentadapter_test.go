package agentadapter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/agentadapter"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
)

func TestDefaultRegistry_HasAllThreeAgents(t *testing.T) {
	registry := agentadapter.NewDefaultRegistry()
	for _, agent := range models.Agents {
		require.Contains(t, registry, agent)
	}
}

func TestStubAdapter_PlanResearchReportChain(t *testing.T) {
	ctx := context.Background()
	registry := agentadapter.NewDefaultRegistry()
	adapter := registry[models.AgentQuery]

	plan, err := adapter.Plan(ctx, "analyze EV market 2025", "")
	require.NoError(t, err)
	require.NotEmpty(t, plan[models.StateDictKey])

	research, err := adapter.Research(ctx, plan, "focus on batteries")
	require.NoError(t, err)
	require.Contains(t, research[models.StateDictKey], "focus on batteries")

	report, err := adapter.Report(ctx, research)
	require.NoError(t, err)
	require.NotEmpty(t, report)
}

func TestStubAdapter_Supplement(t *testing.T) {
	ctx := context.Background()
	registry := agentadapter.NewDefaultRegistry()
	adapter := registry[models.AgentMedia]

	research := map[string]any{models.StateDictKey: "initial findings"}
	supplemented, err := adapter.Supplement(ctx, research, "dig deeper on costs")
	require.NoError(t, err)
	require.Equal(t, true, supplemented["supplemented"])
	require.Contains(t, supplemented[models.StateDictKey], "dig deeper on costs")
}

func TestFallbackPayloads(t *testing.T) {
	cause := errors.New("timeout")

	plan := agentadapter.FallbackPlan(models.AgentInsight, cause)
	require.Equal(t, true, plan["fallback"])
	require.Contains(t, plan[models.StateDictKey], "timeout")

	research := agentadapter.FallbackResearch(models.AgentInsight, cause)
	require.Equal(t, true, research["fallback"])

	text := agentadapter.FallbackReportText(models.AgentInsight, cause)
	require.Contains(t, text, "timeout")
}
