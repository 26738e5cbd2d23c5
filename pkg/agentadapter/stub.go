package agentadapter

import (
	"context"
	"fmt"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
)

// stubAdapter is a deterministic, network-free Adapter implementation.
// It stands in for the real per-agent LLM/tool capability: the core
// never inspects state_dict contents, so a stub that always
// produces a well-formed payload exercises the full Workflow Engine
// without requiring a live agent backend.
type stubAdapter struct {
	agent models.Agent
}

func newStubAdapter(agent models.Agent) *stubAdapter {
	return &stubAdapter{agent: agent}
}

func (a *stubAdapter) Plan(ctx context.Context, query, guidance string) (map[string]any, error) {
	note := fmt.Sprintf("%s plan for %q", a.agent, query)
	if guidance != "" {
		note += fmt.Sprintf(" (guidance: %s)", guidance)
	}
	return map[string]any{
		models.StateDictKey: note,
		"paragraph_count":   3,
	}, nil
}

func (a *stubAdapter) Research(ctx context.Context, planPayload map[string]any, guidance string) (map[string]any, error) {
	planState, _ := planPayload[models.StateDictKey].(string)
	note := fmt.Sprintf("%s research grounded on plan: %s", a.agent, planState)
	if guidance != "" {
		note += fmt.Sprintf(" (guidance: %s)", guidance)
	}
	return map[string]any{
		models.StateDictKey: note,
		"source":            string(a.agent),
	}, nil
}

func (a *stubAdapter) Supplement(ctx context.Context, researchPayload map[string]any, guidance string) (map[string]any, error) {
	researchState, _ := researchPayload[models.StateDictKey].(string)
	note := fmt.Sprintf("%s supplemented research (%s) with guidance: %s", a.agent, researchState, guidance)
	return map[string]any{
		models.StateDictKey: note,
		"source":            string(a.agent),
		"supplemented":      true,
	}, nil
}

func (a *stubAdapter) Report(ctx context.Context, researchPayload map[string]any) (string, error) {
	researchState, _ := researchPayload[models.StateDictKey].(string)
	return fmt.Sprintf("%s report: %s", a.agent, researchState), nil
}
