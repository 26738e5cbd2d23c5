// Package agentadapter implements the Agent Adapter: a thin, uniform
// façade over the three agent kinds (query, media, insight), each
// exposing plan/research/supplement/report. This capability is treated
// as external and swappable, so the implementation here is a
// deterministic stand-in grounded on tarsy's sub-agent dispatch shape
// (pkg/agent's per-type Execute contract) — one Adapter interface, one
// concrete implementation per agent kind, each producing an opaque
// state_dict payload the core never parses.
package agentadapter

import (
	"context"
	"fmt"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
)

// Adapter is the uniform capability shape every agent kind exposes.
// Every method is idempotent with respect to the Blackboard: a caller
// may retry up to two attempts with >=60s backoff on a transient error without
// double-effecting shared state, because the adapter itself holds no
// state — it only returns a payload for the Workflow Engine to write.
type Adapter interface {
	Plan(ctx context.Context, query, guidance string) (map[string]any, error)
	Research(ctx context.Context, planPayload map[string]any, guidance string) (map[string]any, error)
	Supplement(ctx context.Context, researchPayload map[string]any, guidance string) (map[string]any, error)
	Report(ctx context.Context, researchPayload map[string]any) (string, error)
}

// Registry resolves an Adapter by agent kind.
type Registry map[models.Agent]Adapter

// NewDefaultRegistry builds the standard three-agent registry used in
// production: one stub Adapter per agent kind, differentiated only by
// the vocabulary of their synthesized payloads — the adapter is treated
// as an opaque external capability, so what matters to the core is the
// shape of its output, not the content.
func NewDefaultRegistry() Registry {
	return Registry{
		models.AgentQuery:   newStubAdapter(models.AgentQuery),
		models.AgentMedia:   newStubAdapter(models.AgentMedia),
		models.AgentInsight: newStubAdapter(models.AgentInsight),
	}
}

// FallbackPlan synthesizes the minimal plan payload written when an
// agent's Plan phase fails after exhausting retries. It is intentionally
// minimal: enough state_dict for the Research phase to proceed.
func FallbackPlan(agent models.Agent, cause error) map[string]any {
	return map[string]any{
		models.StateDictKey: fmt.Sprintf("fallback plan for %s: %v", agent, cause),
		"fallback":          true,
	}
}

// FallbackResearch synthesizes the stub research note written when an
// agent's Research phase fails.
func FallbackResearch(agent models.Agent, cause error) map[string]any {
	return map[string]any{
		models.StateDictKey: fmt.Sprintf("fallback research note for %s: %v", agent, cause),
		"fallback":          true,
	}
}

// FallbackReportText synthesizes the stub report text carrying the error
// message when an agent's Report phase fails.
func FallbackReportText(agent models.Agent, cause error) string {
	return fmt.Sprintf("[%s] report unavailable due to error: %v", agent, cause)
}
