package judge

import (
	"fmt"
	"strings"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
)

const reviewSystemPrompt = `You are the orchestrator judge for a multi-agent research pipeline. You review the work of three independent research agents (query, media, insight) after a phase completes and decide whether the pipeline should proceed.

Respond with EXACTLY two lines, in this order:
DECISION: <value>
GUIDANCE: <free text, optional>

Do not write anything else.`

func formatAgentPayloads(records map[models.Agent]*models.AgentPhaseRecord) string {
	var sb strings.Builder
	for _, agent := range models.Agents {
		rec, ok := records[agent]
		if !ok {
			sb.WriteString(fmt.Sprintf("- %s: (no submission)\n", agent))
			continue
		}
		text := rec.ReportText()
		if text == "" {
			text = "(empty)"
		}
		if rec.Fallback {
			sb.WriteString(fmt.Sprintf("- %s [fallback]: %s\n", agent, text))
		} else {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", agent, text))
		}
	}
	return sb.String()
}

// buildPlanReviewPrompt formats the review prompt for judge_plan. Valid
// decisions at this phase are APPROVE or REVISE.
func buildPlanReviewPrompt(query string, plans map[models.Agent]*models.AgentPhaseRecord) string {
	return fmt.Sprintf(
		"Query under analysis: %s\n\nPhase: plan\nValid decisions: APPROVE, REVISE\n\nAgent plans:\n%s",
		query, formatAgentPayloads(plans),
	)
}

// buildResearchReviewPrompt formats the review prompt for judge_research.
// Valid decisions at this phase are APPROVE or SUPPLEMENT.
func buildResearchReviewPrompt(query string, research map[models.Agent]*models.AgentPhaseRecord, round int) string {
	return fmt.Sprintf(
		"Query under analysis: %s\n\nPhase: research (supplement round %d)\nValid decisions: APPROVE, SUPPLEMENT\n\nAgent research findings:\n%s",
		query, round, formatAgentPayloads(research),
	)
}
