package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/forum"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
)

// getPhasesHandler handles GET /api/v1/task/:id/phases: the full
// diagnostic snapshot of one task's Blackboard state — each agent's
// current phase marker, its recorded payload for every phase, the
// guidance issued for the plan/research phases, the supplement round,
// and the forum log rendered as text.
func (s *Server) getPhasesHandler(c *gin.Context) {
	ctx := c.Request.Context()
	taskID := c.Param("id")

	phases, err := s.bb.GetAllPhases(ctx, taskID)
	if err != nil {
		mapStoreError(c, err)
		return
	}

	plans, err := s.bb.GetAllPlans(ctx, taskID)
	if err != nil {
		mapStoreError(c, err)
		return
	}
	research, err := s.bb.GetAllResearch(ctx, taskID)
	if err != nil {
		mapStoreError(c, err)
		return
	}
	reports, err := s.bb.GetAllReports(ctx, taskID)
	if err != nil {
		mapStoreError(c, err)
		return
	}

	planGuidance, _, err := s.bb.GetGuidance(ctx, taskID, models.PhasePlan)
	if err != nil {
		mapStoreError(c, err)
		return
	}
	researchGuidance, _, err := s.bb.GetGuidance(ctx, taskID, models.PhaseResearch)
	if err != nil {
		mapStoreError(c, err)
		return
	}

	round, err := s.bb.GetRound(ctx, taskID)
	if err != nil {
		mapStoreError(c, err)
		return
	}

	entries, err := s.bb.GetForumLog(ctx, taskID)
	if err != nil {
		mapStoreError(c, err)
		return
	}

	agents := make([]PhaseMarkerResponse, 0, len(models.Agents))
	for _, agent := range models.Agents {
		agents = append(agents, PhaseMarkerResponse{Agent: string(agent), Phase: string(phases[agent])})
	}

	c.JSON(http.StatusOK, PhasesResponse{
		TaskID:           taskID,
		Agents:           agents,
		Plans:            toAgentPhasePayloads(plans),
		Research:         toAgentPhasePayloads(research),
		Reports:          toAgentPhasePayloads(reports),
		PlanGuidance:     planGuidance,
		ResearchGuidance: researchGuidance,
		SupplementRound:  round,
		ForumLog:         forum.RenderText(entries),
	})
}
