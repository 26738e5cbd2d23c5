package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
)

// submitAnalysisHandler handles POST /api/v1/analyze. It creates the task
// record synchronously and returns immediately with task_id; the pipeline
// itself runs in the background via the Workflow Engine.
func (s *Server) submitAnalysisHandler(c *gin.Context) {
	var req SubmitAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Query) > models.MaxQueryLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query exceeds maximum length"})
		return
	}

	mode := models.ModePhased
	switch req.mode() {
	case "", string(models.ModePhased):
		// default
	case string(models.ModeStandard):
		mode = models.ModeStandard
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be \"phased\" or \"standard\""})
		return
	}

	taskID, err := uuid.NewV7()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate task id"})
		return
	}
	if err := s.status.Create(c.Request.Context(), taskID.String(), req.Query, mode); err != nil {
		mapStoreError(c, err)
		return
	}
	// Submit outlives this request: the HTTP request context is cancelled
	// the moment this handler returns, so the pipeline gets its own root
	// context rather than inheriting one tied to the response lifecycle.
	go s.engineSvc.Submit(context.Background(), taskID.String(), req.Query, mode)

	c.JSON(http.StatusAccepted, SubmitAnalysisResponse{
		Success: true,
		TaskID:  taskID.String(),
		Status:  string(models.StatusPending),
		Mode:    string(mode),
		PollURL: "/api/v1/task/" + taskID.String() + "/progress",
	})
}
