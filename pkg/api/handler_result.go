package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/render"
)

// getResultHandler handles GET /api/v1/task/:id/result?format=json|html|md.
// Returns 400 if the task has not completed yet and 501 for formats this
// renderer does not support (pdf).
func (s *Server) getResultHandler(c *gin.Context) {
	taskID := c.Param("id")

	task, err := s.status.Get(c.Request.Context(), taskID)
	if err != nil {
		mapStoreError(c, err)
		return
	}
	if task.Status != models.StatusCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task has not completed successfully"})
		return
	}

	raw, hit, err := s.status.GetResult(c.Request.Context(), taskID)
	if err != nil {
		mapStoreError(c, err)
		return
	}
	if !hit {
		c.JSON(http.StatusNotFound, gin.H{"error": "result expired or not found"})
		return
	}

	format := c.DefaultQuery("format", "json")
	switch format {
	case "json":
		c.Data(http.StatusOK, "application/json", raw)
	case "md", "html":
		var doc render.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "stored result is malformed"})
			return
		}
		if format == "md" {
			c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(doc.ToMarkdown()))
		} else {
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc.ToHTML()))
		}
	case "pdf":
		c.JSON(http.StatusNotImplemented, gin.H{"error": "pdf output is not implemented"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json, html, md, or pdf"})
	}
}
