package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/statusstore"
)

// mapStoreError maps a Status Store error to an HTTP response, writing it
// directly to c (gin has no HTTPError return-value convention).
func mapStoreError(c *gin.Context, err error) {
	if errors.Is(err, statusstore.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if errors.Is(err, statusstore.ErrInvalidTransition) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	slog.Error("unexpected status store error", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
