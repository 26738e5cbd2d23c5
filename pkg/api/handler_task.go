package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// getTaskHandler handles GET /api/v1/task/:id.
func (s *Server) getTaskHandler(c *gin.Context) {
	taskID := c.Param("id")
	task, err := s.status.Get(c.Request.Context(), taskID)
	if err != nil {
		mapStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

// getProgressHandler handles GET /api/v1/task/:id/progress — a lighter
// poll-friendly view than the full task record, broken down per agent
// via their current Blackboard phase markers.
func (s *Server) getProgressHandler(c *gin.Context) {
	taskID := c.Param("id")
	task, err := s.status.Get(c.Request.Context(), taskID)
	if err != nil {
		mapStoreError(c, err)
		return
	}
	phases, err := s.bb.GetAllPhases(c.Request.Context(), taskID)
	if err != nil {
		mapStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProgressResponse(task, phases))
}

// listTasksHandler handles GET /api/v1/tasks?limit=&offset=.
func (s *Server) listTasksHandler(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	offset := 0
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	tasks, err := s.status.List(c.Request.Context(), limit, offset)
	if err != nil {
		mapStoreError(c, err)
		return
	}

	out := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		out[i] = toTaskResponse(t)
	}

	stats, err := s.status.Stats(c.Request.Context())
	c.JSON(http.StatusOK, ListTasksResponse{Tasks: out, Limit: limit, Offset: offset, Stats: statsOrEmpty(stats, err)})
}
