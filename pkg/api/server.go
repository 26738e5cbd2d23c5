// Package api implements the Submission API: the HTTP surface
// through which a caller submits a query, polls status/progress, and
// retrieves the rendered result. Grounded on tarsy's earlier gin-based
// cmd/tarsy/pkg/api handlers.go (Server struct wrapping *gin.Engine,
// one handler method per route, gin.H for ad-hoc JSON) rather than the
// newer echo-based rewrite elsewhere in that repo.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/blackboard"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/config"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/queue"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/redisstore"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/statusstore"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/workflow"
)

// Server is the HTTP API server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	cfg        config.HTTPConfig
	status     *statusstore.Store
	bb         *blackboard.Blackboard
	engineSvc  *workflow.Engine
	pool       *queue.Pool
	rdb        *redisstore.Client
}

// NewServer builds a Server and registers its routes.
func NewServer(cfg config.HTTPConfig, status *statusstore.Store, bb *blackboard.Blackboard, eng *workflow.Engine, pool *queue.Pool, rdb *redisstore.Client) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	s := &Server{engine: router, cfg: cfg, status: status, bb: bb, engineSvc: eng, pool: pool, rdb: rdb}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)

	v1 := s.engine.Group("/api/v1")
	v1.POST("/analyze", s.submitAnalysisHandler)
	v1.GET("/tasks", s.listTasksHandler)
	v1.GET("/task/:id", s.getTaskHandler)
	v1.GET("/task/:id/progress", s.getProgressHandler)
	v1.GET("/task/:id/result", s.getResultHandler)
	v1.GET("/task/:id/phases", s.getPhasesHandler)
}

// Start runs the HTTP server on cfg.Addr (blocking).
func (s *Server) Start() error {
	s.httpServer = &http.Server{Addr: s.cfg.Addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx := c.Request.Context()
	resp := HealthResponse{Status: "healthy"}
	if s.pool != nil {
		resp.Queue = s.pool.Health()
	}

	stats, err := s.status.Stats(ctx)
	resp.TaskStats = statsOrEmpty(stats, err)

	if s.rdb != nil {
		if health, err := s.rdb.Health(ctx); health != nil {
			resp.Redis = &redisHealthResponse{Status: health.Status, ResponseTime: health.ResponseTime.String()}
			if err != nil {
				resp.Status = "degraded"
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}
