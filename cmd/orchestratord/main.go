// Command orchestratord runs the Analysis Orchestration Core: the
// Submission API backed by the Workflow Engine, Blackboard, Status
// Store, Query Cache, and Orchestrator Judge.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/agentadapter"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/api"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/blackboard"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/cache"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/config"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/judge"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/queue"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/redisstore"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/render"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/statusstore"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/workflow"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("CONFIG_PATH", "./deploy/config/orchestratord.yaml"), "Path to configuration file")
	flag.Parse()

	envPath := filepath.Join(filepath.Dir(*configPath), ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("no .env file loaded from %s: %v", envPath, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := redisstore.New(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	bb := blackboard.New(rdb, cfg.Timeout.TaskTTL)
	status := statusstore.New(rdb, cfg.Timeout.TaskTTL, cfg.Timeout.ResultTTL)
	queryCache := cache.New(rdb, cfg.Cache.TTL, cfg.Cache.SimilarityThreshold, cfg.Cache.MaxScanCandidates)

	apiKey := os.Getenv(cfg.Judge.APIKeyEnv)
	orchestratorJudge := judge.New(bb, apiKey, cfg.Judge)

	agents := agentadapter.NewDefaultRegistry()
	renderer := render.New()

	pool := queue.New(cfg.Queue)
	pool.Start(ctx)

	reportQueueCfg := cfg.Queue
	reportQueueCfg.WorkerCount = cfg.Queue.ReportWorkerCount
	reportPool := queue.New(reportQueueCfg)
	reportPool.Start(ctx)

	engine := workflow.New(bb, status, queryCache, orchestratorJudge, agents, renderer, pool, reportPool, cfg.Timeout)

	server := api.NewServer(cfg.HTTP, status, bb, engine, pool, rdb)

	go runTTLSweep(ctx, status)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("orchestratord listening", "addr", cfg.HTTP.Addr)
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			slog.Error("http server exited unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during http server shutdown", "error", err)
	}
	pool.Stop()
	reportPool.Stop()
}

// runTTLSweep periodically prunes task index entries whose underlying
// records have already expired, defense-in-depth beside Redis's own
// per-key expiry.
func runTTLSweep(ctx context.Context, status *statusstore.Store) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := status.PruneExpired(ctx)
			if err != nil {
				slog.Error("ttl sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("ttl sweep pruned expired task index entries", "count", n)
			}
		}
	}
}
