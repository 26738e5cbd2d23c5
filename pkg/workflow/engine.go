// Package workflow implements the Workflow Engine: the deterministic
// state machine that drives submit → Plan → Judge Plan → Research →
// Judge Research → [Supplement] → Report → Finalize. It is grounded on
// tarsy's queue.Worker/WorkerPool shape for the fan-out mechanics
// (pkg/queue.RunGroup is this package's barrier).
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/agentadapter"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/blackboard"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/cache"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/config"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/forum"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/judge"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/queue"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/render"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/statusstore"
)

// defaultRetryBackoff is the production floor between transient
// retries. Exposed as a field, not a constant, so tests can shorten it.
const defaultRetryBackoff = 60 * time.Second

// Engine is the Workflow Engine.
type Engine struct {
	bb       *blackboard.Blackboard
	status   *statusstore.Store
	cache    *cache.Cache
	judge    *judge.Judge
	agents   agentadapter.Registry
	renderer render.Renderer
	pool     *queue.Pool
	// reportPool is a separate, usually smaller Pool dedicated to
	// report-kind phase-tasks, so a slow report run never starves the
	// plan/research/supplement fan-outs sharing pool. Falls back to pool
	// when callers (tests) don't wire one up.
	reportPool *queue.Pool
	timeouts   config.TimeoutConfig

	retryBackoff time.Duration
}

// New constructs a Workflow Engine from its fully-wired dependencies.
// reportPool may be nil, in which case report jobs run on pool like
// everything else.
func New(
	bb *blackboard.Blackboard,
	status *statusstore.Store,
	c *cache.Cache,
	j *judge.Judge,
	agents agentadapter.Registry,
	renderer render.Renderer,
	pool *queue.Pool,
	reportPool *queue.Pool,
	timeouts config.TimeoutConfig,
) *Engine {
	if reportPool == nil {
		reportPool = pool
	}
	return &Engine{
		bb:           bb,
		status:       status,
		cache:        c,
		judge:        j,
		agents:       agents,
		renderer:     renderer,
		pool:         pool,
		reportPool:   reportPool,
		timeouts:     timeouts,
		retryBackoff: defaultRetryBackoff,
	}
}

// WithRetryBackoff overrides the transient-retry backoff (tests only —
// production always uses the 60-second floor).
func (e *Engine) WithRetryBackoff(d time.Duration) *Engine {
	e.retryBackoff = d
	return e
}

// Submit runs the full pipeline for one task to completion. It is meant
// to be launched in its own goroutine by the Submission API handler;
// Status Store reads/writes are how callers observe progress.
func (e *Engine) Submit(ctx context.Context, taskID, query string, mode models.Mode) {
	log := slog.With("task_id", taskID)

	if err := e.status.Create(ctx, taskID, query, mode); err != nil {
		log.Error("failed to create task record", "error", err)
		return
	}

	// Step 1: cache short-circuit.
	if doc, hit, err := e.cache.Lookup(ctx, query); err != nil {
		log.Warn("cache lookup failed, proceeding without it", "error", err)
	} else if hit {
		if err := e.status.PutResult(ctx, taskID, doc); err != nil {
			log.Error("failed to store cached result", "error", err)
			e.fail(ctx, taskID, fmt.Sprintf("cache hit but failed to store result: %v", err))
			return
		}
		e.advance(ctx, taskID, models.StatusCompleted, 100, "")
		return
	}

	e.advance(ctx, taskID, models.StatusRunning, 5, "")
	e.bb.AppendForum(ctx, taskID, "orchestrator", "task started")

	// Step 2: Phase 1 — Plan.
	e.advance(ctx, taskID, models.StatusPhase1Plan, 20, "")
	planFailures := e.runPlanPhase(ctx, taskID, query)

	standard := mode == models.ModeStandard

	// Step 3: Judge Plan. Standard mode bypasses Judge review entirely.
	// In phased mode, whatever the decision, the pipeline advances — plan
	// rework is left for a future replan feature — but guidance, if any,
	// is already persisted by the Judge against that day.
	if !standard {
		e.advance(ctx, taskID, models.StatusOrchestratingPlan, 35, "")
		e.runJudgePlan(ctx, taskID, query)
	}

	// Step 4: Phase 2 — Research.
	e.advance(ctx, taskID, models.StatusPhase2Research, 40, "")
	researchGuidance, _, _ := e.bb.GetGuidance(ctx, taskID, models.PhaseResearch)
	researchFailures := e.runResearchPhase(ctx, taskID, query, researchGuidance)

	if len(planFailures) == len(models.Agents) && len(researchFailures) == len(models.Agents) {
		e.fail(ctx, taskID, "all agents failed plan and research phases")
		return
	}

	// Step 5: Judge Research (phased mode only).
	if !standard {
		e.advance(ctx, taskID, models.StatusOrchestratingResearch, 65, "")
		round, _ := e.bb.GetRound(ctx, taskID)
		researchDecision := e.runJudgeResearch(ctx, taskID, query, round)

		if researchDecision.Decision == judge.DecisionSupplement {
			// Write guidance, then increment round, then fan out, in that
			// order, so a crash between steps never leaves the round counter
			// ahead of the guidance it's meant to gate.
			if researchDecision.Guidance != "" {
				_ = e.bb.SetGuidance(ctx, taskID, models.PhaseResearch, researchDecision.Guidance)
			}
			if _, err := e.bb.IncrementRound(ctx, taskID); err != nil {
				log.Error("failed to increment supplement round", "error", err)
			}
			e.advance(ctx, taskID, models.StatusPhase2Supplement, 70, "")
			e.runSupplementPhase(ctx, taskID, query, researchDecision.Guidance)
		}
	}

	// Step 6: Phase 3 — Report.
	e.advance(ctx, taskID, models.StatusPhase3Report, 75, "")
	reportTexts, allReportsFailed := e.runReportPhase(ctx, taskID, query)
	if allReportsFailed {
		e.fail(ctx, taskID, "all agents failed the report phase")
		return
	}

	// Step 7: Finalize.
	e.advance(ctx, taskID, models.StatusGeneratingFinalReport, 85, "")
	e.finalize(ctx, taskID, query, reportTexts)
}

// runJudgePlan bounds the Judge Plan review by the orchestrate phase's
// soft/hard timeout pair, the same cooperative-stop shape the agent
// phases use.
func (e *Engine) runJudgePlan(ctx context.Context, taskID, query string) judge.Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeouts.Orchestrate.Hard)
	defer cancel()
	defer e.watchSoftTimeout(ctx, taskID, "orchestrate_plan", e.timeouts.Orchestrate.Soft)()
	return e.judge.JudgePlan(ctx, taskID, query)
}

// runJudgeResearch is runJudgePlan's counterpart for Judge Research.
func (e *Engine) runJudgeResearch(ctx context.Context, taskID, query string, round int) judge.Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeouts.Orchestrate.Hard)
	defer cancel()
	defer e.watchSoftTimeout(ctx, taskID, "orchestrate_research", e.timeouts.Orchestrate.Soft)()
	return e.judge.JudgeResearch(ctx, taskID, query, round)
}

func (e *Engine) advance(ctx context.Context, taskID string, status models.Status, progress int, errMsg string) {
	if err := e.status.Update(ctx, taskID, statusstore.UpdateInput{Status: status, Progress: progress, Error: errMsg}); err != nil {
		slog.Error("status transition rejected", "task_id", taskID, "status", status, "error", err)
	}
}

func (e *Engine) fail(ctx context.Context, taskID, reason string) {
	_ = e.bb.AppendForum(ctx, taskID, "orchestrator", "task failed: "+reason)
	e.advance(ctx, taskID, models.StatusFailed, 100, reason)
}
