package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/agentadapter"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/forum"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/queue"
)

// watchSoftTimeout is the cooperative-stop half of a phase's soft/hard
// timeout pair: the hard timeout still governs ctx's actual deadline,
// but once soft elapses first this logs and leaves a forum trail so an
// operator watching a stuck task can see it ran long before it is
// finally killed. Returns a stop func that must be called once the
// phase itself finishes, to avoid leaking the timer goroutine.
func (e *Engine) watchSoftTimeout(ctx context.Context, taskID, phaseLabel string, soft time.Duration) func() {
	done := make(chan struct{})
	go func() {
		timer := time.NewTimer(soft)
		defer timer.Stop()
		select {
		case <-timer.C:
			slog.WarnContext(ctx, "phase exceeded soft timeout, waiting for hard timeout", "task_id", taskID, "phase", phaseLabel, "soft_timeout", soft)
			_ = e.bb.AppendForum(ctx, taskID, "orchestrator", fmt.Sprintf("%s phase exceeded its soft timeout (%s)", phaseLabel, soft))
		case <-done:
		case <-ctx.Done():
		}
	}()
	return func() { close(done) }
}

// runPlanPhase fans out plan(task_id, query, agent) to all three agents
// and barriers on completion. Returns the set of agents whose Plan
// ultimately failed (after retries + fallback).
func (e *Engine) runPlanPhase(ctx context.Context, taskID, query string) map[models.Agent]bool {
	ctx, cancel := context.WithTimeout(ctx, e.timeouts.Plan.Hard)
	defer cancel()
	defer e.watchSoftTimeout(ctx, taskID, "plan", e.timeouts.Plan.Soft)()

	jobs := make([]queue.Job, 0, len(models.Agents))
	for _, agent := range models.Agents {
		agent := agent
		jobs = append(jobs, queue.Job{
			ID:   string(agent) + ":plan",
			Kind: "agent-phase",
			Run: func(ctx context.Context) error {
				return e.runOnePlan(ctx, taskID, query, agent)
			},
		})
	}

	results := queue.RunGroup(ctx, e.pool, jobs)
	return failedAgents(results)
}

func (e *Engine) runOnePlan(ctx context.Context, taskID, query string, agent models.Agent) error {
	adapter, ok := e.agents[agent]
	if !ok {
		return e.recordPlanFallback(ctx, taskID, agent, fmt.Errorf("no adapter registered for agent %s", agent))
	}

	var payload map[string]any
	err := withRetry(ctx, e.retryBackoff, func(ctx context.Context) error {
		var innerErr error
		payload, innerErr = adapter.Plan(ctx, query, "")
		return innerErr
	})
	if err != nil {
		return e.recordPlanFallback(ctx, taskID, agent, err)
	}

	return e.bb.SetPayload(ctx, taskID, models.AgentPhaseRecord{Agent: agent, Phase: models.PhasePlan, Payload: payload})
}

func (e *Engine) recordPlanFallback(ctx context.Context, taskID string, agent models.Agent, cause error) error {
	_ = e.bb.AppendForum(ctx, taskID, "orchestrator", fmt.Sprintf("%s plan failed, using fallback: %v", agent, cause))
	fallback := agentadapter.FallbackPlan(agent, cause)
	if err := e.bb.SetPayload(ctx, taskID, models.AgentPhaseRecord{Agent: agent, Phase: models.PhasePlan, Payload: fallback, Fallback: true}); err != nil {
		return err
	}
	return cause
}

// runResearchPhase fans out research(task_id, query, agent). Each task
// must read the agent's Plan state_dict; its absence is a missing
// prerequisite, treated the same as an agent phase failure.
func (e *Engine) runResearchPhase(ctx context.Context, taskID, query, guidance string) map[models.Agent]bool {
	ctx, cancel := context.WithTimeout(ctx, e.timeouts.Research.Hard)
	defer cancel()
	defer e.watchSoftTimeout(ctx, taskID, "research", e.timeouts.Research.Soft)()

	jobs := make([]queue.Job, 0, len(models.Agents))
	for _, agent := range models.Agents {
		agent := agent
		jobs = append(jobs, queue.Job{
			ID:   string(agent) + ":research",
			Kind: "agent-phase",
			Run: func(ctx context.Context) error {
				return e.runOneResearch(ctx, taskID, agent, guidance)
			},
		})
	}

	results := queue.RunGroup(ctx, e.pool, jobs)
	return failedAgents(results)
}

func (e *Engine) runOneResearch(ctx context.Context, taskID string, agent models.Agent, guidance string) error {
	planRecord, ok, err := e.bb.GetPayload(ctx, taskID, agent, models.PhasePlan)
	if err != nil {
		return e.recordResearchFallback(ctx, taskID, agent, fmt.Errorf("reading plan payload: %w", err))
	}
	if !ok {
		return e.recordResearchFallback(ctx, taskID, agent, fmt.Errorf("missing plan state_dict (MissingPrerequisite)"))
	}

	adapter, ok := e.agents[agent]
	if !ok {
		return e.recordResearchFallback(ctx, taskID, agent, fmt.Errorf("no adapter registered for agent %s", agent))
	}

	var payload map[string]any
	err = withRetry(ctx, e.retryBackoff, func(ctx context.Context) error {
		var innerErr error
		payload, innerErr = adapter.Research(ctx, planRecord.Payload, guidance)
		return innerErr
	})
	if err != nil {
		return e.recordResearchFallback(ctx, taskID, agent, err)
	}

	return e.bb.SetPayload(ctx, taskID, models.AgentPhaseRecord{Agent: agent, Phase: models.PhaseResearch, Payload: payload})
}

func (e *Engine) recordResearchFallback(ctx context.Context, taskID string, agent models.Agent, cause error) error {
	_ = e.bb.AppendForum(ctx, taskID, "orchestrator", fmt.Sprintf("%s research failed, using fallback: %v", agent, cause))
	fallback := agentadapter.FallbackResearch(agent, cause)
	if err := e.bb.SetPayload(ctx, taskID, models.AgentPhaseRecord{Agent: agent, Phase: models.PhaseResearch, Payload: fallback, Fallback: true}); err != nil {
		return err
	}
	return cause
}

// runSupplementPhase fans out supplement(task_id, query, guidance, agent)
// for the single permitted supplemental round. The refined payload
// overwrites the agent's Research record in place.
func (e *Engine) runSupplementPhase(ctx context.Context, taskID, query, guidance string) {
	ctx, cancel := context.WithTimeout(ctx, e.timeouts.Supplement.Hard)
	defer cancel()
	defer e.watchSoftTimeout(ctx, taskID, "supplement", e.timeouts.Supplement.Soft)()

	jobs := make([]queue.Job, 0, len(models.Agents))
	for _, agent := range models.Agents {
		agent := agent
		jobs = append(jobs, queue.Job{
			ID:   string(agent) + ":supplement",
			Kind: "agent-phase",
			Run: func(ctx context.Context) error {
				return e.runOneSupplement(ctx, taskID, agent, guidance)
			},
		})
	}
	queue.RunGroup(ctx, e.pool, jobs)
}

func (e *Engine) runOneSupplement(ctx context.Context, taskID string, agent models.Agent, guidance string) error {
	researchRecord, ok, err := e.bb.GetPayload(ctx, taskID, agent, models.PhaseResearch)
	if err != nil || !ok {
		// Supplement is best-effort on top of an existing Research record;
		// if that record is itself missing, there is nothing to refine.
		return nil
	}

	adapter, ok := e.agents[agent]
	if !ok {
		return nil
	}

	var payload map[string]any
	err = withRetry(ctx, e.retryBackoff, func(ctx context.Context) error {
		var innerErr error
		payload, innerErr = adapter.Supplement(ctx, researchRecord.Payload, guidance)
		return innerErr
	})
	if err != nil {
		_ = e.bb.AppendForum(ctx, taskID, "orchestrator", fmt.Sprintf("%s supplement failed, keeping prior research: %v", agent, err))
		return err
	}

	return e.bb.SetPayload(ctx, taskID, models.AgentPhaseRecord{Agent: agent, Phase: models.PhaseResearch, Payload: payload})
}

// runReportPhase fans out report(task_id, query, agent). Returns each
// agent's report text and whether every agent failed.
func (e *Engine) runReportPhase(ctx context.Context, taskID, query string) (map[models.Agent]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, e.timeouts.Report.Hard)
	defer cancel()
	defer e.watchSoftTimeout(ctx, taskID, "report", e.timeouts.Report.Soft)()

	jobs := make([]queue.Job, 0, len(models.Agents))
	for _, agent := range models.Agents {
		agent := agent
		jobs = append(jobs, queue.Job{
			ID:   string(agent) + ":report",
			Kind: "report",
			Run: func(ctx context.Context) error {
				return e.runOneReport(ctx, taskID, agent)
			},
		})
	}
	results := queue.RunGroup(ctx, e.reportPool, jobs)
	failures := failedAgents(results)

	reports, err := e.bb.GetAllReports(ctx, taskID)
	if err != nil {
		return nil, len(failures) == len(models.Agents)
	}
	texts := make(map[models.Agent]string, len(reports))
	for agent, rec := range reports {
		texts[agent] = rec.ReportText()
	}
	return texts, len(failures) == len(models.Agents)
}

func (e *Engine) runOneReport(ctx context.Context, taskID string, agent models.Agent) error {
	researchRecord, ok, err := e.bb.GetPayload(ctx, taskID, agent, models.PhaseResearch)
	if err != nil {
		return e.recordReportFallback(ctx, taskID, agent, fmt.Errorf("reading research payload: %w", err))
	}
	if !ok {
		return e.recordReportFallback(ctx, taskID, agent, fmt.Errorf("missing research state_dict (MissingPrerequisite)"))
	}

	adapter, ok := e.agents[agent]
	if !ok {
		return e.recordReportFallback(ctx, taskID, agent, fmt.Errorf("no adapter registered for agent %s", agent))
	}

	var text string
	err = withRetry(ctx, e.retryBackoff, func(ctx context.Context) error {
		var innerErr error
		text, innerErr = adapter.Report(ctx, researchRecord.Payload)
		return innerErr
	})
	if err != nil {
		return e.recordReportFallback(ctx, taskID, agent, err)
	}

	return e.bb.SetPayload(ctx, taskID, models.AgentPhaseRecord{
		Agent: agent, Phase: models.PhaseReport,
		Payload: map[string]any{models.ReportTextKey: text},
	})
}

func (e *Engine) recordReportFallback(ctx context.Context, taskID string, agent models.Agent, cause error) error {
	_ = e.bb.AppendForum(ctx, taskID, "orchestrator", fmt.Sprintf("%s report failed, using fallback: %v", agent, cause))
	text := agentadapter.FallbackReportText(agent, cause)
	if err := e.bb.SetPayload(ctx, taskID, models.AgentPhaseRecord{
		Agent: agent, Phase: models.PhaseReport,
		Payload: map[string]any{models.ReportTextKey: text}, Fallback: true,
	}); err != nil {
		return err
	}
	return cause
}

// finalize renders the final document from the collected report texts
// and, on success, stores it in both the Status Store and the Query
// Cache so a later identical/similar query short-circuits.
func (e *Engine) finalize(ctx context.Context, taskID, query string, reportTexts map[models.Agent]string) {
	log := slog.With("task_id", taskID)

	entries, err := e.bb.GetForumLog(ctx, taskID)
	if err != nil {
		log.Warn("failed to read forum log for summary, proceeding without one", "error", err)
	}
	summary := forum.Summarize(entries, forum.SummaryCharBudget)

	doc, err := e.renderer.Render(query, reportTexts, summary)
	if err != nil {
		e.fail(ctx, taskID, fmt.Sprintf("render failed: %v", err))
		return
	}

	jsonDoc, err := doc.ToJSON()
	if err != nil {
		e.fail(ctx, taskID, fmt.Sprintf("render failed: marshaling document: %v", err))
		return
	}

	if err := e.status.PutResult(ctx, taskID, jsonDoc); err != nil {
		e.fail(ctx, taskID, fmt.Sprintf("failed to store rendered result: %v", err))
		return
	}
	if err := e.cache.Write(ctx, query, jsonDoc); err != nil {
		log.Warn("failed to write query cache entry", "error", err)
	}

	e.advance(ctx, taskID, models.StatusCompleted, 100, "")
}

func failedAgents(results []queue.Result) map[models.Agent]bool {
	out := make(map[models.Agent]bool)
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		// Job IDs are "<agent>:<phase>".
		for _, agent := range models.Agents {
			if len(r.JobID) > len(agent) && r.JobID[:len(agent)] == string(agent) {
				out[agent] = true
			}
		}
	}
	return out
}
