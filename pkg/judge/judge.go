// Package judge implements the Orchestrator Judge: the LLM-backed
// reviewer invoked by the Workflow Engine after Plan and after
// Research. A bounded request timeout and a "disable Judge, auto-approve"
// failure posture are mandatory here rather than optional, with the
// LLM client itself adapted from the Anthropic client pattern elsewhere
// in the example corpus and wrapped with a sony/gobreaker circuit
// breaker the way jordigilh-kubernaut guards its own LLM calls.
package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/blackboard"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/config"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
)

// Judge is the Orchestrator Judge.
type Judge struct {
	bb       *blackboard.Blackboard
	primary  LLMClient
	fallback LLMClient
	timeout  time.Duration
}

// New constructs a Judge backed by the Anthropic API, wrapping the
// primary model in a circuit breaker per cfg. apiKey is read by the
// caller from the environment variable named by cfg.APIKeyEnv.
func New(bb *blackboard.Blackboard, apiKey string, cfg config.JudgeConfig) *Judge {
	primary := newBreakerClient(newAnthropicClient(apiKey, cfg.Model, cfg.MaxOutputChars), cfg)
	var fallback LLMClient
	if cfg.FallbackModel != "" {
		fallback = newAnthropicClient(apiKey, cfg.FallbackModel, cfg.MaxOutputChars)
	}
	return &Judge{bb: bb, primary: primary, fallback: fallback, timeout: cfg.RequestTimeout}
}

// NewWithClients builds a Judge directly over explicit LLMClients,
// bypassing provider construction. Used by tests and by callers that
// want to supply a stub/mocked client.
func NewWithClients(bb *blackboard.Blackboard, primary, fallback LLMClient, timeout time.Duration) *Judge {
	return &Judge{bb: bb, primary: primary, fallback: fallback, timeout: timeout}
}

// degradedApprove is the mandatory failure-policy outcome: any Judge
// error yields APPROVE with empty guidance, and the failure is
// logged to the forum rather than surfaced to the caller.
func (j *Judge) degradedApprove(ctx context.Context, taskID, phaseLabel string, cause error) Result {
	slog.WarnContext(ctx, "judge review degraded to approve", "task_id", taskID, "phase", phaseLabel, "error", cause)
	note := fmt.Sprintf("%s review failed (%v); defaulting to approve", phaseLabel, cause)
	if err := j.bb.AppendForum(ctx, taskID, "orchestrator", note); err != nil {
		slog.WarnContext(ctx, "failed to append forum failure note", "task_id", taskID, "error", err)
	}
	return Result{Decision: DecisionApprove}
}

// call issues the review prompt against the primary model, retrying once
// against the fallback model on a recognizable content-moderation
// rejection, all within the configured hard timeout.
func (j *Judge) call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	reply, err := j.primary.Complete(ctx, systemPrompt, userPrompt)
	if err == nil {
		return reply, nil
	}
	if errors.Is(err, ErrContentModeration) && j.fallback != nil {
		return j.fallback.Complete(ctx, systemPrompt, userPrompt)
	}
	return "", err
}

// JudgePlan implements judge_plan(task_id, query): valid decisions are
// APPROVE or REVISE. The current pipeline always advances regardless of
// the decision (REVISE still proceeds) — plan rework is left for a
// future replan feature — but REVISE guidance, if any, is still persisted.
func (j *Judge) JudgePlan(ctx context.Context, taskID, query string) Result {
	plans, err := j.bb.GetAllPlans(ctx, taskID)
	if err != nil {
		return j.degradedApprove(ctx, taskID, "plan", err)
	}

	reply, err := j.call(ctx, reviewSystemPrompt, buildPlanReviewPrompt(query, plans))
	if err != nil {
		return j.degradedApprove(ctx, taskID, "plan", err)
	}

	decision, guidance, err := parseReply(reply)
	if err != nil {
		return j.degradedApprove(ctx, taskID, "plan", err)
	}
	if decision != DecisionApprove && decision != DecisionRevise {
		decision = DecisionApprove
	}

	if guidance != "" {
		if err := j.bb.SetGuidance(ctx, taskID, models.PhasePlan, guidance); err != nil {
			slog.WarnContext(ctx, "failed to persist plan guidance", "task_id", taskID, "error", err)
		}
	}
	j.logDecision(ctx, taskID, "plan", decision, guidance)
	return Result{Decision: decision, Guidance: guidance}
}

// JudgeResearch implements judge_research(task_id, query): valid
// decisions are APPROVE or SUPPLEMENT. SUPPLEMENT requires round < 1;
// otherwise it is silently promoted to APPROVE, capping supplement to a
// single round per task.
func (j *Judge) JudgeResearch(ctx context.Context, taskID, query string, round int) Result {
	research, err := j.bb.GetAllResearch(ctx, taskID)
	if err != nil {
		return j.degradedApprove(ctx, taskID, "research", err)
	}

	reply, err := j.call(ctx, reviewSystemPrompt, buildResearchReviewPrompt(query, research, round))
	if err != nil {
		return j.degradedApprove(ctx, taskID, "research", err)
	}

	decision, guidance, err := parseReply(reply)
	if err != nil {
		return j.degradedApprove(ctx, taskID, "research", err)
	}
	if decision != DecisionApprove && decision != DecisionSupplement {
		decision = DecisionApprove
	}
	if decision == DecisionSupplement && round >= 1 {
		decision = DecisionApprove
	}

	if guidance != "" {
		if err := j.bb.SetGuidance(ctx, taskID, models.PhaseResearch, guidance); err != nil {
			slog.WarnContext(ctx, "failed to persist research guidance", "task_id", taskID, "error", err)
		}
	}
	j.logDecision(ctx, taskID, "research", decision, guidance)
	return Result{Decision: decision, Guidance: guidance}
}

func (j *Judge) logDecision(ctx context.Context, taskID, phaseLabel string, decision Decision, guidance string) {
	note := fmt.Sprintf("%s review: %s", phaseLabel, decision)
	if guidance != "" {
		note += " (guidance issued)"
	}
	if err := j.bb.AppendForum(ctx, taskID, "orchestrator", note); err != nil {
		slog.WarnContext(ctx, "failed to append forum decision note", "task_id", taskID, "error", err)
	}
}
