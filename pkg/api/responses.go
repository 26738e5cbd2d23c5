package api

import (
	"time"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/queue"
)

// SubmitAnalysisResponse is returned by POST /api/v1/analyze.
type SubmitAnalysisResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Mode    string `json:"mode"`
	PollURL string `json:"poll_url"`
}

// TaskResponse is returned by GET /api/v1/task/:id.
type TaskResponse struct {
	TaskID      string     `json:"task_id"`
	Query       string     `json:"query"`
	Mode        string     `json:"mode"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func toTaskResponse(t *models.Task) TaskResponse {
	return TaskResponse{
		TaskID:      t.TaskID,
		Query:       t.Query,
		Mode:        string(t.Mode),
		Status:      string(t.Status),
		Progress:    t.Progress,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
		Error:       t.ErrorMsg,
	}
}

// AgentProgressResponse is one agent's status/progress within
// GET /api/v1/task/:id/progress.
type AgentProgressResponse struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

// ProgressResponse is returned by GET /api/v1/task/:id/progress: the
// task-wide progress hint plus each agent's own phase-derived progress,
// so a poller can tell which of the three agents is lagging.
type ProgressResponse struct {
	TaskID          string                            `json:"task_id"`
	Status          string                            `json:"status"`
	OverallProgress int                               `json:"overall_progress"`
	Agents          map[string]AgentProgressResponse  `json:"agents"`
}

// agentPhaseProgress turns an agent's current Blackboard phase marker
// into a 0-100 hint: no marker yet (agent hasn't started plan) is 0, and
// each of the three phases advances it a third of the way, mirroring
// the fixed plan->research->report pipeline every agent runs.
func agentPhaseProgress(phase models.Phase) int {
	switch phase {
	case models.PhasePlan:
		return 33
	case models.PhaseResearch:
		return 66
	case models.PhaseReport:
		return 100
	default:
		return 0
	}
}

func toProgressResponse(task *models.Task, phases map[models.Agent]models.Phase) ProgressResponse {
	agents := make(map[string]AgentProgressResponse, len(models.Agents))
	for _, agent := range models.Agents {
		phase := phases[agent]
		status := string(phase)
		if status == "" {
			status = "pending"
		}
		agents[string(agent)] = AgentProgressResponse{Status: status, Progress: agentPhaseProgress(phase)}
	}
	return ProgressResponse{
		TaskID:          task.TaskID,
		Status:          string(task.Status),
		OverallProgress: task.Progress,
		Agents:          agents,
	}
}

// PhaseMarkerResponse is one agent's current phase marker, part of the
// GET /api/v1/task/:id/phases diagnostic snapshot.
type PhaseMarkerResponse struct {
	Agent string `json:"agent"`
	Phase string `json:"phase,omitempty"`
}

// AgentPhasePayloadResponse is one agent's recorded payload for a single
// phase, part of the per-phase breakdown in the diagnostic snapshot.
type AgentPhasePayloadResponse struct {
	Agent    string         `json:"agent"`
	Payload  map[string]any `json:"payload"`
	Fallback bool           `json:"fallback"`
}

func toAgentPhasePayloads(recs map[models.Agent]*models.AgentPhaseRecord) []AgentPhasePayloadResponse {
	out := make([]AgentPhasePayloadResponse, 0, len(recs))
	for _, agent := range models.Agents {
		rec, ok := recs[agent]
		if !ok {
			continue
		}
		out = append(out, AgentPhasePayloadResponse{Agent: string(agent), Payload: rec.Payload, Fallback: rec.Fallback})
	}
	return out
}

// PhasesResponse is returned by GET /api/v1/task/:id/phases: the full
// diagnostic snapshot of the Blackboard state backing a task.
type PhasesResponse struct {
	TaskID           string                       `json:"task_id"`
	Agents           []PhaseMarkerResponse        `json:"agents"`
	Plans            []AgentPhasePayloadResponse  `json:"plans"`
	Research         []AgentPhasePayloadResponse  `json:"research"`
	Reports          []AgentPhasePayloadResponse  `json:"reports"`
	PlanGuidance     string                       `json:"plan_guidance,omitempty"`
	ResearchGuidance string                       `json:"research_guidance,omitempty"`
	SupplementRound  int                          `json:"supplement_round"`
	ForumLog         string                       `json:"forum_log"`
}

// ListTasksResponse is returned by GET /api/v1/tasks.
type ListTasksResponse struct {
	Tasks  []TaskResponse        `json:"tasks"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
	Stats  map[models.Status]int `json:"stats"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Queue     queue.PoolHealth       `json:"queue,omitempty"`
	Redis     *redisHealthResponse   `json:"redis,omitempty"`
	TaskStats map[models.Status]int  `json:"task_stats,omitempty"`
}

type redisHealthResponse struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time"`
}

// statsOrEmpty normalizes a failed Stats() call to an empty map rather
// than surfacing the error, since /health and /tasks must stay
// available even when the task index is briefly unreadable.
func statsOrEmpty(stats map[models.Status]int, err error) map[models.Status]int {
	if err != nil {
		return map[models.Status]int{}
	}
	return stats
}
