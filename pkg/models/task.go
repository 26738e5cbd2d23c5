// Package models holds the data model shared across the orchestration core:
// Task, AgentPhaseRecord, Guidance, ForumEntry, and CacheEntry.
package models

import "time"

// Status is the tagged variant for Task.Status. The valid transitions are
// enforced by pkg/statusstore, not scattered across callers.
type Status string

// Task status values, in the order §3 lists them. pending is the initial
// value; completed and failed are terminal.
const (
	StatusPending              Status = "pending"
	StatusRunning              Status = "running"
	StatusPhase1Plan           Status = "phase1_plan"
	StatusOrchestratingPlan    Status = "orchestrating_plan"
	StatusPhase2Research       Status = "phase2_research"
	StatusPhase2Supplement     Status = "phase2_supplement"
	StatusOrchestratingResearch Status = "orchestrating_research"
	StatusPhase3Report         Status = "phase3_report"
	StatusGeneratingFinalReport Status = "generating_final_report"
	StatusCompleted            Status = "completed"
	StatusFailed               Status = "failed"
)

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Agent is one of the three research agent kinds.
type Agent string

// The three agent kinds named in the GLOSSARY.
const (
	AgentQuery   Agent = "query"
	AgentMedia   Agent = "media"
	AgentInsight Agent = "insight"
)

// Agents lists the fixed fan-out set, in a stable order used for
// deterministic iteration (result ordering, forum log, etc).
var Agents = []Agent{AgentQuery, AgentMedia, AgentInsight}

// Phase is one of the three phases a Task's agents advance through.
type Phase string

// The three phases named in the GLOSSARY.
const (
	PhasePlan     Phase = "plan"
	PhaseResearch Phase = "research"
	PhaseReport   Phase = "report"
)

// MaxQueryLength is the hard limit on Task.Query enforced at the API boundary.
const MaxQueryLength = 500

// Mode selects whether the Workflow Engine runs the full Judge-supervised
// pipeline or the cheaper standard fan-out/fan-in.
type Mode string

// Supported submission modes.
const (
	ModePhased   Mode = "phased"
	ModeStandard Mode = "standard"
)

// Task is one user submission.
type Task struct {
	TaskID      string     `json:"task_id"`
	Query       string     `json:"query"`
	Mode        Mode       `json:"mode"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ErrorMsg    string     `json:"error_message,omitempty"`
}
