package queue

import (
	"context"
	"time"
)

// WorkerStatus mirrors tarsy's queue.WorkerStatus: a worker is either
// idle or currently running a job.
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// WorkerHealth is one worker's health snapshot, in the shape of tarsy's
// queue.WorkerHealth.
type WorkerHealth struct {
	ID            string       `json:"id"`
	Status        WorkerStatus `json:"status"`
	CurrentJobID  string       `json:"current_job_id,omitempty"`
	JobsProcessed int          `json:"jobs_processed"`
	LastActivity  time.Time    `json:"last_activity"`
}

// PoolHealth is the pool-wide health snapshot exposed at GET /health.
type PoolHealth struct {
	TotalWorkers  int            `json:"total_workers"`
	ActiveWorkers int            `json:"active_workers"`
	QueueDepth    int            `json:"queue_depth"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}

// Job is one unit of work submitted to a Pool. Kind labels the job for
// logging and health reporting; partitioning work so a slow kind never
// starves a fast one is done by routing different kinds to separate
// Pool instances (see the Workflow Engine's dedicated report pool), not
// by the Pool itself — a single Pool's jobs channel is FIFO across all
// kinds submitted to it.
type Job struct {
	ID   string
	Kind string
	Run  func(ctx context.Context) error
}
