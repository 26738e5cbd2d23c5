// Package queue implements the parallel worker pool and group+barrier
// fan-out/fan-in primitive used by the Workflow Engine. It is generalized from tarsy's
// pkg/queue/pool.go and worker.go: the same pool-of-goroutines, jittered
// idle-poll, and per-worker health tracking, but pulling jobs from an
// in-process channel instead of claiming rows from Postgres with
// FOR UPDATE SKIP LOCKED — this system's durable state lives in the
// Blackboard/Status Store, not in a job table, so the pool itself only
// needs to bound concurrency and report health.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/config"
)

// Pool is a fixed-size worker pool draining an internal job channel.
type Pool struct {
	cfg     config.QueueConfig
	jobs    chan Job
	stopCh  chan struct{}
	stopped sync.Once
	closed  atomic.Bool
	wg      sync.WaitGroup

	mu      sync.RWMutex
	workers []*workerState
}

type workerState struct {
	id            string
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

// New creates a Pool. Start must be called before Submit.
func New(cfg config.QueueConfig) *Pool {
	return &Pool{
		cfg:     cfg,
		jobs:    make(chan Job, cfg.WorkerCount*4),
		stopCh:  make(chan struct{}),
		workers: make([]*workerState, 0, cfg.WorkerCount),
	}
}

// Start spawns the configured number of worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.WorkerCount; i++ {
		w := &workerState{id: fmt.Sprintf("worker-%d", i), status: WorkerStatusIdle, lastActivity: time.Now()}
		p.mu.Lock()
		p.workers = append(p.workers, w)
		p.mu.Unlock()

		p.wg.Add(1)
		go p.run(ctx, w)
	}
	slog.Info("queue pool started", "worker_count", p.cfg.WorkerCount)
}

// Stop signals every worker to finish its in-flight job and stop, and
// waits up to cfg.GracefulShutdownTimeout.
func (p *Pool) Stop() {
	p.stopped.Do(func() {
		p.closed.Store(true)
		close(p.stopCh)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.cfg.GracefulShutdownTimeout):
		slog.Warn("queue pool graceful shutdown timed out")
	}
}

// Submit enqueues a job. It blocks until the internal buffer accepts it
// or ctx is done.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	if p.closed.Load() {
		return fmt.Errorf("queue pool stopped")
	}
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopCh:
		return fmt.Errorf("queue pool stopped")
	}
}

func (p *Pool) run(ctx context.Context, w *workerState) {
	defer p.wg.Done()
	log := slog.With("worker_id", w.id)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			p.setWorking(w, job.ID)
			if err := job.Run(ctx); err != nil {
				log.Warn("job failed", "job_id", job.ID, "kind", job.Kind, "error", err)
			}
			p.setIdle(w)
		case <-time.After(p.pollInterval()):
			// idle tick, loop back around
		}
	}
}

func (p *Pool) setWorking(w *workerState, jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w.status = WorkerStatusWorking
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}

func (p *Pool) setIdle(w *workerState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w.status = WorkerStatusIdle
	w.currentJobID = ""
	w.jobsProcessed++
	w.lastActivity = time.Now()
}

func (p *Pool) pollInterval() time.Duration {
	base := p.cfg.PollInterval
	jitter := p.cfg.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

// Health reports the pool's current state.
func (p *Pool) Health() PoolHealth {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := make([]WorkerHealth, len(p.workers))
	active := 0
	for i, w := range p.workers {
		stats[i] = WorkerHealth{
			ID:            w.id,
			Status:        w.status,
			CurrentJobID:  w.currentJobID,
			JobsProcessed: w.jobsProcessed,
			LastActivity:  w.lastActivity,
		}
		if w.status == WorkerStatusWorking {
			active++
		}
	}
	return PoolHealth{
		TotalWorkers:  len(p.workers),
		ActiveWorkers: active,
		QueueDepth:    len(p.jobs),
		WorkerStats:   stats,
	}
}
