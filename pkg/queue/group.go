package queue

import (
	"context"
	"sync"
)

// Result is one job's outcome within a Group.
type Result struct {
	JobID string
	Err   error
}

// RunGroup implements the "group + barrier-callback" fan-out/fan-in
// primitive: every job in jobs is submitted to pool and runs concurrently; the
// call blocks until every job has completed (success or failure) — the
// barrier — then returns all results in submission order. A job that
// never starts because ctx expires first is recorded as failed with
// ctx.Err().
func RunGroup(ctx context.Context, pool *Pool, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	var wg sync.WaitGroup

	for i, job := range jobs {
		wg.Add(1)
		i, job := i, job
		wrapped := Job{
			ID:   job.ID,
			Kind: job.Kind,
			Run: func(ctx context.Context) error {
				defer wg.Done()
				err := job.Run(ctx)
				results[i] = Result{JobID: job.ID, Err: err}
				return err
			},
		}
		if err := pool.Submit(ctx, wrapped); err != nil {
			results[i] = Result{JobID: job.ID, Err: err}
			wg.Done()
		}
	}

	wg.Wait()
	return results
}
