// Package statusstore implements the Status Store: per-task status and
// progress backing the query API, plus the terminal rendered result. It
// is adapted from tarsy's AlertSession status discipline
// (a tagged status enum with a transition table enforced at the storage
// boundary) without the relational session/stage/execution graph ent
// models that discipline around — there is exactly one entity here
// (Task), so a flat Redis record plus a sorted-set index replaces it.
package statusstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/redisstore"
)

// Sentinel errors for Status Store operations.
var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

// Store is the Status Store.
type Store struct {
	rdb       *redisstore.Client
	taskTTL   time.Duration
	resultTTL time.Duration
}

// New creates a Status Store. taskTTL is the 7-day retention window
// applied to submission/status records; resultTTL is the 24-hour window
// applied to the rendered result.
func New(rdb *redisstore.Client, taskTTL, resultTTL time.Duration) *Store {
	return &Store{rdb: rdb, taskTTL: taskTTL, resultTTL: resultTTL}
}

// metaRecord is the immutable submission record written once by Create.
type metaRecord struct {
	TaskID    string      `json:"task_id"`
	Query     string      `json:"query"`
	Mode      models.Mode `json:"mode"`
	CreatedAt time.Time   `json:"created_at"`
}

// statusRecord is the mutable status/progress record, read-modify-written
// by Update.
type statusRecord struct {
	Status      models.Status `json:"status"`
	Progress    int           `json:"progress"`
	UpdatedAt   time.Time     `json:"updated_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	ErrorMsg    string        `json:"error_message,omitempty"`
}

// Create seeds the immutable submission record and indexes the task for
// List/Stats. The Task starts in StatusPending with Progress 0.
func (s *Store) Create(ctx context.Context, taskID, query string, mode models.Mode) error {
	now := time.Now()
	meta := metaRecord{TaskID: taskID, Query: query, Mode: mode, CreatedAt: now}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal task meta: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, keyMeta(taskID), data, s.taskTTL)
	pipe.ZAdd(ctx, taskIndexKey, redis.Z{Score: float64(now.UnixNano()), Member: taskID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// UpdateInput is the compose-merge patch applied by Update. Zero-value
// fields are left untouched except Progress, which only ever moves
// forward (see Update).
type UpdateInput struct {
	Status   models.Status
	Progress int
	Error    string
}

// Update applies a read-modify-write patch to the mutable status record.
// Status transitions are validated against the transition table; Progress
// is clamped to never regress within a run.
func (s *Store) Update(ctx context.Context, taskID string, in UpdateInput) error {
	existing, err := s.readStatus(ctx, taskID)
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	rec := statusRecord{Status: models.StatusPending, Progress: 0}
	if existing != nil {
		rec = *existing
	}

	if in.Status != "" {
		if !ValidTransition(rec.Status, in.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, in.Status)
		}
		rec.Status = in.Status
	}
	if in.Progress > rec.Progress {
		rec.Progress = in.Progress
	}
	if in.Error != "" {
		rec.ErrorMsg = in.Error
	}
	rec.UpdatedAt = time.Now()
	if rec.Status.Terminal() && rec.CompletedAt == nil {
		now := time.Now()
		rec.CompletedAt = &now
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal status record: %w", err)
	}
	return s.rdb.Set(ctx, keyStatus(taskID), data, s.taskTTL).Err()
}

// PutResult stores the rendered document under the 24-hour result TTL.
func (s *Store) PutResult(ctx context.Context, taskID string, document json.RawMessage) error {
	return s.rdb.Set(ctx, keyResult(taskID), document, s.resultTTL).Err()
}

// GetResult returns the rendered document, if present.
func (s *Store) GetResult(ctx context.Context, taskID string) (json.RawMessage, bool, error) {
	raw, err := s.rdb.Get(ctx, keyResult(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get result: %w", err)
	}
	return raw, true, nil
}

func (s *Store) readStatus(ctx context.Context, taskID string) (*statusRecord, error) {
	raw, err := s.rdb.Get(ctx, keyStatus(taskID)).Bytes()
	if err != nil {
		return nil, err
	}
	var rec statusRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal status record: %w", err)
	}
	return &rec, nil
}

// Get returns the merged view of the immutable submission record and the
// latest mutable status: if no status has ever been written, submission
// defaults (pending, progress 0) are returned.
func (s *Store) Get(ctx context.Context, taskID string) (*models.Task, error) {
	raw, err := s.rdb.Get(ctx, keyMeta(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task meta: %w", err)
	}
	var meta metaRecord
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal task meta: %w", err)
	}

	task := &models.Task{
		TaskID:    meta.TaskID,
		Query:     meta.Query,
		Mode:      meta.Mode,
		Status:    models.StatusPending,
		Progress:  0,
		CreatedAt: meta.CreatedAt,
		UpdatedAt: meta.CreatedAt,
	}

	status, err := s.readStatus(ctx, taskID)
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if status != nil {
		task.Status = status.Status
		task.Progress = status.Progress
		task.UpdatedAt = status.UpdatedAt
		task.CompletedAt = status.CompletedAt
		task.ErrorMsg = status.ErrorMsg
	}
	return task, nil
}

// List returns tasks ordered most-recent-first, paginated by limit/offset.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*models.Task, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := s.rdb.ZRevRange(ctx, taskIndexKey, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list task index: %w", err)
	}
	out := make([]*models.Task, 0, len(ids))
	for _, id := range ids {
		task, err := s.Get(ctx, id)
		if errors.Is(err, ErrTaskNotFound) {
			continue // expired between index read and lookup
		}
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, nil
}

// Stats counts tasks currently in each status. Best-effort: like tarsy's
// WorkerPool.Health queue-depth query, it is O(task count) and meant for
// operator dashboards, not a hot path.
func (s *Store) Stats(ctx context.Context) (map[models.Status]int, error) {
	ids, err := s.rdb.ZRange(ctx, taskIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list task index: %w", err)
	}
	counts := make(map[models.Status]int)
	for _, id := range ids {
		task, err := s.Get(ctx, id)
		if errors.Is(err, ErrTaskNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		counts[task.Status]++
	}
	return counts, nil
}

// PruneExpired removes index entries whose underlying meta key has
// already expired (the per-key TTL already reclaimed the record itself;
// this only reclaims the dangling sorted-set member). Returns the count removed.
func (s *Store) PruneExpired(ctx context.Context) (int, error) {
	ids, err := s.rdb.ZRange(ctx, taskIndexKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("list task index: %w", err)
	}
	var removed int
	for _, id := range ids {
		exists, err := s.rdb.Exists(ctx, keyMeta(id)).Result()
		if err != nil {
			return removed, fmt.Errorf("check task meta: %w", err)
		}
		if exists == 0 {
			if err := s.rdb.ZRem(ctx, taskIndexKey, id).Err(); err != nil {
				return removed, fmt.Errorf("prune task index: %w", err)
			}
			removed++
		}
	}
	return removed, nil
}
