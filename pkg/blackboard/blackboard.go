// Package blackboard implements the durable shared state that is the
// sole inter-stage memory for the three research agents: a Redis key
// layout (task:{id}:agent:{a}:{phase}, task:{id}:guidance:{phase},
// task:{id}:supplement:round, task:{id}:forum:log) expressed as a Go
// service over go-redis instead of a module of free functions.
//
// Contract: reads never fabricate defaults — absence is reported as
// "not present" via a boolean/ok return, and the caller decides whether
// to fall back. The forum append and the round-counter
// increment are atomic against concurrent writers because RPUSH and
// INCR are themselves atomic Redis operations; every other key has a
// single writer at any moment by construction of the Workflow Engine.
package blackboard

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

// Blackboard is the shared state store for one orchestrator process.
type Blackboard struct {
	rdb *redisstore.Client
	ttl time.Duration
}

// New creates a Blackboard backed by rdb. ttl is the fixed 7-day
// retention window applied to every task-scoped key it writes; no
// method takes a per-call TTL.
func New(rdb *redisstore.Client, ttl time.Duration) *Blackboard {
	return &Blackboard{rdb: rdb, ttl: ttl}
}

type phaseMarker struct {
	Phase     models.Phase `json:"phase"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// SetPhase records the agent's current phase marker.
func (b *Blackboard) SetPhase(ctx context.Context, taskID string, agent models.Agent, phase models.Phase) error {
	data, err := json.Marshal(phaseMarker{Phase: phase, UpdatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal phase marker: %w", err)
	}
	return b.rdb.Set(ctx, keyPhase(taskID, agent), data, b.ttl).Err()
}

// GetPhase returns the agent's current phase marker. ok is false when no
// marker has been written yet.
func (b *Blackboard) GetPhase(ctx context.Context, taskID string, agent models.Agent) (phase models.Phase, ok bool, err error) {
	raw, err := b.rdb.Get(ctx, keyPhase(taskID, agent)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get phase marker: %w", err)
	}
	var marker phaseMarker
	if err := json.Unmarshal(raw, &marker); err != nil {
		return "", false, fmt.Errorf("unmarshal phase marker: %w", err)
	}
	return marker.Phase, true, nil
}

// SetPayload writes an agent's phase record (Plan/Research/Report).
func (b *Blackboard) SetPayload(ctx context.Context, taskID string, rec models.AgentPhaseRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal phase record: %w", err)
	}
	key := keyPayload(taskID, rec.Agent, rec.Phase)
	if err := b.rdb.Set(ctx, key, data, b.ttl).Err(); err != nil {
		return fmt.Errorf("set phase record: %w", err)
	}
	return b.SetPhase(ctx, taskID, rec.Agent, rec.Phase)
}

// GetPayload reads an agent's phase record. ok is false when absent —
// callers must treat that as a missing prerequisite, never substitute a
// default.
func (b *Blackboard) GetPayload(ctx context.Context, taskID string, agent models.Agent, phase models.Phase) (rec *models.AgentPhaseRecord, ok bool, err error) {
	raw, err := b.rdb.Get(ctx, keyPayload(taskID, agent, phase)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get phase record: %w", err)
	}
	var out models.AgentPhaseRecord
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, fmt.Errorf("unmarshal phase record: %w", err)
	}
	return &out, true, nil
}

// getAll is the shared implementation behind GetAllPlans/Research/Reports:
// it tolerates missing agents by omitting them from the result, per §4.1.
func (b *Blackboard) getAll(ctx context.Context, taskID string, phase models.Phase) (map[models.Agent]*models.AgentPhaseRecord, error) {
	out := make(map[models.Agent]*models.AgentPhaseRecord, len(models.Agents))
	for _, agent := range models.Agents {
		rec, ok, err := b.GetPayload(ctx, taskID, agent, phase)
		if err != nil {
			return nil, err
		}
		if ok {
			out[agent] = rec
		}
	}
	return out, nil
}

// GetAllPlans returns every agent's Plan record present on the Blackboard.
func (b *Blackboard) GetAllPlans(ctx context.Context, taskID string) (map[models.Agent]*models.AgentPhaseRecord, error) {
	return b.getAll(ctx, taskID, models.PhasePlan)
}

// GetAllResearch returns every agent's Research record present on the Blackboard.
func (b *Blackboard) GetAllResearch(ctx context.Context, taskID string) (map[models.Agent]*models.AgentPhaseRecord, error) {
	return b.getAll(ctx, taskID, models.PhaseResearch)
}

// GetAllReports returns every agent's Report record present on the Blackboard.
func (b *Blackboard) GetAllReports(ctx context.Context, taskID string) (map[models.Agent]*models.AgentPhaseRecord, error) {
	return b.getAll(ctx, taskID, models.PhaseReport)
}

// GetAllPhases returns every agent's current phase marker present on the Blackboard.
func (b *Blackboard) GetAllPhases(ctx context.Context, taskID string) (map[models.Agent]models.Phase, error) {
	out := make(map[models.Agent]models.Phase, len(models.Agents))
	for _, agent := range models.Agents {
		phase, ok, err := b.GetPhase(ctx, taskID, agent)
		if err != nil {
			return nil, err
		}
		if ok {
			out[agent] = phase
		}
	}
	return out, nil
}

type guidanceRecord struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// SetGuidance persists the Judge's guidance for the next execution of phase.
func (b *Blackboard) SetGuidance(ctx context.Context, taskID string, phase models.Phase, text string) error {
	data, err := json.Marshal(guidanceRecord{Text: text, CreatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal guidance: %w", err)
	}
	return b.rdb.Set(ctx, keyGuidance(taskID, phase), data, b.ttl).Err()
}

// GetGuidance reads the guidance written for phase, if any.
func (b *Blackboard) GetGuidance(ctx context.Context, taskID string, phase models.Phase) (guidance string, ok bool, err error) {
	raw, err := b.rdb.Get(ctx, keyGuidance(taskID, phase)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get guidance: %w", err)
	}
	var rec guidanceRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", false, fmt.Errorf("unmarshal guidance: %w", err)
	}
	return rec.Text, true, nil
}

// IncrementRound atomically increments and returns the supplement round
// counter. Never exceeds 1 in practice because the Workflow Engine only
// calls this once per task.
func (b *Blackboard) IncrementRound(ctx context.Context, taskID string) (int, error) {
	key := keySupplementRound(taskID)
	n, err := b.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment supplement round: %w", err)
	}
	if err := b.rdb.Expire(ctx, key, b.ttl).Err(); err != nil {
		return int(n), fmt.Errorf("set supplement round ttl: %w", err)
	}
	return int(n), nil
}

// GetRound returns the current supplement round counter (0 if never incremented).
func (b *Blackboard) GetRound(ctx context.Context, taskID string) (int, error) {
	n, err := b.rdb.Get(ctx, keySupplementRound(taskID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get supplement round: %w", err)
	}
	return n, nil
}

// AppendForum atomically appends one entry to the task's forum log.
func (b *Blackboard) AppendForum(ctx context.Context, taskID, speaker, content string) error {
	entry := models.ForumEntry{Speaker: speaker, Content: content, Timestamp: time.Now()}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal forum entry: %w", err)
	}
	key := keyForumLog(taskID)
	if err := b.rdb.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("append forum log: %w", err)
	}
	return b.rdb.Expire(ctx, key, b.ttl).Err()
}

// GetForumRange returns forum entries in [start, stop] (inclusive,
// 0-indexed; -1 means "to the end"), in append order.
func (b *Blackboard) GetForumRange(ctx context.Context, taskID string, start, stop int64) ([]models.ForumEntry, error) {
	raws, err := b.rdb.LRange(ctx, keyForumLog(taskID), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read forum log: %w", err)
	}
	out := make([]models.ForumEntry, 0, len(raws))
	for _, raw := range raws {
		var entry models.ForumEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal forum entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// GetForumLog returns the full forum log for taskID.
func (b *Blackboard) GetForumLog(ctx context.Context, taskID string) ([]models.ForumEntry, error) {
	return b.GetForumRange(ctx, taskID, 0, -1)
}
