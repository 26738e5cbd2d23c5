package models

import "time"

// AgentPhaseRecord is the per (task_id, agent, phase) payload the
// Blackboard carries. Payload is opaque to the core: for Plan
// and Research it MUST embed the agent's private state_dict under the
// "state_dict" key; the core routes it without parsing it further. For
// Report, Payload carries a single "text" key holding the report body.
type AgentPhaseRecord struct {
	Agent     Agent          `json:"agent"`
	Phase     Phase          `json:"phase"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`

	// Fallback is true when this record is a core-synthesized fallback
	// payload, not a genuine agent result.
	Fallback bool `json:"fallback,omitempty"`
}

// StateDictKey is the well-known payload key an agent's opaque resume
// token is stored under.
const StateDictKey = "state_dict"

// ReportTextKey is the well-known payload key a Report phase's document
// body is stored under.
const ReportTextKey = "text"

// StateDict extracts the agent-private resume token from a phase
// record's payload. Returns ("", false) if absent — callers must treat
// that as a hard error, never fabricate a substitute.
func (r *AgentPhaseRecord) StateDict() (string, bool) {
	if r == nil || r.Payload == nil {
		return "", false
	}
	v, ok := r.Payload[StateDictKey]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// ReportText extracts the report body from a Report phase record.
func (r *AgentPhaseRecord) ReportText() string {
	if r == nil || r.Payload == nil {
		return ""
	}
	if s, ok := r.Payload[ReportTextKey].(string); ok {
		return s
	}
	return ""
}

// Guidance is the optional free-text hint written by the Judge after
// reviewing a phase, read by agents on their next execution.
type Guidance struct {
	Phase     Phase     `json:"phase"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ForumEntry is one append-only entry in a Task's forum log.
type ForumEntry struct {
	Speaker   string    `json:"speaker"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// CacheEntry is the metadata sibling stored alongside a cached rendered
// document.
type CacheEntry struct {
	OriginalQuery string    `json:"original_query"`
	Tokens        []string  `json:"tokens"`
	ResultKey     string    `json:"result_key"`
	CreatedAt     time.Time `json:"created_at"`
}
