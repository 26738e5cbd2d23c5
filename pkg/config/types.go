// Package config loads and validates the orchestrator's layered configuration:
// built-in defaults, an optional YAML file, then environment variable expansion.
package config

import "time"

// Config is the umbrella configuration object passed down to every
// constructor in the process. Never read as a global singleton.
type Config struct {
	Redis   RedisConfig   `yaml:"redis"`
	HTTP    HTTPConfig    `yaml:"http"`
	Queue   QueueConfig   `yaml:"queue"`
	Judge   JudgeConfig   `yaml:"judge"`
	Cache   CacheConfig   `yaml:"cache"`
	Timeout TimeoutConfig `yaml:"timeouts"`
}

// RedisConfig describes how to reach the backing store used by the
// Blackboard, Status Store, and Query Cache.
type RedisConfig struct {
	URL          string        `yaml:"url" validate:"required"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// HTTPConfig describes the Submission API listener.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// QueueConfig controls the phase-task worker pool.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines pulling phase-tasks
	// off the internal queues.
	WorkerCount int `yaml:"worker_count" validate:"min=1"`

	// ReportWorkerCount sizes a second, dedicated Pool used only for
	// report-kind phase-tasks, so a slow report run never starves the
	// plan/research/supplement fan-outs sharing the main pool.
	ReportWorkerCount int `yaml:"report_worker_count" validate:"min=1"`

	// PollInterval/PollIntervalJitter control the idle-poll backoff when a
	// queue has no runnable task.
	PollInterval       time.Duration `yaml:"poll_interval"`
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// GracefulShutdownTimeout bounds how long Stop waits for in-flight
	// phase-tasks to finish before returning.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`
}

// JudgeConfig configures the Orchestrator Judge's LLM calls.
type JudgeConfig struct {
	// APIKeyEnv names the environment variable holding the primary model's API key.
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model" validate:"required"`

	// FallbackModel is retried once when the primary model rejects the
	// review prompt with a content-moderation signal.
	FallbackModel string `yaml:"fallback_model"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxOutputChars int          `yaml:"max_output_chars"`

	// Circuit breaker guarding repeated LLM failures.
	BreakerMaxRequests uint32        `yaml:"breaker_max_requests"`
	BreakerInterval    time.Duration `yaml:"breaker_interval"`
	BreakerTimeout     time.Duration `yaml:"breaker_timeout"`
}

// CacheConfig controls the Query Cache.
type CacheConfig struct {
	TTL                 time.Duration `yaml:"ttl"`
	SimilarityThreshold float64       `yaml:"similarity_threshold" validate:"min=0,max=1"`
	MaxScanCandidates   int           `yaml:"max_scan_candidates" validate:"min=1"`
}

// TimeoutConfig carries the per-phase soft/hard wall-clock timeout pairs
// that bound each Workflow Engine phase.
type TimeoutConfig struct {
	Plan        PhaseTimeout `yaml:"plan"`
	Research    PhaseTimeout `yaml:"research"`
	Supplement  PhaseTimeout `yaml:"supplement"`
	Report      PhaseTimeout `yaml:"report"`
	Orchestrate PhaseTimeout `yaml:"orchestrate"`

	// TaskTTL is the 7-day retention window for task-scoped Blackboard/Status keys.
	TaskTTL time.Duration `yaml:"task_ttl"`
	// ResultTTL is the 24-hour retention window for the rendered result key.
	ResultTTL time.Duration `yaml:"result_ttl"`
}

// PhaseTimeout is a soft/hard wall-clock pair: on soft timeout a
// cooperative stop is signaled; on hard timeout the worker is terminated.
type PhaseTimeout struct {
	Soft time.Duration `yaml:"soft"`
	Hard time.Duration `yaml:"hard"`
}
