package config

import "time"

// Default returns the built-in configuration. A YAML file, when present,
// overrides fields on top of this baseline; environment variables are
// expanded into the YAML before parsing (see envexpand.go).
func Default() *Config {
	return &Config{
		Redis: RedisConfig{
			URL:          "redis://127.0.0.1:6379/0",
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
		},
		Queue: QueueConfig{
			WorkerCount:             6,
			ReportWorkerCount:       2,
			PollInterval:            500 * time.Millisecond,
			PollIntervalJitter:      250 * time.Millisecond,
			GracefulShutdownTimeout: 2 * time.Minute,
		},
		Judge: JudgeConfig{
			APIKeyEnv:          "ANTHROPIC_API_KEY",
			Model:              "claude-sonnet-4-5",
			FallbackModel:      "claude-haiku-4-5",
			RequestTimeout:     30 * time.Second,
			MaxOutputChars:     2000,
			BreakerMaxRequests: 3,
			BreakerInterval:    time.Minute,
			BreakerTimeout:     30 * time.Second,
		},
		Cache: CacheConfig{
			TTL:                 24 * time.Hour,
			SimilarityThreshold: 0.80,
			MaxScanCandidates:   100,
		},
		Timeout: TimeoutConfig{
			Plan:        PhaseTimeout{Soft: 600 * time.Second, Hard: 660 * time.Second},
			Research:    PhaseTimeout{Soft: 1800 * time.Second, Hard: 1860 * time.Second},
			Supplement:  PhaseTimeout{Soft: 1200 * time.Second, Hard: 1260 * time.Second},
			Report:      PhaseTimeout{Soft: 600 * time.Second, Hard: 660 * time.Second},
			Orchestrate: PhaseTimeout{Soft: 300 * time.Second, Hard: 360 * time.Second},
			TaskTTL:     7 * 24 * time.Hour,
			ResultTTL:   24 * time.Hour,
		},
	}
}
