package config

import "fmt"

// validate applies the handful of invariants that matter operationally:
// required fields and numeric bounds. YAML decode only catches type
// errors; it does not enforce the struct's validate tags.
func validate(cfg *Config) error {
	if cfg.Redis.URL == "" {
		return fmt.Errorf("%w: redis.url is required", ErrInvalidConfig)
	}
	if cfg.Queue.WorkerCount < 1 {
		return fmt.Errorf("%w: queue.worker_count must be >= 1", ErrInvalidConfig)
	}
	if cfg.Queue.ReportWorkerCount < 1 {
		return fmt.Errorf("%w: queue.report_worker_count must be >= 1", ErrInvalidConfig)
	}
	if cfg.Cache.SimilarityThreshold < 0 || cfg.Cache.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: cache.similarity_threshold must be in [0,1]", ErrInvalidConfig)
	}
	if cfg.Cache.MaxScanCandidates < 1 {
		return fmt.Errorf("%w: cache.max_scan_candidates must be >= 1", ErrInvalidConfig)
	}
	if cfg.Judge.Model == "" {
		return fmt.Errorf("%w: judge.model is required", ErrInvalidConfig)
	}
	return nil
}
