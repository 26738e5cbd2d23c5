package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the built-in defaults, merges an optional YAML file on top
// (environment variables expanded first, see envexpand.go), and validates
// the result. path may be empty, in which case built-in defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				slog.Warn("Config file not found, using built-in defaults", "path", path)
			} else {
				return nil, NewLoadError(path, err)
			}
		} else {
			expanded := ExpandEnv(raw)
			if err := yaml.Unmarshal(expanded, cfg); err != nil {
				return nil, NewLoadError(path, fmt.Errorf("parsing yaml: %w", err))
			}
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	slog.Info("Configuration loaded",
		"redis_url", redactURL(cfg.Redis.URL),
		"http_addr", cfg.HTTP.Addr,
		"queue_workers", cfg.Queue.WorkerCount,
		"judge_model", cfg.Judge.Model)

	return cfg, nil
}

// redactURL hides credentials embedded in a connection URL before logging.
func redactURL(u string) string {
	at := -1
	for i, r := range u {
		if r == '@' {
			at = i
		}
	}
	if at == -1 {
		return u
	}
	scheme := ""
	for i, r := range u {
		if r == ':' && i+2 < len(u) && u[i+1] == '/' {
			scheme = u[:i+3]
			break
		}
	}
	return scheme + "***" + u[at:]
}
