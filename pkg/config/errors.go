package config

import "errors"

// Sentinel errors for configuration loading and validation.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// LoadError wraps a failure to load a specific configuration source.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return "config: failed to load " + e.Source + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

// NewLoadError wraps err with the name of the source that failed to load.
func NewLoadError(source string, err error) error {
	return &LoadError{Source: source, Err: err}
}
