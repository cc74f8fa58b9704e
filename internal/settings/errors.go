package settings

import (
	"errors"
	"fmt"
)

// Sentinel errors. Match them with errors.Is.
var (
	ErrNotFound     = errors.New("configuration not found")
	ErrTooLarge     = errors.New("configuration blob too large")
	ErrMalformed    = errors.New("malformed configuration blob")
	ErrMissingField = errors.New("missing field")
	ErrInvalidValue = errors.New("invalid value")
)

// ConfigLoadError reports why the persisted configuration could not be
// used. It is always recovered by falling back to the defaults.
type ConfigLoadError struct {
	Reason string
	Err    error
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("config load failed (%s): %v", e.Reason, e.Err)
}

func (e *ConfigLoadError) Unwrap() error { return e.Err }

// ValidationError rejects an update request before anything is mutated.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PersistenceWriteError means the live config changed but storage did not.
// A reboot reverts to whatever was last persisted.
type PersistenceWriteError struct {
	Err error
}

func (e *PersistenceWriteError) Error() string {
	return fmt.Sprintf("failed to persist configuration: %v", e.Err)
}

func (e *PersistenceWriteError) Unwrap() error { return e.Err }

// loadReason classifies a load failure for logs and metrics.
func loadReason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTooLarge):
		return "too_large"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "io"
	}
}
