package store

import (
	"context"
	"fmt"

	"github.com/smazurov/pomodorox/internal/settings"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Default locations per backend.
const (
	DefaultFilePath   = "/var/lib/pomodorox/settings.json"
	DefaultSQLitePath = "/var/lib/pomodorox/settings.db"
)

// DefaultPath returns the default location for backend.
func DefaultPath(backend string) string {
	if backend == BackendSQLite {
		return DefaultSQLitePath
	}
	return DefaultFilePath
}

// Open creates the store for backend at path.
// An empty path selects DefaultPath(backend).
func Open(ctx context.Context, backend, path string) (settings.Store, error) {
	if path == "" {
		path = DefaultPath(backend)
	}
	switch backend {
	case BackendFile, "":
		return NewFile(path), nil
	case BackendSQLite:
		return OpenSQLite(ctx, path)
	default:
		return nil, fmt.Errorf("unknown settings backend %q", backend)
	}
}
