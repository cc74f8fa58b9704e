// Package store provides settings.Store backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/smazurov/pomodorox/internal/settings"
)

// File keeps the blob in a single file, replaced atomically on write.
type File struct {
	path string
}

// NewFile returns a file store at path. The parent directory is created on
// first write.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the blob location.
func (f *File) Path() string { return f.path }

// Read returns the blob. Files larger than settings.MaxBlobSize are rejected
// without being read in full.
func (f *File) Read(_ context.Context) ([]byte, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", settings.ErrNotFound, f.path)
		}
		return nil, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, settings.MaxBlobSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	if len(data) > settings.MaxBlobSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", settings.ErrTooLarge, f.path, settings.MaxBlobSize)
	}
	return data, nil
}

// Write replaces the blob. The data is fsynced before the rename so a
// power cut leaves either the previous or the new document.
func (f *File) Write(_ context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	pending, err := renameio.NewPendingFile(f.path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending settings file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write settings data: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace settings file: %w", err)
	}
	return nil
}

// Close is a no-op.
func (f *File) Close() error { return nil }
