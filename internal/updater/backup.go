package updater

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
)

const (
	backupFilename     = "pomodorox.previous"
	backupInfoFilename = "backup.json"
)

// BackupInfo describes the binary kept for rollback.
type BackupInfo struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	ExecPath  string    `json:"exec_path"`
}

// backups keeps one previous binary next to a metadata file.
type backups struct {
	dir string
}

func (b backups) binaryPath() string { return filepath.Join(b.dir, backupFilename) }
func (b backups) infoPath() string   { return filepath.Join(b.dir, backupInfoFilename) }

// load returns nil when no usable backup exists.
func (b backups) load() *BackupInfo {
	data, err := os.ReadFile(b.infoPath())
	if err != nil {
		return nil
	}
	var info BackupInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil
	}
	if _, err := os.Stat(b.binaryPath()); err != nil {
		return nil
	}
	return &info
}

func (b backups) create(execPath, version string, now time.Time) (*BackupInfo, error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	if err := copyFile(execPath, b.binaryPath()); err != nil {
		return nil, err
	}

	info := &BackupInfo{Version: version, CreatedAt: now, ExecPath: execPath}
	data, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	if err := renameio.WriteFile(b.infoPath(), data, 0o644); err != nil {
		return nil, fmt.Errorf("write backup info: %w", err)
	}
	return info, nil
}

func (b backups) restore(info *BackupInfo) error {
	return copyFile(b.binaryPath(), info.ExecPath)
}

// copyFile replaces dst atomically with an executable copy of src.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := renameio.NewPendingFile(dst, renameio.WithPermissions(0o755))
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() { _ = out.Cleanup() }()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.CloseAtomicallyReplace()
}
