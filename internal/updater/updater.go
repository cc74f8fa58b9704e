// Package updater replaces the running binary with the latest GitHub
// release, keeping the previous one for rollback.
package updater

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/creativeprojects/go-selfupdate"

	"github.com/smazurov/pomodorox/internal/logging"
	"github.com/smazurov/pomodorox/internal/version"
)

// DefaultRepository is the release source.
const DefaultRepository = "smazurov/pomodorox"

// releases is the subset of *selfupdate.Updater the updater needs.
type releases interface {
	DetectLatest(ctx context.Context, repository selfupdate.Repository) (*selfupdate.Release, bool, error)
	UpdateTo(ctx context.Context, rel *selfupdate.Release, cmdPath string) error
}

// Options configures an Updater.
type Options struct {
	Repository string
	Prerelease bool
	// BackupDir defaults to the user cache directory.
	BackupDir string
}

// Info describes the result of a check.
type Info struct {
	CurrentVersion  string    `json:"current_version"`
	LatestVersion   string    `json:"latest_version"`
	ReleaseNotes    string    `json:"release_notes,omitempty"`
	ReleaseURL      string    `json:"release_url,omitempty"`
	PublishedAt     time.Time `json:"published_at"`
	UpdateAvailable bool      `json:"update_available"`
}

// Updater checks, applies and rolls back releases.
type Updater struct {
	source     releases
	repository selfupdate.Repository
	backups    backups
	execPath   func() (string, error)
	current    string
	logger     *slog.Logger
}

// New creates an updater backed by GitHub releases.
func New(opts Options) (*Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, newError(ErrCodeCheckFailed, "failed to create GitHub source", err)
	}
	u, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Prerelease: opts.Prerelease,
	})
	if err != nil {
		return nil, newError(ErrCodeCheckFailed, "failed to create updater", err)
	}
	return newUpdater(u, opts)
}

func newUpdater(source releases, opts Options) (*Updater, error) {
	if opts.Repository == "" {
		opts.Repository = DefaultRepository
	}
	if opts.BackupDir == "" {
		cache, err := os.UserCacheDir()
		if err != nil {
			return nil, newError(ErrCodeBackupFailed, "no cache directory for backups", err)
		}
		opts.BackupDir = filepath.Join(cache, version.AppName, "backup")
	}
	return &Updater{
		source:     source,
		repository: selfupdate.ParseSlug(opts.Repository),
		backups:    backups{dir: opts.BackupDir},
		execPath:   selfupdate.ExecutablePath,
		current:    version.Version,
		logger:     logging.GetLogger("updater"),
	}, nil
}

// Check queries the latest release without downloading it.
func (u *Updater) Check(ctx context.Context) (Info, *selfupdate.Release, error) {
	release, found, err := u.source.DetectLatest(ctx, u.repository)
	if err != nil {
		return Info{}, nil, newError(ErrCodeCheckFailed, "failed to check for updates", err)
	}
	if !found {
		return Info{}, nil, newError(ErrCodeNotFound, "repository not found or has no releases", nil)
	}

	info := Info{
		CurrentVersion: u.current,
		LatestVersion:  release.Version(),
		ReleaseNotes:   release.ReleaseNotes,
		ReleaseURL:     release.URL,
		PublishedAt:    release.PublishedAt,
		// dev builds are always outdated
		UpdateAvailable: u.current == "dev" || release.GreaterThan(u.current),
	}
	return info, release, nil
}

// Apply backs up the running binary and replaces it with the latest
// release. A failed replacement restores the backup.
func (u *Updater) Apply(ctx context.Context) (Info, error) {
	info, release, err := u.Check(ctx)
	if err != nil {
		return info, err
	}
	if !info.UpdateAvailable {
		return info, newError(ErrCodeNoUpdate, "already running "+info.CurrentVersion, nil)
	}

	exe, err := u.execPath()
	if err != nil {
		return info, newError(ErrCodeApplyFailed, "failed to get executable path", err)
	}
	backup, err := u.backups.create(exe, u.current, time.Now())
	if err != nil {
		return info, newError(ErrCodeBackupFailed, "failed to create backup", err)
	}

	if err := u.source.UpdateTo(ctx, release, exe); err != nil {
		if restoreErr := u.backups.restore(backup); restoreErr != nil {
			u.logger.Error("Automatic rollback failed", "error", restoreErr)
		}
		return info, newError(ErrCodeApplyFailed, "failed to apply update", err)
	}

	u.logger.Info("Update applied", "from", info.CurrentVersion, "to", info.LatestVersion)
	return info, nil
}

// Rollback restores the binary saved by the last Apply.
func (u *Updater) Rollback() (BackupInfo, error) {
	backup := u.backups.load()
	if backup == nil {
		return BackupInfo{}, newError(ErrCodeNoBackup, "no backup available for rollback", nil)
	}
	if err := u.backups.restore(backup); err != nil {
		return *backup, newError(ErrCodeRollbackFailed, "failed to restore backup", err)
	}
	u.logger.Info("Rollback completed", "version", backup.Version)
	return *backup, nil
}

// Backup returns the saved binary's metadata, if any.
func (u *Updater) Backup() *BackupInfo {
	return u.backups.load()
}
