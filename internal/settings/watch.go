package settings

import (
	"log/slog"
	"os"

	"github.com/smazurov/pomodorox/internal/config"
)

// WatchFile adopts edits made to the blob file at path by other processes.
// The controller's own writes come back as no-op adoptions.
func WatchFile(c *Controller, path string, logger *slog.Logger) (*config.Watcher[Config], error) {
	w := config.NewConfigWatcher(path, readFile, logger)
	w.OnReload(adoptFile(c, path))
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}

func readFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Decode(data)
}

// adoptFile re-reads path under the controller's write lock. The debounced
// config handed in by the watcher may predate a later Apply.
func adoptFile(c *Controller, path string) func(Config) {
	return func(Config) {
		_, _, err := c.adoptFrom(SourceFile, func() (Config, error) { return readFile(path) })
		if err != nil {
			c.logger.Warn("Failed to re-read settings file", "path", path, "error", err)
		}
	}
}
