package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchFileAdoptsExternalEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"debug":true,"work_delay":1000,"rest_delay":1000}`), 0o644); err != nil {
		t.Fatal(err)
	}

	store := &mockStore{data: []byte(`{"debug":true,"work_delay":1000,"rest_delay":1000}`)}
	c := newTestController(store)
	c.LoadOnBoot(context.Background())

	w, err := WatchFile(c, path, c.logger)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte(`{"debug":false,"work_delay":4000,"rest_delay":1000}`), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if c.WorkDelay() == 4*time.Second {
			if c.Debug() {
				t.Error("debug flag not adopted")
			}
			if store.writes != 0 {
				t.Error("adopted config was written back")
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("WorkDelay = %v, external edit never adopted", c.WorkDelay())
}

// fileStore persists straight to the watched path.
type fileStore struct {
	path string
}

func (f fileStore) Read(_ context.Context) ([]byte, error) { return os.ReadFile(f.path) }

func (f fileStore) Write(_ context.Context, data []byte) error {
	return os.WriteFile(f.path, data, 0o644)
}

func (f fileStore) Close() error { return nil }

func TestStaleFileEventKeepsLaterApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"debug":true,"work_delay":1000,"rest_delay":1000}`), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newTestController(fileStore{path: path})
	stale := c.LoadOnBoot(context.Background())

	applied := Config{Debug: false, WorkDelay: 7 * time.Second, RestDelay: 2 * time.Second}
	if result := c.Apply(context.Background(), applied, SourceAPI); !result.Persisted {
		t.Fatalf("Apply() not persisted: %v", result.PersistErr)
	}

	// the watcher delivers the blob it read before Apply
	adoptFile(c, path)(stale)

	if got := c.Current(); got != applied {
		t.Errorf("Current() = %+v, want %+v", got, applied)
	}
}

func TestAdoptFileKeepsConfigOnBadBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"debug":`), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newTestController(&mockStore{})
	before := c.Current()
	adoptFile(c, path)(Config{WorkDelay: time.Second, RestDelay: time.Second})

	if got := c.Current(); got != before {
		t.Errorf("Current() = %+v, want %+v", got, before)
	}
}
