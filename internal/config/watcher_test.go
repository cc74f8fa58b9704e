package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type blob struct {
	WorkDelay int `json:"work_delay"`
}

func loadBlob(path string) (blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return blob{}, err
	}
	var b blob
	err = json.Unmarshal(data, &b)
	return b, err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeBlob(t *testing.T, path string, workDelay int) {
	t.Helper()
	if err := os.WriteFile(path, fmt.Appendf(nil, `{"work_delay":%d}`, workDelay), 0o644); err != nil {
		t.Fatal(err)
	}
}

// replaceBlob writes through a temp file and renames it over path.
func replaceBlob(t *testing.T, path string, workDelay int) {
	t.Helper()
	tmp := path + ".tmp"
	writeBlob(t, tmp, workDelay)
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
}

func startWatcher(t *testing.T, path string, opts ...WatcherOption[blob]) *Watcher[blob] {
	t.Helper()
	opts = append([]WatcherOption[blob]{WithDebounce[blob](50 * time.Millisecond)}, opts...)
	w := NewConfigWatcher(path, loadBlob, newTestLogger(), opts...)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	})
	time.Sleep(50 * time.Millisecond)
	return w
}

func waitFor(t *testing.T, ch <-chan blob) blob {
	t.Helper()
	select {
	case b := <-ch:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
		return blob{}
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeBlob(t, path, 1)

	received := make(chan blob, 4)
	w := startWatcher(t, path)
	w.OnReload(func(b blob) { received <- b })

	writeBlob(t, path, 42)
	if got := waitFor(t, received); got.WorkDelay != 42 {
		t.Errorf("WorkDelay = %d, want 42", got.WorkDelay)
	}
}

func TestWatcherSurvivesAtomicReplace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeBlob(t, path, 1)

	received := make(chan blob, 4)
	w := startWatcher(t, path)
	w.OnReload(func(b blob) { received <- b })

	replaceBlob(t, path, 10)
	if got := waitFor(t, received); got.WorkDelay != 10 {
		t.Fatalf("first replace WorkDelay = %d", got.WorkDelay)
	}

	replaceBlob(t, path, 20)
	if got := waitFor(t, received); got.WorkDelay != 20 {
		t.Errorf("second replace WorkDelay = %d, want 20", got.WorkDelay)
	}
}

func TestWatcherFileCreatedLater(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	received := make(chan blob, 4)
	w := startWatcher(t, path)
	w.OnReload(func(b blob) { received <- b })

	writeBlob(t, path, 7)
	if got := waitFor(t, received); got.WorkDelay != 7 {
		t.Errorf("WorkDelay = %d, want 7", got.WorkDelay)
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	writeBlob(t, path, 1)

	var calls atomic.Int32
	w := startWatcher(t, path)
	w.OnReload(func(blob) { calls.Add(1) })

	writeBlob(t, filepath.Join(dir, "other.json"), 5)
	time.Sleep(200 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Errorf("handler called %d times for a sibling file", got)
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeBlob(t, path, 1)

	var kept, dropped atomic.Int32
	w := startWatcher(t, path)
	w.OnReload(func(blob) { kept.Add(1) })
	unsub := w.OnReload(func(blob) { dropped.Add(1) })

	writeBlob(t, path, 2)
	time.Sleep(200 * time.Millisecond)
	unsub()
	writeBlob(t, path, 3)
	time.Sleep(200 * time.Millisecond)

	if kept.Load() != 2 || dropped.Load() != 1 {
		t.Errorf("calls kept=%d dropped=%d, want 2 and 1", kept.Load(), dropped.Load())
	}
}

func TestWatcherErrorHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeBlob(t, path, 1)

	errs := make(chan error, 1)
	received := make(chan blob, 1)
	w := startWatcher(t, path, WithErrorHandler[blob](func(err error) { errs <- err }))
	w.OnReload(func(b blob) { received <- b })

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-errs:
	case <-received:
		t.Fatal("handler called for a file that failed to load")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestWatcherDebounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeBlob(t, path, 0)

	var calls, last atomic.Int32
	w := startWatcher(t, path, WithDebounce[blob](200*time.Millisecond))
	w.OnReload(func(b blob) {
		calls.Add(1)
		last.Store(int32(b.WorkDelay))
	})

	for i := 1; i <= 5; i++ {
		writeBlob(t, path, i)
		time.Sleep(30 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 debounced call", got)
	}
	if got := last.Load(); got != 5 {
		t.Errorf("last = %d, want 5", got)
	}
}

func TestWatcherStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "config.json")
	writeBlob(t, path, 1)

	var calls atomic.Int32
	w := NewConfigWatcher(path, loadBlob, newTestLogger(), WithDebounce[blob](20*time.Millisecond))
	w.OnReload(func(blob) { calls.Add(1) })
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}

	writeBlob(t, path, 9)
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("handler called %d times after Stop", got)
	}
}
