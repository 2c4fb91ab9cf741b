package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/renameio/v2"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out: %s", msg)
}

func tempProgramFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.robot")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	return path
}

func TestFileWatcherSeesEdit(t *testing.T) {
	path := tempProgramFile(t, "Robot ARM\n")

	var hits atomic.Int32
	w, err := NewFileWatcher(path, 50*time.Millisecond, func() { hits.Add(1) })
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("Robot ARM\nARM.base = 90\n"), 0o644); err != nil {
		t.Fatalf("failed to edit file: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return hits.Load() >= 1 },
		"edit was never reported")
}

func TestFileWatcherCollapsesBursts(t *testing.T) {
	path := tempProgramFile(t, "Robot ARM\n")

	var hits atomic.Int32
	w, err := NewFileWatcher(path, 200*time.Millisecond, func() { hits.Add(1) })
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	// an editor save sequence: several writes well inside the window
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("Robot ARM\n"), 0o644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	waitFor(t, 2*time.Second, func() bool { return hits.Load() >= 1 },
		"burst was never reported")

	// no trailing callbacks once the window has passed
	time.Sleep(500 * time.Millisecond)
	if got := hits.Load(); got != 1 {
		t.Errorf("expected the burst to collapse into 1 callback, got %d", got)
	}
}

func TestFileWatcherSurvivesAtomicReplace(t *testing.T) {
	path := tempProgramFile(t, "Robot ARM\n")

	var hits atomic.Int32
	w, err := NewFileWatcher(path, 50*time.Millisecond, func() { hits.Add(1) })
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	// replace swaps the inode; the watch has to follow the path
	if err := renameio.WriteFile(path, []byte("Robot ARM\nARM.base = 45\n"), 0o644); err != nil {
		t.Fatalf("atomic replace failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return hits.Load() >= 1 },
		"first replace was never reported")

	if err := renameio.WriteFile(path, []byte("Robot ARM\nARM.base = -45\n"), 0o644); err != nil {
		t.Fatalf("second atomic replace failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return hits.Load() >= 2 },
		"replace after re-watch was never reported")
}

func TestFileWatcherStops(t *testing.T) {
	path := tempProgramFile(t, "Robot ARM\n")

	w, err := NewFileWatcher(path, 50*time.Millisecond, func() {})
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	start := time.Now()
	if err := w.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("Stop took too long: %v", elapsed)
	}
}

func TestNewFileWatcherValidation(t *testing.T) {
	if _, err := NewFileWatcher("", time.Second, func() {}); err == nil {
		t.Error("expected an error for an empty path")
	}
	if _, err := NewFileWatcher("/tmp/x.robot", time.Second, nil); err == nil {
		t.Error("expected an error for a nil callback")
	}

	w, err := NewFileWatcher("/tmp/x.robot", 0, func() {})
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}
	if w.debounce != DefaultDebounce {
		t.Errorf("expected the default debounce %v, got %v", DefaultDebounce, w.debounce)
	}
}

func TestWatchAppliesEdits(t *testing.T) {
	path := tempProgramFile(t, "log_level: debug\n")

	var mu sync.Mutex
	var levels []string
	apply := func(cfg *Config) error {
		mu.Lock()
		defer mu.Unlock()
		levels = append(levels, cfg.LogLevel)
		return nil
	}
	applied := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(levels)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := Watch(ctx, path, 80*time.Millisecond, apply)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer w.Stop()

	if applied() != 1 {
		t.Fatalf("expected the initial config to be applied once, got %d", applied())
	}

	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0o644); err != nil {
		t.Fatalf("failed to edit config: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return applied() >= 2 },
		"valid edit was never applied")

	// an invalid edit is rejected and the previous config stays in effect
	if err := os.WriteFile(path, []byte("history:\n  backend: redis\n"), 0o644); err != nil {
		t.Fatalf("failed to write invalid config: %v", err)
	}
	time.Sleep(400 * time.Millisecond)
	if applied() != 2 {
		t.Errorf("expected the invalid edit to be skipped, got %d applies", applied())
	}

	if err := os.WriteFile(path, []byte("log_level: error\n"), 0o644); err != nil {
		t.Fatalf("failed to write recovery config: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return applied() >= 3 },
		"recovery edit was never applied")

	mu.Lock()
	defer mu.Unlock()
	if levels[0] != "debug" || levels[1] != "warn" || levels[2] != "error" {
		t.Errorf("unexpected apply sequence: %v", levels)
	}
}

func TestWatchInitialLoadFailure(t *testing.T) {
	_, err := Watch(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"),
		50*time.Millisecond, func(*Config) error { return nil })
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestWatchInitialApplyFailure(t *testing.T) {
	path := tempProgramFile(t, "log_level: debug\n")

	_, err := Watch(context.Background(), path, 50*time.Millisecond,
		func(*Config) error { return os.ErrClosed })
	if err == nil {
		t.Fatal("expected the initial apply error to fail Watch")
	}
}
