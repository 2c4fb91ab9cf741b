package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/mbeltran/armlex/internal/logging"
)

const (
	// DefaultDebounce collapses editor save bursts into one callback
	DefaultDebounce = 500 * time.Millisecond

	watcherStartTimeout = 5 * time.Second
	watcherStopTimeout  = 5 * time.Second
	// rewatchDelay gives an atomic replace time to land the new file
	// before the watch is re-installed
	rewatchDelay = 50 * time.Millisecond
)

// FileWatcher invokes a callback when one file changes on disk. Change
// bursts inside the debounce window collapse into a single callback, and
// the watch survives atomic replaces where the inode changes. The watcher
// does not read the file; callers reload what they need in the callback.
//
// analyze --watch and the TUI watch the program file this way; Watch
// builds on it for live config reload.
type FileWatcher struct {
	path     string
	debounce time.Duration
	onChange func()
	log      zerolog.Logger

	cancel  context.CancelFunc
	stopped chan struct{}
	ready   chan struct{}
	once    sync.Once

	mu       sync.Mutex
	timer    *time.Timer
	setupErr error
}

// NewFileWatcher prepares a watcher for path. A debounce of zero or less
// selects DefaultDebounce.
func NewFileWatcher(path string, debounce time.Duration, onChange func()) (*FileWatcher, error) {
	if path == "" {
		return nil, NewConfigError("watch path cannot be empty")
	}
	if onChange == nil {
		return nil, NewConfigError("watch callback cannot be nil")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &FileWatcher{
		path:     path,
		debounce: debounce,
		onChange: onChange,
		log:      logging.WithComponent("watcher"),
		stopped:  make(chan struct{}),
		ready:    make(chan struct{}),
	}, nil
}

// Start installs the watch and returns once it is live, so edits made
// right after Start cannot be missed. The watch runs until Stop or until
// ctx ends.
func (w *FileWatcher) Start(ctx context.Context) error {
	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.loop(watchCtx)

	select {
	case <-w.ready:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(watcherStartTimeout):
		return NewConfigError("timed out waiting for the file watch to install")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.setupErr
}

// Stop tears the watch down and waits for the loop to exit
func (w *FileWatcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	select {
	case <-w.stopped:
		return nil
	case <-time.After(watcherStopTimeout):
		return NewConfigError("timed out waiting for the watcher to stop")
	}
}

func (w *FileWatcher) loop(ctx context.Context) {
	defer close(w.stopped)
	defer w.signalReady()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.fail(fmt.Errorf("create watcher: %w", err))
		return
	}
	defer fsw.Close()

	if err := fsw.Add(w.path); err != nil {
		w.fail(fmt.Errorf("watch %s: %w", w.path, err))
		return
	}

	w.log.Debug().Str(logging.FieldPath, w.path).
		Dur("debounce", w.debounce).Msg("watching file")
	w.signalReady()

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove
			if ev.Op&relevant == 0 {
				continue
			}
			// An atomic replace unlinks the watched inode, so the watch
			// must move to the file that took its place.
			if ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				time.Sleep(rewatchDelay)
				if err := fsw.Add(w.path); err != nil {
					w.log.Warn().Err(err).Str(logging.FieldPath, w.path).
						Msg("re-adding watch after replace failed")
				}
			}
			w.bump()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Str(logging.FieldPath, w.path).Msg("watcher error")
		}
	}
}

// bump restarts the debounce window; the callback fires when a window
// passes with no further events
func (w *FileWatcher) bump() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

func (w *FileWatcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *FileWatcher) fail(err error) {
	w.mu.Lock()
	w.setupErr = err
	w.mu.Unlock()
	w.log.Error().Err(err).Str(logging.FieldPath, w.path).Msg("file watch failed")
}

func (w *FileWatcher) signalReady() {
	w.once.Do(func() { close(w.ready) })
}

// ApplyFunc receives each successfully loaded configuration
type ApplyFunc func(cfg *Config) error

// Watch loads path, hands the result to apply, and keeps re-loading on
// every edit until ctx ends or the returned watcher is stopped. The
// initial load is strict; after that, edits that fail to load, validate,
// or apply are logged and skipped so the last good configuration stays in
// effect.
func Watch(ctx context.Context, path string, debounce time.Duration, apply ApplyFunc) (*FileWatcher, error) {
	initial, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := apply(initial); err != nil {
		return nil, fmt.Errorf("apply initial config: %w", err)
	}

	log := logging.WithComponent("config")
	w, err := NewFileWatcher(path, debounce, func() {
		cfg, err := Load(path)
		if err != nil {
			log.Warn().Err(err).Str(logging.FieldPath, path).
				Msg("config edit rejected, keeping previous")
			return
		}
		if err := apply(cfg); err != nil {
			log.Warn().Err(err).Str(logging.FieldPath, path).
				Msg("config apply failed, keeping previous")
			return
		}
		log.Info().Str(logging.FieldPath, path).Msg("config reloaded")
	})
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}
