// Package logging configures the process-wide zerolog logger and hands out
// component-scoped children. Configure is called once from the command
// layer; everything else derives from Base so level and output stay
// consistent across the process.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls the process logger
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error. Empty
	// falls back to the LOG_LEVEL environment variable, then "info".
	Level string
	// Output receives the log stream; defaults to stderr
	Output io.Writer
	// Console switches to the human-readable console writer
	Console bool
	// Service is stamped on every line
	Service string
	// Version is stamped on every line when set
	Version string
}

var (
	mu   sync.RWMutex
	base zerolog.Logger
	done bool
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Configure installs the process logger. The first call wins; later calls
// are ignored so libraries cannot re-route logs configured by main.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if done {
		return
	}
	done = true

	level := cfg.Level
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	// The minimum level lives on zerolog's global gate, not on the logger
	// itself. Children copy base when derived, so only the global gate can
	// re-level them after the fact.
	zerolog.SetGlobalLevel(parsed)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str(FieldService, cfg.Service)
	}
	if cfg.Version != "" {
		ctx = ctx.Str(FieldVersion, cfg.Version)
	}
	base = ctx.Logger()
}

// SetLevel re-levels every logger in the process, including component
// children handed out before the call. Config reload uses it to apply an
// edited log level without restarting components.
func SetLevel(level string) error {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		return fmt.Errorf("unknown log level %q", level)
	}
	zerolog.SetGlobalLevel(parsed)
	return nil
}

// Base returns the process logger
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent returns a child logger stamped with the component name
func WithComponent(name string) zerolog.Logger {
	return Base().With().Str(FieldComponent, name).Logger()
}

// Derive returns a child logger extended by the caller
func Derive(build func(zerolog.Context) zerolog.Context) zerolog.Logger {
	return build(Base().With()).Logger()
}
