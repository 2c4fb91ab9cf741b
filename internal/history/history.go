// Package history persists analysis and run outcomes so the workbench and
// API can show what happened across sessions.
package history

import (
	"context"
	"time"
)

// Analysis is one recorded analysis outcome
type Analysis struct {
	ID          int64         `json:"id"`
	Hash        string        `json:"hash"`
	Source      string        `json:"source,omitempty"`
	OK          bool          `json:"ok"`
	Diagnostics int           `json:"diagnostics"`
	Robots      int           `json:"robots"`
	Symbols     int           `json:"symbols"`
	Quads       int           `json:"quads"`
	Duration    time.Duration `json:"duration"`
	At          time.Time     `json:"at"`
}

// Run is one recorded execution outcome
type Run struct {
	ID       string        `json:"id"`
	Outcome  string        `json:"outcome"`
	Driver   string        `json:"driver,omitempty"`
	Moves    int           `json:"moves"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
	At       time.Time     `json:"at"`
}

// Recorder stores and serves back outcomes. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RecordAnalysis(ctx context.Context, a Analysis) error
	RecentAnalyses(ctx context.Context, limit int) ([]Analysis, error)
	RecordRun(ctx context.Context, r Run) error
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
	// Prune drops all but the newest keep records per kind
	Prune(ctx context.Context, keep int) error
	Close() error
}

// Nop discards everything; used when history is disabled
type Nop struct{}

func (Nop) RecordAnalysis(context.Context, Analysis) error { return nil }

func (Nop) RecentAnalyses(context.Context, int) ([]Analysis, error) { return nil, nil }

func (Nop) RecordRun(context.Context, Run) error { return nil }

func (Nop) RecentRuns(context.Context, int) ([]Run, error) { return nil, nil }

func (Nop) Prune(context.Context, int) error { return nil }

func (Nop) Close() error { return nil }
