package history

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Recorder for sessions that should leave no file
// behind. Same contract as the sqlite store: newest first, run ids replace
// earlier records, zero At defaults to now.
type Memory struct {
	mu       sync.RWMutex
	nextID   int64
	analyses []Analysis
	runs     []Run
}

// NewMemory returns an empty in-process journal
func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

func (m *Memory) RecordAnalysis(_ context.Context, a Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.At.IsZero() {
		a.At = time.Now()
	}
	a.ID = m.nextID
	m.nextID++
	m.analyses = append(m.analyses, a)
	return nil
}

func (m *Memory) RecentAnalyses(_ context.Context, limit int) ([]Analysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lastN(m.analyses, limit), nil
}

func (m *Memory) RecordRun(_ context.Context, r Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.At.IsZero() {
		r.At = time.Now()
	}
	for i := range m.runs {
		if m.runs[i].ID == r.ID {
			at := m.runs[i].At
			m.runs[i] = r
			m.runs[i].At = at
			return nil
		}
	}
	m.runs = append(m.runs, r)
	return nil
}

func (m *Memory) RecentRuns(_ context.Context, limit int) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lastN(m.runs, limit), nil
}

func (m *Memory) Prune(_ context.Context, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if keep < 0 {
		keep = 0
	}
	if len(m.analyses) > keep {
		m.analyses = append([]Analysis(nil), m.analyses[len(m.analyses)-keep:]...)
	}
	if len(m.runs) > keep {
		m.runs = append([]Run(nil), m.runs[len(m.runs)-keep:]...)
	}
	return nil
}

func (m *Memory) Close() error { return nil }

// lastN copies the newest limit entries, newest first
func lastN[T any](recs []T, limit int) []T {
	if limit < 0 {
		limit = 0
	}
	if limit > len(recs) {
		limit = len(recs)
	}
	out := make([]T, 0, limit)
	for i := len(recs) - 1; i >= len(recs)-limit; i-- {
		out = append(out, recs[i])
	}
	return out
}
