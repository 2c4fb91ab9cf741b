package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAnalysisRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordAnalysis(ctx, Analysis{
		Hash: "aaaa", Source: "basic.robot", OK: true, Robots: 1,
		Symbols: 4, Quads: 9, Duration: 1200 * time.Microsecond,
	}))
	require.NoError(t, s.RecordAnalysis(ctx, Analysis{
		Hash: "bbbb", OK: false, Diagnostics: 3, Duration: 2 * time.Millisecond,
	}))

	recent, err := s.RecentAnalyses(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// Newest first.
	assert.Equal(t, "bbbb", recent[0].Hash)
	assert.False(t, recent[0].OK)
	assert.Equal(t, 3, recent[0].Diagnostics)

	assert.Equal(t, "aaaa", recent[1].Hash)
	assert.Equal(t, "basic.robot", recent[1].Source)
	assert.True(t, recent[1].OK)
	assert.Equal(t, 1, recent[1].Robots)
	assert.Equal(t, 4, recent[1].Symbols)
	assert.Equal(t, 9, recent[1].Quads)
	assert.False(t, recent[1].At.IsZero())
}

func TestAnalysisLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordAnalysis(ctx, Analysis{Hash: "h", OK: true}))
	}
	recent, err := s.RecentAnalyses(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestRunUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, Run{
		ID: "run-1", Outcome: "error", Moves: 2, Error: "move shoulder to 400.0: out of range",
	}))
	// Same id recorded again replaces the earlier outcome.
	require.NoError(t, s.RecordRun(ctx, Run{
		ID: "run-1", Outcome: "ok", Driver: "simulator", Moves: 5, Duration: 3 * time.Second,
	}))
	require.NoError(t, s.RecordRun(ctx, Run{ID: "run-2", Outcome: "canceled", Moves: 1}))

	recent, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	byID := map[string]Run{}
	for _, r := range recent {
		byID[r.ID] = r
	}
	assert.Equal(t, "ok", byID["run-1"].Outcome)
	assert.Equal(t, "simulator", byID["run-1"].Driver)
	assert.Equal(t, 5, byID["run-1"].Moves)
	assert.Empty(t, byID["run-1"].Error)
	assert.Equal(t, "canceled", byID["run-2"].Outcome)
}

func TestRunOutcomeConstraint(t *testing.T) {
	s := newTestStore(t)
	err := s.RecordRun(context.Background(), Run{ID: "run-x", Outcome: "exploded"})
	require.Error(t, err)
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, s.RecordAnalysis(ctx, Analysis{Hash: "h", OK: true}))
	}
	require.NoError(t, s.Prune(ctx, 4))

	recent, err := s.RecentAnalyses(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, recent, 4)
}

func TestMigrateFromVersion1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	// Lay down a version 1 database by hand, with a row recorded under the
	// old schema.
	db, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	_, err = db.Exec(migrations[0])
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO runs (id, outcome, moves, duration_ms, error, created_at)
		VALUES ('run-old', 'ok', 3, 1500, '', '2020-01-05T10:00:00Z')`)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	recent, err := s.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "run-old", recent[0].ID)
	assert.Empty(t, recent[0].Driver)

	// The added columns are live after the upgrade.
	require.NoError(t, s.RecordRun(context.Background(), Run{
		ID: "run-new", Outcome: "ok", Driver: "simulator", Moves: 1,
	}))
	recent, err = s.RecentRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "simulator", recent[0].Driver)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordAnalysis(context.Background(), Analysis{Hash: "persist", OK: true}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	recent, err := s.RecentAnalyses(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "persist", recent[0].Hash)
}

func TestNopRecorder(t *testing.T) {
	var rec Recorder = Nop{}
	ctx := context.Background()

	require.NoError(t, rec.RecordAnalysis(ctx, Analysis{Hash: "x"}))
	analyses, err := rec.RecentAnalyses(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, analyses)
	require.NoError(t, rec.Close())

	// The SQLite store satisfies the same contract.
	var _ Recorder = newTestStore(t)
}
