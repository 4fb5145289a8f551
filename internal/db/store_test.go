package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/metalagman/researchloop/internal/research"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "nested", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewStore(database)
}

func sampleResult(started time.Time) research.Result {
	return research.Result{
		Success:       true,
		Sufficient:    true,
		Question:      "What is Paxos?",
		FinalArtifact: "Paxos is a consensus protocol.",
		History: []research.Round{
			{
				Iteration:      1,
				Artifact:       "draft",
				ArtifactLength: 5,
				Evaluation: research.Evaluation{
					Score:            4,
					Feedback:         "too short",
					StrongPoints:     []string{},
					ImprovementAreas: []string{"history", "examples"},
					Source:           research.SourceStructured,
				},
			},
			{
				Iteration:      2,
				Artifact:       "Paxos is a consensus protocol.",
				ArtifactLength: 30,
				Evaluation: research.Evaluation{
					Score:            8,
					IsSufficient:     true,
					Feedback:         "good",
					StrongPoints:     []string{"clear"},
					ImprovementAreas: []string{},
					Source:           research.SourceTextFallback,
				},
			},
		},
		TotalIterations: 2,
		StartedAt:       started,
		Duration:        1500 * time.Millisecond,
	}
}

func TestStore_SaveAndGetRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, store.SaveRun(ctx, "run-1", sampleResult(started), RunMeta{Provider: "openai", Model: "gpt-4o-mini"}))

	rec, res, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, rec.Status)
	assert.Equal(t, "openai", rec.Provider)
	assert.Equal(t, "gpt-4o-mini", rec.Model)
	require.NotNil(t, rec.FinalScore)
	assert.InDelta(t, 8.0, *rec.FinalScore, 0)
	assert.Equal(t, 1500*time.Millisecond, rec.Duration)
	assert.True(t, rec.CreatedAt.Equal(started))

	assert.True(t, res.Success)
	assert.True(t, res.Sufficient)
	assert.Equal(t, "What is Paxos?", res.Question)
	assert.Equal(t, "Paxos is a consensus protocol.", res.FinalArtifact)
	require.Len(t, res.History, 2)
	assert.Equal(t, []string{"history", "examples"}, res.History[0].Evaluation.ImprovementAreas)
	assert.Equal(t, research.SourceTextFallback, res.History[1].Evaluation.Source)
	assert.True(t, res.History[1].Evaluation.IsSufficient)
	assert.Equal(t, []float64{4, 8}, res.Scores())
}

func TestStore_GetRunMissing(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	_, _, err := store.GetRun(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		res := sampleResult(base.Add(time.Duration(i) * time.Hour))
		require.NoError(t, store.SaveRun(ctx, id, res, RunMeta{}))
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)
}

func TestStore_PruneRunsKeepsNewest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	old := time.Now().UTC().Add(-90 * 24 * time.Hour)

	for i, id := range []string{"r1", "r2", "r3", "r4"} {
		res := sampleResult(old.Add(time.Duration(i) * time.Minute))
		require.NoError(t, store.SaveRun(ctx, id, res, RunMeta{}))
	}

	dry, err := store.PruneRuns(ctx, RetentionPolicy{KeepLast: 1, KeepDays: 30}, true)
	require.NoError(t, err)
	assert.Equal(t, PruneResult{Considered: 4, Kept: 1, Deleted: 3}, dry)

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 4, "dry run must not delete")

	res, err := store.PruneRuns(ctx, RetentionPolicy{KeepLast: 1, KeepDays: 30}, false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Deleted)

	runs, err = store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r4", runs[0].RunID)

	var rounds int
	require.NoError(t, store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM rounds`).Scan(&rounds))
	assert.Equal(t, 2, rounds, "rounds of pruned runs cascade")
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StatusSucceeded, StatusOf(research.Result{Success: true, Sufficient: true}))
	assert.Equal(t, StatusExhausted, StatusOf(research.Result{Success: true}))
	assert.Equal(t, StatusFailed, StatusOf(research.Result{Error: "boom"}))
	assert.Equal(t, StatusInterrupted, StatusOf(research.Result{Interrupted: true}))
}

func TestNewRunID(t *testing.T) {
	t.Parallel()

	a, err := NewRunID()
	require.NoError(t, err)
	b, err := NewRunID()
	require.NoError(t, err)
	assert.Len(t, a, len("20060102-150405-abcdef"))
	assert.NotEqual(t, a, b)
}
