package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/metalagman/researchloop/internal/db"
	"github.com/metalagman/researchloop/internal/research"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSave_WaitsForJournalLock(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	s := newTestSession(t, &staticGenerator{}, &out)
	s.loop.Config.Store.Enabled = true
	s.loop.Config.Store.Path = filepath.Join(t.TempDir(), "runs.db")

	held, err := db.TryLockJournal(s.loop.Config.Store.Path)
	require.NoError(t, err)

	res := research.Result{
		Success:         true,
		Question:        "What is Go?",
		History:         []research.Round{{Iteration: 1, Artifact: "Go is a language.", Evaluation: research.Evaluation{Score: 8, IsSufficient: true}}},
		TotalIterations: 1,
		Sufficient:      true,
	}
	done := make(chan error, 1)
	go func() { done <- s.loop.save(context.Background(), res) }()

	select {
	case err := <-done:
		t.Fatalf("save finished while the journal was locked: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, held.Release())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("save did not finish after the lock was released")
	}

	store, err := db.OpenStore(s.loop.Config.Store.Path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "What is Go?", runs[0].Question)
}

func TestRecordingRunner_JournalsRuns(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	s := newTestSession(t, &staticGenerator{}, &out)
	s.loop.Config.Store.Enabled = true
	s.loop.Config.Store.Path = filepath.Join(t.TempDir(), "runs.db")

	res, err := recordingRunner{loop: s.loop}.Run(context.Background(), "What is MCP?")
	require.NoError(t, err)
	assert.True(t, res.Sufficient)

	store, err := db.OpenStore(s.loop.Config.Store.Path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "What is MCP?", runs[0].Question)
	assert.Equal(t, "static", runs[0].Provider)
}

func TestPrune_RefusesWhileSaveHoldsJournal(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "runs.db")
	saving, err := db.LockJournal(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = saving.Release() })

	_, err = db.TryLockJournal(path)
	require.ErrorIs(t, err, db.ErrJournalBusy)
}
