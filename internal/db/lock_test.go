package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTryLockJournal_Exclusive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "runs.db")

	first, err := TryLockJournal(path)
	require.NoError(t, err)

	_, err = TryLockJournal(path)
	require.ErrorIs(t, err, ErrJournalBusy)

	require.NoError(t, first.Release())

	second, err := LockJournal(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

func TestJournalLock_ReleaseNil(t *testing.T) {
	t.Parallel()

	var l *JournalLock
	require.NoError(t, l.Release())
}
