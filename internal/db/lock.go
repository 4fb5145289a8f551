package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// ErrJournalBusy is returned by TryLockJournal when another process holds the lock.
var ErrJournalBusy = errors.New("run journal is locked by another process")

// JournalLock is an exclusive advisory lock on a journal database.
type JournalLock struct {
	file *os.File
}

func openLockFile(dbPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	file, err := os.OpenFile(dbPath+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return file, nil
}

// LockJournal blocks until it holds the lock for the journal at dbPath.
func LockJournal(dbPath string) (*JournalLock, error) {
	file, err := openLockFile(dbPath)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("lock journal: %w", err)
	}
	return &JournalLock{file: file}, nil
}

// TryLockJournal acquires the lock without blocking.
func TryLockJournal(dbPath string) (*JournalLock, error) {
	file, err := openLockFile(dbPath)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, ErrJournalBusy
		}
		return nil, fmt.Errorf("lock journal: %w", err)
	}
	return &JournalLock{file: file}, nil
}

// Release releases the lock.
func (l *JournalLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = l.file.Close()
		return err
	}
	return l.file.Close()
}
