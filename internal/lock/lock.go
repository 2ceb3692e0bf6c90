// Package lock provides the process-wide agent lock held while a model is
// writing to the book store.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

const lockFile = "agent.lock"

// ErrBusy is returned by Acquire when another process holds the lock.
var ErrBusy = errors.New("another agent run is in progress")

// AgentLock is an exclusive flock on <dataDir>/locks/agent.lock.
type AgentLock struct {
	file *os.File
}

// Acquire takes the lock without blocking and fails with ErrBusy when it is held.
func Acquire(dataDir string) (*AgentLock, error) {
	l, ok, err := TryAcquire(dataDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusy
	}
	return l, nil
}

// TryAcquire attempts to take the lock. ok is false when it is held elsewhere.
func TryAcquire(dataDir string) (*AgentLock, bool, error) {
	locksDir := filepath.Join(dataDir, "locks")
	if err := os.MkdirAll(locksDir, 0o755); err != nil {
		return nil, false, fmt.Errorf("create locks dir: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(locksDir, lockFile), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lock %s: %w", lockFile, err)
	}
	return &AgentLock{file: file}, true, nil
}

// Release releases the lock.
func (l *AgentLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = l.file.Close()
		return err
	}
	err := l.file.Close()
	l.file = nil
	return err
}
