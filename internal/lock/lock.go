// Package lock provides file-based locking for slipway operations.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
)

// Lock represents a file-based lock for a named operation.
type Lock struct {
	path string
	file *os.File
}

// New creates a lock for the given operation, stored under locksDir.
func New(locksDir, operation string) *Lock {
	return &Lock{
		path: filepath.Join(locksDir, operation+".lock"),
	}
}

// Acquire attempts to acquire the lock without blocking.
// Returns an error if the lock is already held by another process.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := flockExclusive(f); err != nil {
		f.Close()
		l.file = nil
		operation := filepath.Base(l.path[: len(l.path)-len(".lock")])
		return fmt.Errorf("another %s operation is already running", operation)
	}

	// Write PID to lock file for debugging
	f.Truncate(0)
	f.Seek(0, 0)
	fmt.Fprintf(f, "%d\n", os.Getpid())

	l.file = f
	return nil
}

// Release releases the lock.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}

	if err := funlock(l.file); err != nil {
		l.file.Close()
		return fmt.Errorf("release lock: %w", err)
	}

	l.file.Close()
	os.Remove(l.path)
	l.file = nil

	return nil
}

// WithLock executes a function while holding the lock.
// The lock is automatically released when the function returns.
func WithLock(locksDir, operation string, fn func() error) error {
	lock := New(locksDir, operation)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	return fn()
}
