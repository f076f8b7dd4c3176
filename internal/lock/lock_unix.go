//go:build !windows

package lock

import (
	"os"
	"syscall"
)

// flockExclusive takes a non-blocking exclusive flock(2) on f.
func flockExclusive(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

// funlock releases the flock on f.
func funlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
