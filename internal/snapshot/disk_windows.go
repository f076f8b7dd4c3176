//go:build windows

package snapshot

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// checkDiskSpace checks if there's enough disk space available.
func checkDiskSpace(dir string, requiredBytes int64) error {
	var free, total, totalFree uint64
	path, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return fmt.Errorf("failed to check disk space: %w", err)
	}
	if err := windows.GetDiskFreeSpaceEx(path, &free, &total, &totalFree); err != nil {
		return fmt.Errorf("failed to check disk space: %w", err)
	}

	if int64(free) < requiredBytes {
		return fmt.Errorf("need %d bytes, only %d available", requiredBytes, free)
	}
	return nil
}
