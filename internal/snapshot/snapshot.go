// Package snapshot manages point-in-time copies of the rendered
// OvenMediaEngine config directory, used by rollback.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bitriver/slipway/internal/fileutil"
)

const (
	// Prefix is the prefix for snapshot directory names.
	Prefix = "snapshot-"
	// DateFormat includes nanoseconds to prevent same-second collisions.
	DateFormat = "20060102-150405.000000000"
	// MaxSnapshots is the maximum number of snapshots to retain.
	MaxSnapshots = 20
	// MinFreeDiskBytes is the minimum free disk space required (100MB).
	MinFreeDiskBytes = 100 * 1024 * 1024
)

// Info holds metadata about a snapshot.
type Info struct {
	Name      string
	Path      string
	Created   time.Time
	FileCount int
}

// Store manages snapshots of a config directory.
type Store struct {
	// Dir is where snapshots are kept.
	Dir string
	// Source is the directory being snapshotted and restored.
	Source string
}

// New creates a store that snapshots source into dir.
func New(dir, source string) *Store {
	return &Store{Dir: dir, Source: source}
}

// Create takes a snapshot of the source directory.
// Returns the snapshot name, or an empty string if there was nothing to
// snapshot.
func (s *Store) Create() (string, error) {
	if !dirHasContent(s.Source) {
		return "", nil
	}

	srcSize, err := getDirSize(s.Source)
	if err != nil {
		return "", fmt.Errorf("calculate config directory size: %w", err)
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshots directory: %w", err)
	}

	if err := checkDiskSpace(s.Dir, srcSize+MinFreeDiskBytes); err != nil {
		return "", fmt.Errorf("insufficient disk space for snapshot: %w", err)
	}

	name := Prefix + time.Now().Format(DateFormat)
	path := filepath.Join(s.Dir, name)

	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}

	if err := fileutil.CopyDir(s.Source, path); err != nil {
		if cleanupErr := os.RemoveAll(path); cleanupErr != nil {
			return "", fmt.Errorf("copy config to snapshot: %w (cleanup also failed: %v)", err, cleanupErr)
		}
		return "", fmt.Errorf("copy config to snapshot: %w", err)
	}

	if err := s.Cleanup(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to cleanup old snapshots: %v\n", err)
	}

	return name, nil
}

// List returns available snapshots sorted by date (newest first).
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshots directory: %w", err)
	}

	var snapshots []Info
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), Prefix) {
			continue
		}

		path := filepath.Join(s.Dir, entry.Name())
		fileInfo, err := entry.Info()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot read snapshot %s: %v\n", entry.Name(), err)
			continue
		}

		created, err := time.Parse(DateFormat, strings.TrimPrefix(entry.Name(), Prefix))
		if err != nil {
			created = fileInfo.ModTime()
		}

		snapshots = append(snapshots, Info{
			Name:      entry.Name(),
			Path:      path,
			Created:   created,
			FileCount: countFiles(path),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Created.After(snapshots[j].Created)
	})

	return snapshots, nil
}

// Restore restores a snapshot atomically, creating a pre-rollback backup
// of the current config first. Uses temp directory + rename so a failure
// cannot leave the config directory half-restored.
func (s *Store) Restore(name string) error {
	snapshotPath := filepath.Join(s.Dir, name)

	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		return fmt.Errorf("snapshot not found: %s", name)
	}

	snapshotSize, err := getDirSize(snapshotPath)
	if err != nil {
		return fmt.Errorf("calculate snapshot size: %w", err)
	}
	if err := checkDiskSpace(filepath.Dir(s.Source), snapshotSize+MinFreeDiskBytes); err != nil {
		return fmt.Errorf("insufficient disk space for restore: %w", err)
	}

	// Pre-rollback backup of the current config.
	if dirHasContent(s.Source) {
		backupPath := filepath.Join(s.Dir, "pre-rollback-"+time.Now().Format(DateFormat))

		if err := os.MkdirAll(backupPath, 0755); err != nil {
			return fmt.Errorf("create backup directory: %w", err)
		}
		if err := fileutil.CopyDir(s.Source, backupPath); err != nil {
			os.RemoveAll(backupPath)
			return fmt.Errorf("create pre-rollback backup: %w", err)
		}
	}

	restoreID := uuid.New().String()[:8]
	tempDir := s.Source + ".restore-temp-" + restoreID
	oldDir := s.Source + ".restore-old-" + restoreID

	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return fmt.Errorf("create temp restore directory: %w", err)
	}
	if err := fileutil.CopyDir(snapshotPath, tempDir); err != nil {
		os.RemoveAll(tempDir)
		return fmt.Errorf("copy snapshot to temp: %w", err)
	}

	_, statErr := os.Stat(s.Source)
	sourceExists := statErr == nil

	if sourceExists {
		if err := os.Rename(s.Source, oldDir); err != nil {
			os.RemoveAll(tempDir)
			return fmt.Errorf("rename current config: %w", err)
		}
	}

	if err := os.Rename(tempDir, s.Source); err != nil {
		if sourceExists {
			if recoverErr := os.Rename(oldDir, s.Source); recoverErr != nil {
				os.RemoveAll(tempDir)
				return fmt.Errorf("rename temp to config: %w (recovery also failed: %v)", err, recoverErr)
			}
		}
		os.RemoveAll(tempDir)
		return fmt.Errorf("rename temp to config: %w", err)
	}

	if sourceExists {
		os.RemoveAll(oldDir)
	}

	return nil
}

// Cleanup removes snapshots beyond the retention limit.
// Continues deleting even if individual removals fail, returning a
// summary of all errors.
func (s *Store) Cleanup() error {
	snapshots, err := s.List()
	if err != nil {
		return err
	}

	if len(snapshots) <= MaxSnapshots {
		return nil
	}

	var errs []string
	for _, snap := range snapshots[MaxSnapshots:] {
		if err := removeWithRetry(snap.Path, 3); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", snap.Name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to remove %d snapshot(s): %s", len(errs), strings.Join(errs, "; "))
	}

	return nil
}

// dirHasContent checks if a directory exists and has at least one entry.
func dirHasContent(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// countFiles counts the number of files in a directory tree.
func countFiles(dir string) int {
	count := 0
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			count++
		}
		return nil
	})
	return count
}

// getDirSize calculates the total size of a directory tree.
func getDirSize(dir string) (int64, error) {
	var size int64
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// removeWithRetry attempts to remove a directory with retries for
// transient failures.
func removeWithRetry(path string, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := os.RemoveAll(path); err != nil {
			lastErr = err
			time.Sleep(time.Duration(10*(1<<i)) * time.Millisecond)
			continue
		}
		return nil
	}
	return lastErr
}
