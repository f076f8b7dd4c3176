package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bitriver/slipway/internal/config"
	"github.com/bitriver/slipway/internal/lock"
	"github.com/bitriver/slipway/internal/snapshot"
	"github.com/bitriver/slipway/internal/ui"
)

var rollbackList bool

// rollbackCmd restores a previous config snapshot.
var rollbackCmd = &cobra.Command{
	Use:     "rollback [snapshot]",
	Aliases: []string{"restore"},
	Short:   "Restore a previous config snapshot",
	Long: `Restore the OME config directory from a snapshot.

Snapshots are taken automatically before every render. Without an
argument an interactive picker is shown; the current state is backed
up before the restore so a rollback can itself be rolled back.

Examples:
  slipway rollback --list
  slipway rollback
  slipway rollback snapshot-20260830-143015.123456789`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRollback,
}

func init() {
	rollbackCmd.Flags().BoolVarP(&rollbackList, "list", "l", false, "List available snapshots")

	rootCmd.AddCommand(rollbackCmd)
}

func runRollback(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("locate deployment root: %w", err)
	}

	store := snapshot.New(cfg.SnapshotsDir(), cfg.OMEDir)

	snapshots, err := store.List()
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}

	if rollbackList {
		showSnapshots(snapshots)
		return nil
	}

	if len(snapshots) == 0 {
		return fmt.Errorf("no snapshots available (snapshots are created automatically before each render)")
	}

	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	if target == "" || target == "interactive" {
		target = promptForSnapshot(snapshots)
		if target == "" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	found := false
	for _, snap := range snapshots {
		if snap.Name == target {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("snapshot not found: %s", target)
	}

	ui.Yellow.Printf("Rolling back to: %s\n", target)
	fmt.Println()

	err = lock.WithLock(cfg.LocksDir(), "render", func() error {
		return store.Restore(target)
	})
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}

	ui.Reel("Rollback complete")
	ui.Yellow.Println("Note: run 'slipway stack restart ome' to apply the restored configuration")
	return nil
}

func showSnapshots(snapshots []snapshot.Info) {
	if len(snapshots) == 0 {
		ui.Yellow.Println("No snapshots found")
		fmt.Println("Snapshots are created automatically before each render")
		return
	}

	ui.Snapshot("Available snapshots:")
	fmt.Println()

	for i, snap := range snapshots {
		if i >= 10 {
			fmt.Printf("  ... and %d more\n", len(snapshots)-10)
			break
		}

		ui.Green.Printf("  %s\n", snap.Name)
		fmt.Printf("    Created: %s\n", snap.Created.Format("2006-01-02 15:04:05"))
		fmt.Printf("    Files: %d\n", snap.FileCount)
		fmt.Println()
	}
}

func promptForSnapshot(snapshots []snapshot.Info) string {
	ui.Blue.Println("Available snapshots:")
	fmt.Println()

	maxShow := 5
	if len(snapshots) < maxShow {
		maxShow = len(snapshots)
	}

	for i := 0; i < maxShow; i++ {
		snap := snapshots[i]
		fmt.Printf("  %d) %s (%s)\n", i+1, snap.Name, snap.Created.Format("2006-01-02 15:04:05"))
	}
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("Select snapshot (1-%d, or name): ", maxShow)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return ""
	}

	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= maxShow {
		return snapshots[n-1].Name
	}

	return input
}
