package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bitriver/slipway/internal/ui"
	"github.com/bitriver/slipway/internal/update"
)

var updateCmd = &cobra.Command{
	Use:     "update",
	Aliases: []string{"upgrade", "selfupdate"},
	Short:   "Update slipway to the latest version",
	Long: `Update slipway to the latest version from GitHub releases.

This command will:
1. Check for a newer version on GitHub
2. Download the appropriate binary for your platform
3. Replace the current binary with the new version

Examples:
  slipway update           # Update to latest version
  slipway update --check   # Check for updates without installing`,
	Run: runUpdate,
}

var checkOnly bool

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().BoolVar(&checkOnly, "check", false, "Only check for updates, don't install")
}

func runUpdate(cmd *cobra.Command, args []string) {
	currentVersion := version

	ui.Blue.Printf("Current version: %s (%s)\n", currentVersion, update.Platform())

	if checkOnly {
		checkForUpdate(cmd.Context(), currentVersion)
		return
	}

	performUpdate(cmd.Context(), currentVersion)
}

func checkForUpdate(ctx context.Context, currentVersion string) {
	ui.Blue.Println("Checking for updates...")

	release, available, err := update.Check(ctx, currentVersion)
	if err != nil {
		ui.Error("Failed to check for updates: %v", err)
		return
	}

	if !available {
		ui.Success("You're running the latest version!")
		return
	}

	ui.Success("New version available: %s (released %s)", release.Version, release.PublishedAt)
	fmt.Println()
	ui.Blue.Println("To update, run: slipway update")
	fmt.Println()

	printChangelog(release.Changelog)
}

func performUpdate(ctx context.Context, currentVersion string) {
	ui.Blue.Println("Checking for updates...")

	release, err := update.Apply(ctx, currentVersion)
	if err != nil {
		ui.Error("Update failed: %v", err)
		return
	}

	if release == nil {
		ui.Success("You're already running the latest version!")
		return
	}

	fmt.Println()
	ui.Success("Successfully updated to version %s!", release.Version)
	fmt.Println()

	printChangelog(release.Changelog)

	fmt.Println()
	ui.Blue.Println("Restart slipway to use the new version.")
}

func printChangelog(changelog string) {
	if changelog == "" {
		return
	}
	ui.Yellow.Println("What's new:")
	lines := strings.Split(changelog, "\n")
	maxLines := 10
	if len(lines) < maxLines {
		maxLines = len(lines)
	}
	for i := 0; i < maxLines; i++ {
		fmt.Printf("  %s\n", lines[i])
	}
	if len(lines) > maxLines {
		fmt.Printf("  ... (%d more lines)\n", len(lines)-maxLines)
	}
}
