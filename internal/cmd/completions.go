package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bitriver/slipway/internal/compose"
	"github.com/bitriver/slipway/internal/config"
	"github.com/bitriver/slipway/internal/docker"
	"github.com/bitriver/slipway/internal/snapshot"
)

// Completion timeout to avoid hanging shell.
const completionTimeout = 2 * time.Second

// completeContainerNames returns a completion function that completes container names.
// If runningOnly is true, only running containers are returned.
func completeContainerNames(runningOnly bool) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		// Don't complete if we already have an argument
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
		defer cancel()

		client, err := docker.NewClient()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		defer client.Close()

		containers, err := client.ListContainers(ctx, runningOnly)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}

		var names []string
		for _, c := range containers {
			if strings.HasPrefix(c.Name, toComplete) {
				names = append(names, c.Name)
			}
		}

		return names, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeComposeServices returns a completion function that completes compose service names.
func completeComposeServices(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	cf, err := compose.Load(cfg.ComposeFile)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for _, name := range cf.Services() {
		if strings.HasPrefix(name, toComplete) {
			names = append(names, name)
		}
	}

	return names, cobra.ShellCompDirectiveNoFileComp
}

// completeSnapshotNames returns a completion function that completes snapshot names.
func completeSnapshotNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	snapshots, err := snapshot.New(cfg.SnapshotsDir(), cfg.OMEDir).List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	// Add "interactive" as first option
	if strings.HasPrefix("interactive", toComplete) {
		names = append(names, "interactive")
	}

	for _, snap := range snapshots {
		if strings.HasPrefix(snap.Name, toComplete) {
			names = append(names, snap.Name)
		}
	}

	return names, cobra.ShellCompDirectiveNoFileComp
}

// registerCompletions registers all dynamic completions for commands.
// This is called from init() to set up completions after all commands are defined.
func registerCompletions() {
	logsCmd.ValidArgsFunction = completeContainerNames(true)

	stackUpCmd.ValidArgsFunction = completeComposeServices
	stackRestartCmd.ValidArgsFunction = completeComposeServices

	rollbackCmd.ValidArgsFunction = completeSnapshotNames
}

// init registers completions after all commands are set up.
func init() {
	// Use a deferred registration via cobra.OnInitialize to ensure
	// all commands are registered before we add completions
	cobra.OnInitialize(registerCompletions)
}
