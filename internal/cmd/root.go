// Package cmd provides the CLI commands for slipway.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "slipway",
	Short: "Deployment tooling for the BitRiver streaming stack",
	Long: `slipway - launch your streams from solid ground

Deployment tooling for a self-hosted BitRiver streaming stack built on
OvenMediaEngine and Docker Compose.

SETUP
  init                  Scaffold a new deployment directory

CONFIG COMMANDS
  render                Render Server.xml from the deployment template
    --dry-run, -n       Print the rendered config without writing
    --watch, -w         Re-render whenever the template changes
    --validate          Check the rendered document before writing
  template [file...]    Render arbitrary .tmpl files with SOPS secrets
  envcheck              Compare quickstart defaults against the CI seed

STACK COMMANDS
  stack up              Start the streaming stack (docker compose up -d)
  stack down            Stop the streaming stack
  stack restart         Restart services
  stack status          Show per-service state and resource usage

DIAGNOSTICS
  logs [service]        Tail container logs
    --errors, -e        Only show error-looking lines
  doctor                Pre-flight checks for the deployment host

RECOVERY
  rollback              Restore a previous config snapshot
    --list, -l          List available snapshots

MAINTENANCE
  update                Update slipway to the latest release`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate("slipway version {{.Version}}\n")
}
