package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bitriver/slipway/internal/config"
	"github.com/bitriver/slipway/internal/envcheck"
	"github.com/bitriver/slipway/internal/notify"
	"github.com/bitriver/slipway/internal/ui"
)

var (
	envcheckQuickstart string
	envcheckCIScript   string
	envcheckWebhook    string
)

// envcheckCmd represents the envcheck command.
var envcheckCmd = &cobra.Command{
	Use:     "envcheck",
	Aliases: []string{"envdiff"},
	Short:   "Compare quickstart defaults against the CI seed",
	Long: `Check that the env defaults in scripts/quickstart.sh and the .env
seed block in scripts/test-quickstart.sh agree on every required key.

The two scripts carry independent copies of the stack's environment
defaults; when one is edited without the other, fresh installs and CI
runs silently diverge. This command exits non-zero on any drift so it
can gate merges.

Examples:
  slipway envcheck
  slipway envcheck --webhook https://discord.com/api/webhooks/...`,
	RunE: runEnvcheck,
}

func init() {
	envcheckCmd.Flags().StringVar(&envcheckQuickstart, "quickstart", "", "Quickstart script path (default: scripts/quickstart.sh)")
	envcheckCmd.Flags().StringVar(&envcheckCIScript, "ci-script", "", "CI script path (default: scripts/test-quickstart.sh)")
	envcheckCmd.Flags().StringVar(&envcheckWebhook, "webhook", "", "Webhook URL for drift notifications (default: $SLIPWAY_WEBHOOK_URL)")

	rootCmd.AddCommand(envcheckCmd)
}

func runEnvcheck(cmd *cobra.Command, args []string) error {
	quickstart := envcheckQuickstart
	ciScript := envcheckCIScript

	if quickstart == "" || ciScript == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("locate deployment root: %w", err)
		}
		if quickstart == "" {
			quickstart = cfg.QuickstartScript()
		}
		if ciScript == "" {
			ciScript = cfg.CIScript()
		}
	}

	ui.Header("Env defaults consistency check")
	fmt.Printf("  quickstart: %s\n", quickstart)
	fmt.Printf("  ci seed:    %s\n", ciScript)
	fmt.Println()

	mismatches, err := envcheck.Check(quickstart, ciScript)
	if err != nil {
		return fmt.Errorf("envcheck: %w", err)
	}

	if len(mismatches) == 0 {
		ui.Success("Quickstart defaults and CI seed agree on all required keys")
		return nil
	}

	ui.Blue.Println("--- Mismatches ---")
	lines := make([]string, 0, len(mismatches))
	for _, m := range mismatches {
		ui.Error("%s", m)
		lines = append(lines, m.String())
	}
	fmt.Println()
	ui.Red.Printf("✗ %d key(s) out of sync\n", len(mismatches))

	sender := notify.NewWebhookSender(envcheckWebhook)
	sendEvent(sender, notify.EnvDrift(lines))

	os.Exit(1)
	return nil
}
