package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bitriver/slipway/internal/compose"
	"github.com/bitriver/slipway/internal/config"
	"github.com/bitriver/slipway/internal/docker"
	"github.com/bitriver/slipway/internal/gitinfo"
	"github.com/bitriver/slipway/internal/preflight"
	"github.com/bitriver/slipway/internal/ui"
)

const dockerPingTimeout = 5 * time.Second

// doctorCmd runs pre-flight checks.
var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Aliases: []string{"checkup"},
	Short:   "Pre-flight checks for the deployment host",
	Long:    "Run diagnostic checks for Docker, Git, SOPS, the deployment layout, and port conflicts.",
	Run:     runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) {
	ui.Blue.Println("Running pre-flight checks...")
	fmt.Println()

	passed := 0
	failed := 0
	warned := 0

	ui.Step(1, "Container engine")
	ctx, cancel := context.WithTimeout(context.Background(), dockerPingTimeout)
	client, err := docker.NewClient()
	if err == nil {
		if err := client.Ping(ctx); err == nil {
			ui.Green.Println("  * Docker is running")
			passed++
		} else {
			ui.Red.Println("  x Docker is not running")
			failed++
		}
	} else {
		ui.Red.Println("  x Docker is not running")
		failed++
	}

	// Check: Docker Compose v2
	composeCmd := exec.Command("docker", "compose", "version", "--short")
	if output, err := composeCmd.Output(); err == nil {
		ui.Green.Printf("  * Docker Compose v2 (%s)\n", strings.TrimSpace(string(output)))
		passed++
	} else {
		ui.Red.Println("  x Docker Compose v2 not found")
		failed++
	}

	fmt.Println()
	ui.Step(2, "Host binaries")
	for _, bin := range preflight.Required() {
		if preflight.Available(bin.Name) {
			ui.Green.Printf("  * %s is installed\n", bin.Name)
			passed++
		} else {
			ui.Red.Printf("  x %s not found\n", bin.Name)
			ui.Blue.Printf("      %s\n", bin.InstallHint)
			failed++
		}
	}
	for _, bin := range preflight.Optional() {
		if preflight.Available(bin.Name) {
			ui.Green.Printf("  * %s is installed\n", bin.Name)
			passed++
		} else {
			ui.Yellow.Printf("  ! %s not found\n", bin.Name)
			ui.Blue.Printf("      %s\n", bin.InstallHint)
			warned++
		}
	}

	fmt.Println()
	ui.Step(3, "Secrets")
	ageKeyFile := os.Getenv("SOPS_AGE_KEY_FILE")
	if ageKeyFile == "" {
		home, _ := os.UserHomeDir()
		ageKeyFile = filepath.Join(home, ".config", "sops", "age", "keys.txt")
	}
	if _, err := os.Stat(ageKeyFile); err == nil {
		ui.Green.Printf("  * Age key found: %s\n", ageKeyFile)
		passed++
	} else {
		ui.Yellow.Printf("  ! Age key not found at %s\n", ageKeyFile)
		ui.Blue.Printf("      Run: age-keygen -o %s\n", ageKeyFile)
		warned++
	}

	fmt.Println()
	ui.Step(4, "Deployment layout")
	cfg, err := config.Load()
	if err == nil {
		ui.Green.Printf("  * Deployment root found: %s\n", cfg.Root)
		passed++

		if _, err := os.Stat(cfg.TemplatePath()); err == nil {
			ui.Green.Println("  * Server.xml template found")
			passed++
		} else {
			ui.Yellow.Printf("  ! Server.xml template missing at %s\n", cfg.TemplatePath())
			warned++
		}

		if cf, err := compose.Load(cfg.ComposeFile); err == nil {
			ui.Green.Printf("  * Compose file parses (%d services)\n", len(cf.Services()))
			passed++

			if _, ok := cf.Service(compose.OMEService); !ok {
				ui.Yellow.Printf("  ! No %q service in compose file\n", compose.OMEService)
				warned++
			}
			if conflicts := cf.Conflicts(); len(conflicts) > 0 {
				for _, c := range conflicts {
					ui.Red.Printf("  x Port %d/%s claimed by %s\n", c.Port, c.Protocol, strings.Join(c.Services, ", "))
				}
				failed += len(conflicts)
			} else {
				ui.Green.Println("  * No host port conflicts")
				passed++
			}
		} else {
			ui.Red.Printf("  x Compose file problem: %v\n", err)
			failed++
		}

		if info, err := gitinfo.Describe(cfg.Root); err == nil {
			if info.Dirty {
				ui.Yellow.Printf("  ! Working tree dirty (%s)\n", info)
				warned++
			} else {
				ui.Green.Printf("  * Git clean at %s\n", info)
				passed++
			}
		} else {
			ui.Yellow.Println("  ! Deployment root is not a git repository")
			warned++
		}
	} else {
		ui.Yellow.Println("  ! Deployment root not found (run from the deployment directory)")
		warned++
	}

	fmt.Println()
	ui.Step(5, "Disk usage")
	if client != nil {
		usageCtx, usageCancel := context.WithTimeout(context.Background(), dockerPingTimeout)
		if usage, err := client.DiskUsage(usageCtx); err == nil {
			var imageBytes int64
			for _, img := range usage.Images {
				imageBytes += img.Size
			}
			ui.Green.Printf("  * Docker image disk usage: %s\n", formatBytes(imageBytes))
			passed++
		}
		usageCancel()
		client.Close()
	}
	cancel()

	// Summary
	fmt.Println()
	fmt.Printf("Summary: ")
	ui.Green.Printf("%d passed", passed)
	fmt.Printf(", ")
	ui.Yellow.Printf("%d warnings", warned)
	fmt.Printf(", ")
	ui.Red.Printf("%d failed\n", failed)

	if failed > 0 {
		fmt.Println()
		ui.Red.Println("Host not ready. Fix errors above before deploying.")
		os.Exit(1)
	} else if warned > 0 {
		fmt.Println()
		ui.Yellow.Println("Host can deploy, but check warnings.")
	} else {
		fmt.Println()
		ui.Green.Println("All systems go. Ready to stream.")
	}
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
