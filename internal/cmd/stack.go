package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bitriver/slipway/internal/compose"
	"github.com/bitriver/slipway/internal/config"
	"github.com/bitriver/slipway/internal/docker"
	"github.com/bitriver/slipway/internal/ui"
)

var stackCmd = &cobra.Command{
	Use:     "stack",
	Aliases: []string{"compose"},
	Short:   "Manage the streaming stack services",
	Long: `Stack commands for managing the Docker Compose services.

Commands:
  up        Start the stack (docker compose up -d)
  down      Stop the stack (docker compose down)
  restart   Restart all or named services
  status    Show per-service state and resource usage`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var stackUpCmd = &cobra.Command{
	Use:   "up [services...]",
	Short: "Start the stack (docker compose up -d)",
	Long:  `Starts all services defined in the compose file. Warns when no rendered Server.xml is present.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if err := validateComposeFile(cfg.ComposeFile); err != nil {
			return fmt.Errorf("%w. Run 'docker compose config' to debug", err)
		}
		if len(args) > 0 {
			if err := validateServiceNames(cfg.ComposeFile, args); err != nil {
				return err
			}
		}

		// A stack started without a rendered config comes up with image
		// defaults and no API credentials.
		if _, err := os.Stat(cfg.OutputPath()); err != nil {
			ui.Warning("No rendered Server.xml found. Run 'slipway render' first.")
		}

		ui.OnAir("Bringing the stack up...")
		cc := docker.NewComposeClient(cfg.ComposeFile)
		if err := cc.Up(ctx, args...); err != nil {
			return fmt.Errorf("compose up: %w", err)
		}

		ui.Success("Stack is up!")
		return nil
	},
}

var stackDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop the stack (docker compose down)",
	Long:  `Stops and removes all services defined in the compose file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if err := validateComposeFile(cfg.ComposeFile); err != nil {
			return fmt.Errorf("%w. Run 'docker compose config' to debug", err)
		}

		ui.Yellow.Println("Taking the stack down...")
		cc := docker.NewComposeClient(cfg.ComposeFile)
		if err := cc.Down(ctx); err != nil {
			return fmt.Errorf("compose down: %w", err)
		}

		ui.Offline("Stack is down.")
		return nil
	},
}

var stackRestartCmd = &cobra.Command{
	Use:   "restart [services...]",
	Short: "Restart all or named services",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if err := validateComposeFile(cfg.ComposeFile); err != nil {
			return fmt.Errorf("%w. Run 'docker compose config' to debug", err)
		}
		if len(args) > 0 {
			if err := validateServiceNames(cfg.ComposeFile, args); err != nil {
				return err
			}
		}

		ui.Blue.Println("Restarting...")
		cc := docker.NewComposeClient(cfg.ComposeFile)
		if err := cc.Restart(ctx, args...); err != nil {
			return fmt.Errorf("compose restart: %w", err)
		}

		ui.Success("Restart complete!")
		return nil
	},
}

var stackStatusWide bool

var stackStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-service state and resource usage",
	Long:  `Shows compose service state, and with --wide, live CPU and memory usage per container.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		cc := docker.NewComposeClient(cfg.ComposeFile)
		statuses, err := cc.Status(ctx)
		if err != nil {
			return fmt.Errorf("compose ps: %w", err)
		}

		if len(statuses) == 0 {
			ui.Yellow.Println("No services running.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SERVICE\tSTATE\tSTATUS\tPORTS")
		for _, s := range statuses {
			ports := s.Ports
			if ports == "" {
				ports = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, s.State, s.Status, ports)
		}
		w.Flush()

		if !stackStatusWide {
			return nil
		}

		fmt.Println()
		return withDockerClientContext(ctx, func(client *docker.Client) error {
			stats, err := client.GetAllContainerStats(ctx)
			if err != nil {
				return fmt.Errorf("container stats: %w", err)
			}
			sw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(sw, "CONTAINER\tCPU\tMEMORY")
			for _, st := range stats {
				fmt.Fprintf(sw, "%s\t%.1f%%\t%s / %s\n", st.Name, st.CPUPercent, formatBytes(int64(st.MemUsage)), formatBytes(int64(st.MemLimit)))
			}
			return sw.Flush()
		})
	},
}

// validateComposeFile validates that a compose file exists and has valid syntax.
func validateComposeFile(composePath string) error {
	if _, err := os.Stat(composePath); os.IsNotExist(err) {
		return fmt.Errorf("compose file not found: %s", composePath)
	}

	// docker compose config --quiet catches syntax errors before any
	// service is touched.
	cmd := exec.Command("docker", "compose", "-f", composePath, "config", "--quiet")
	output, err := cmd.CombinedOutput()
	if err != nil {
		errMsg := strings.TrimSpace(string(output))
		if errMsg == "" {
			errMsg = err.Error()
		}
		return fmt.Errorf("invalid compose file: %s", errMsg)
	}

	return nil
}

// validateServiceNames validates that all provided service names exist in the compose file.
func validateServiceNames(composePath string, services []string) error {
	if len(services) == 0 {
		return nil
	}

	cf, err := compose.Load(composePath)
	if err != nil {
		return err
	}

	validList := cf.Services()
	validNames := make(map[string]bool, len(validList))
	for _, name := range validList {
		validNames[name] = true
	}

	var invalidNames []string
	for _, svc := range services {
		if !validNames[svc] {
			invalidNames = append(invalidNames, svc)
		}
	}

	if len(invalidNames) > 0 {
		return fmt.Errorf("unknown services: %s. Valid services: %s",
			strings.Join(invalidNames, ", "),
			strings.Join(validList, ", "))
	}

	return nil
}

func init() {
	stackStatusCmd.Flags().BoolVar(&stackStatusWide, "wide", false, "Include live CPU/memory usage per container")

	stackCmd.AddCommand(stackUpCmd)
	stackCmd.AddCommand(stackDownCmd)
	stackCmd.AddCommand(stackRestartCmd)
	stackCmd.AddCommand(stackStatusCmd)

	rootCmd.AddCommand(stackCmd)
}
