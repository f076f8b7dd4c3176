package docker

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// psFormat flattens docker compose ps output into one tab-separated
// record per service for parsing.
const psFormat = "{{.Name}}\t{{.State}}\t{{.Status}}\t{{.Ports}}"

// ServiceStatus is one row of the stack status table.
type ServiceStatus struct {
	Name    string
	State   string
	Status  string
	Ports   string
	Running bool
}

// ComposeClient drives docker compose against a single compose file.
type ComposeClient struct {
	file string
}

// NewComposeClient returns a compose client bound to the given file.
func NewComposeClient(file string) *ComposeClient {
	return &ComposeClient{file: file}
}

// Up starts the stack, or just the named services, detached.
func (c *ComposeClient) Up(ctx context.Context, services ...string) error {
	return c.run(ctx, append([]string{"up", "-d"}, services...)...)
}

// Down stops and removes the stack.
func (c *ComposeClient) Down(ctx context.Context) error {
	return c.run(ctx, "down")
}

// Restart restarts the stack, or just the named services.
func (c *ComposeClient) Restart(ctx context.Context, services ...string) error {
	return c.run(ctx, append([]string{"restart"}, services...)...)
}

// Status reports the state of every service in the compose file.
func (c *ComposeClient) Status(ctx context.Context) ([]ServiceStatus, error) {
	cmd := exec.CommandContext(ctx, "docker", "compose", "-f", c.file, "ps", "--format", psFormat)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("docker compose ps: %w\n%s", err, stderr.String())
	}

	return parseServiceStatuses(stdout.String()), nil
}

// run executes a docker compose subcommand, folding its output into the
// error so failures surface the compose diagnostics.
func (c *ComposeClient) run(ctx context.Context, args ...string) error {
	full := append([]string{"compose", "-f", c.file}, args...)
	cmd := exec.CommandContext(ctx, "docker", full...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("docker compose %s: %w\n%s", args[0], err, output)
	}
	return nil
}

// parseServiceStatuses decodes the tab-separated ps records. Records with
// fewer than three fields are skipped rather than failing the whole table.
func parseServiceStatuses(out string) []ServiceStatus {
	var services []ServiceStatus
	for _, record := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.SplitN(record, "\t", 4)
		if len(fields) < 3 {
			continue
		}

		svc := ServiceStatus{Name: fields[0], State: fields[1], Status: fields[2]}
		svc.Running = svc.State == "running"
		if len(fields) == 4 {
			svc.Ports = fields[3]
		}
		services = append(services, svc)
	}

	return services
}
