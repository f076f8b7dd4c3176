package docker

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// pingTimeout bounds daemon liveness probes so a wedged docker socket
// does not hang diagnostic commands.
const pingTimeout = 5 * time.Second

// EngineAPI is the slice of the Docker SDK that slipway calls. Tests
// substitute a stub here instead of talking to a daemon.
type EngineAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerStats(ctx context.Context, containerID string, stream bool) (container.StatsResponseReader, error)
	DiskUsage(ctx context.Context, options types.DiskUsageOptions) (types.DiskUsage, error)
	Close() error
}

// The SDK client must keep satisfying the subset we depend on.
var _ EngineAPI = (*client.Client)(nil)

// Client wraps the Docker engine API for the streaming stack commands.
type Client struct {
	api EngineAPI
}

// NewClient connects to the Docker daemon using the standard environment
// (DOCKER_HOST and friends).
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	return &Client{api: cli}, nil
}

// NewClientWithAPI wraps an existing engine API implementation. Tests use
// this to inject stubs.
func NewClientWithAPI(api EngineAPI) *Client {
	return &Client{api: api}
}

// Ping probes the daemon, failing fast if it is unreachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.api.Ping(ctx); err != nil {
		return fmt.Errorf("ping docker: %w", err)
	}

	return nil
}

// DiskUsage reports engine-wide disk consumption (images, containers,
// volumes). Doctor uses the image total to warn about bloated hosts.
func (c *Client) DiskUsage(ctx context.Context) (types.DiskUsage, error) {
	return c.api.DiskUsage(ctx, types.DiskUsageOptions{})
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.api == nil {
		return nil
	}
	return c.api.Close()
}
