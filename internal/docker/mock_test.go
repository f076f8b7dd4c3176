package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
)

var errEngineDown = errors.New("cannot connect to the docker daemon")

// stubEngine implements EngineAPI via function fields. Unset fields
// return zero values so each test only wires what it exercises.
type stubEngine struct {
	pingFn    func(ctx context.Context) (types.Ping, error)
	listFn    func(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	inspectFn func(ctx context.Context, containerID string) (container.InspectResponse, error)
	logsFn    func(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	statsFn   func(ctx context.Context, containerID string, stream bool) (container.StatsResponseReader, error)
	diskFn    func(ctx context.Context, options types.DiskUsageOptions) (types.DiskUsage, error)

	closed bool
}

func (s *stubEngine) Ping(ctx context.Context) (types.Ping, error) {
	if s.pingFn != nil {
		return s.pingFn(ctx)
	}
	return types.Ping{}, nil
}

func (s *stubEngine) ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error) {
	if s.listFn != nil {
		return s.listFn(ctx, options)
	}
	return nil, nil
}

func (s *stubEngine) ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error) {
	if s.inspectFn != nil {
		return s.inspectFn(ctx, containerID)
	}
	return container.InspectResponse{}, nil
}

func (s *stubEngine) ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error) {
	if s.logsFn != nil {
		return s.logsFn(ctx, containerID, options)
	}
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (s *stubEngine) ContainerStats(ctx context.Context, containerID string, stream bool) (container.StatsResponseReader, error) {
	if s.statsFn != nil {
		return s.statsFn(ctx, containerID, stream)
	}
	return container.StatsResponseReader{Body: io.NopCloser(bytes.NewReader([]byte("{}")))}, nil
}

func (s *stubEngine) DiskUsage(ctx context.Context, options types.DiskUsageOptions) (types.DiskUsage, error) {
	if s.diskFn != nil {
		return s.diskFn(ctx, options)
	}
	return types.DiskUsage{}, nil
}

func (s *stubEngine) Close() error {
	s.closed = true
	return nil
}

// omeSummary models the OvenMediaEngine container of a running stack.
func omeSummary() container.Summary {
	return container.Summary{
		ID:     "9f2c1a7e54b3d8a6c0e4f1b2a3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2",
		Names:  []string{"/bitriver-ome"},
		Image:  "airensoft/ovenmediaengine:0.16.5",
		State:  "running",
		Status: "Up 3 hours",
		Ports: []container.Port{
			{PrivatePort: 1935, PublicPort: 1935, Type: "tcp"},
			{PrivatePort: 9999, PublicPort: 9999, Type: "udp"},
			{PrivatePort: 8081, Type: "tcp"},
		},
	}
}

// webSummary models the stopped web frontend next to it.
func webSummary() container.Summary {
	return container.Summary{
		ID:     "1a2b3c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2b",
		Names:  []string{"/bitriver-web"},
		Image:  "caddy:2",
		State:  "exited",
		Status: "Exited (0) 2 hours ago",
	}
}

// omeInspect models the inspect payload for the OME container, including
// its health probe result and published ingest ports.
func omeInspect(health string) container.InspectResponse {
	resp := container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{
			ID:   omeSummary().ID,
			Name: "/bitriver-ome",
			State: &container.State{
				Status:  "running",
				Running: true,
			},
		},
		NetworkSettings: &container.NetworkSettings{
			NetworkSettingsBase: container.NetworkSettingsBase{
				Ports: nat.PortMap{
					nat.Port("1935/tcp"): {{HostIP: "0.0.0.0", HostPort: "1935"}},
					nat.Port("9999/udp"): {{HostIP: "0.0.0.0", HostPort: "9999"}},
				},
			},
		},
	}
	if health != "" {
		resp.State.Health = &container.Health{Status: health}
	}
	return resp
}

// statsReader wraps a raw engine stats payload for stubbing.
func statsReader(cpuTotal, cpuPre, sysTotal, sysPre uint64, cpus int, memUsage, memLimit uint64) container.StatsResponseReader {
	percpu := ""
	for i := 0; i < cpus; i++ {
		if i > 0 {
			percpu += ","
		}
		percpu += "1"
	}
	payload := fmt.Sprintf(`{
		"cpu_stats": {"cpu_usage": {"total_usage": %d, "percpu_usage": [%s]}, "system_cpu_usage": %d},
		"precpu_stats": {"cpu_usage": {"total_usage": %d}, "system_cpu_usage": %d},
		"memory_stats": {"usage": %d, "limit": %d}
	}`, cpuTotal, percpu, sysTotal, cpuPre, sysPre, memUsage, memLimit)

	return container.StatsResponseReader{Body: io.NopCloser(bytes.NewReader([]byte(payload)))}
}
