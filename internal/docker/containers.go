package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types/container"
)

// ContainerInfo is the summary view of a stack container.
type ContainerInfo struct {
	ID     string
	Name   string
	Image  string
	State  string
	Status string
	Health string
	Ports  []string
}

// ContainerStats holds a point-in-time resource usage sample.
type ContainerStats struct {
	Name       string
	CPUPercent float64
	MemUsage   uint64
	MemLimit   uint64
	MemPercent float64
}

// ListContainers returns the containers on the host, optionally restricted
// to running ones. Health is resolved through an inspect call for running
// containers since the list endpoint does not carry it.
func (c *Client) ListContainers(ctx context.Context, runningOnly bool) ([]ContainerInfo, error) {
	summaries, err := c.api.ContainerList(ctx, container.ListOptions{All: !runningOnly})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	result := make([]ContainerInfo, 0, len(summaries))
	for _, s := range summaries {
		info := ContainerInfo{
			ID:     shortID(s.ID),
			Image:  s.Image,
			State:  s.State,
			Status: s.Status,
		}
		if len(s.Names) > 0 {
			info.Name = strings.TrimPrefix(s.Names[0], "/")
		}

		if s.State == "running" {
			if inspect, err := c.api.ContainerInspect(ctx, s.ID); err == nil && inspect.State.Health != nil {
				info.Health = inspect.State.Health.Status
			}
		}

		for _, p := range s.Ports {
			if p.PublicPort > 0 {
				info.Ports = append(info.Ports, fmt.Sprintf("%d:%d/%s", p.PublicPort, p.PrivatePort, p.Type))
			} else {
				info.Ports = append(info.Ports, fmt.Sprintf("%d/%s", p.PrivatePort, p.Type))
			}
		}

		result = append(result, info)
	}

	return result, nil
}

// Logs opens a log stream for a container. A tail of 0 or less streams the
// full history. The returned stream is multiplexed stdout/stderr when the
// container runs without a TTY.
func (c *Client) Logs(ctx context.Context, name string, tail int, follow bool) (io.ReadCloser, error) {
	tailStr := "all"
	if tail > 0 {
		tailStr = fmt.Sprintf("%d", tail)
	}

	reader, err := c.api.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
		Tail:       tailStr,
	})
	if err != nil {
		return nil, fmt.Errorf("get logs for %s: %w", name, err)
	}

	return reader, nil
}

// GetAllContainerStats samples CPU and memory usage for every running
// container. Containers whose stats endpoint errors are skipped so one
// restarting service does not blank the whole table.
func (c *Client) GetAllContainerStats(ctx context.Context) ([]ContainerStats, error) {
	containers, err := c.ListContainers(ctx, true)
	if err != nil {
		return nil, err
	}

	stats := make([]ContainerStats, 0, len(containers))
	for _, ctr := range containers {
		s, err := c.containerStats(ctx, ctr.Name)
		if err != nil {
			continue
		}
		stats = append(stats, s)
	}

	return stats, nil
}

// statsSample is the subset of the engine stats payload needed for the
// CPU and memory calculation.
type statsSample struct {
	CPUStats struct {
		CPUUsage struct {
			TotalUsage  uint64   `json:"total_usage"`
			PercpuUsage []uint64 `json:"percpu_usage"`
		} `json:"cpu_usage"`
		SystemUsage uint64 `json:"system_cpu_usage"`
	} `json:"cpu_stats"`
	PreCPUStats struct {
		CPUUsage struct {
			TotalUsage uint64 `json:"total_usage"`
		} `json:"cpu_usage"`
		SystemUsage uint64 `json:"system_cpu_usage"`
	} `json:"precpu_stats"`
	MemoryStats struct {
		Usage uint64 `json:"usage"`
		Limit uint64 `json:"limit"`
	} `json:"memory_stats"`
}

func (c *Client) containerStats(ctx context.Context, name string) (ContainerStats, error) {
	resp, err := c.api.ContainerStats(ctx, name, false)
	if err != nil {
		return ContainerStats{}, fmt.Errorf("get container stats: %w", err)
	}
	defer resp.Body.Close()

	var sample statsSample
	if err := json.NewDecoder(resp.Body).Decode(&sample); err != nil {
		return ContainerStats{}, fmt.Errorf("parse stats: %w", err)
	}

	stats := ContainerStats{Name: name, MemUsage: sample.MemoryStats.Usage, MemLimit: sample.MemoryStats.Limit}

	cpuDelta := float64(sample.CPUStats.CPUUsage.TotalUsage - sample.PreCPUStats.CPUUsage.TotalUsage)
	systemDelta := float64(sample.CPUStats.SystemUsage - sample.PreCPUStats.SystemUsage)
	if systemDelta > 0 && cpuDelta > 0 {
		stats.CPUPercent = (cpuDelta / systemDelta) * float64(len(sample.CPUStats.CPUUsage.PercpuUsage)) * 100.0
	}
	if sample.MemoryStats.Limit > 0 {
		stats.MemPercent = float64(sample.MemoryStats.Usage) / float64(sample.MemoryStats.Limit) * 100.0
	}

	return stats, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
