package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceStatuses(t *testing.T) {
	t.Run("parses the stack table", func(t *testing.T) {
		out := "bitriver-ome\trunning\tUp 3 hours (healthy)\t0.0.0.0:1935->1935/tcp, 0.0.0.0:9999->9999/udp\n" +
			"bitriver-web\texited\tExited (0) 2 hours ago\t\n"

		services := parseServiceStatuses(out)
		require.Len(t, services, 2)

		assert.Equal(t, ServiceStatus{
			Name:    "bitriver-ome",
			State:   "running",
			Status:  "Up 3 hours (healthy)",
			Ports:   "0.0.0.0:1935->1935/tcp, 0.0.0.0:9999->9999/udp",
			Running: true,
		}, services[0])

		assert.Equal(t, "bitriver-web", services[1].Name)
		assert.False(t, services[1].Running)
		assert.Empty(t, services[1].Ports)
	})

	t.Run("record without a ports column", func(t *testing.T) {
		services := parseServiceStatuses("bitriver-ome\trestarting\tRestarting (1) 5 seconds ago")
		require.Len(t, services, 1)
		assert.Equal(t, "restarting", services[0].State)
		assert.False(t, services[0].Running)
		assert.Empty(t, services[0].Ports)
	})

	t.Run("empty output means no services", func(t *testing.T) {
		assert.Empty(t, parseServiceStatuses(""))
		assert.Empty(t, parseServiceStatuses("\n\n"))
	})

	t.Run("short lines are skipped", func(t *testing.T) {
		out := "garbage\n" +
			"bitriver-ome\trunning\tUp 3 hours\t1935/tcp\n"

		services := parseServiceStatuses(out)
		require.Len(t, services, 1)
		assert.Equal(t, "bitriver-ome", services[0].Name)
	})
}

func TestNewComposeClient(t *testing.T) {
	cc := NewComposeClient("/srv/bitriver/deploy/docker-compose.yml")
	require.NotNil(t, cc)
	assert.Equal(t, "/srv/bitriver/deploy/docker-compose.yml", cc.file)
}
