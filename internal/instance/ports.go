package instance

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/docker/docker/api/types/container"
	dockerpkg "github.com/dyluth/cantas/internal/docker"
)

const (
	// Port range for Redis containers (allows 100 concurrent instances)
	startPort = 6379
	endPort   = 6478
)

// portBindable is replaced in tests.
var portBindable = isPortBindable

// FindNextAvailablePort finds the next available host port for Redis, starting from 6379.
// A port is skipped when another instance's label claims it or it cannot be bound.
func FindNextAvailablePort(ctx context.Context, cli ContainerLister) (int, error) {
	filter := dockerpkg.ProjectFilter()
	filter.Add("label", fmt.Sprintf("%s=%s", dockerpkg.LabelComponent, dockerpkg.ComponentRedis))

	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filter,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query Docker containers: %w", err)
	}

	usedPorts := make(map[int]bool)
	for _, c := range containers {
		if portStr, ok := c.Labels[dockerpkg.LabelRedisPort]; ok {
			if port, err := strconv.Atoi(portStr); err == nil {
				usedPorts[port] = true
			}
		}
	}

	for port := startPort; port <= endPort; port++ {
		if usedPorts[port] {
			continue
		}
		if portBindable(port) {
			return port, nil
		}
	}

	return 0, fmt.Errorf("no available Redis ports (range %d-%d exhausted)", startPort, endPort)
}

func isPortBindable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}
