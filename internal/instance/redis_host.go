package instance

import (
	"fmt"
	"os"
)

// GetRedisHost returns the hostname under which published container ports are
// reachable. Inside a container that is host.docker.internal.
func GetRedisHost() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "host.docker.internal"
	}
	return "localhost"
}

// GetRedisURL returns the REDIS_URL for an instance published on port.
func GetRedisURL(port int) string {
	return fmt.Sprintf("redis://%s:%d/0", GetRedisHost(), port)
}
