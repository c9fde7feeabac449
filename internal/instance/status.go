package instance

import (
	"fmt"
	"time"

	"github.com/docker/docker/api/types"
)

// Status represents the health status of an instance
type Status string

const (
	// StatusRunning indicates all containers are running
	StatusRunning Status = "Running"

	// StatusDegraded indicates some containers are stopped or missing
	StatusDegraded Status = "Degraded"

	// StatusStopped indicates all containers exist but are stopped
	StatusStopped Status = "Stopped"
)

// DetermineStatus derives the instance status from its containers.
func DetermineStatus(containers []types.Container) Status {
	if len(containers) == 0 {
		return StatusStopped
	}

	running := 0
	for _, c := range containers {
		if c.State == "running" {
			running++
		}
	}

	switch {
	case running == len(containers):
		return StatusRunning
	case running > 0:
		return StatusDegraded
	default:
		return StatusStopped
	}
}

// InstanceInfo holds information about an instance
type InstanceInfo struct {
	Name     string `json:"name"`
	Status   Status `json:"status"`
	RedisURL string `json:"redis_url,omitempty"`
	Uptime   string `json:"uptime"`
}

// FormatUptime renders d the way "cantas list" shows it.
func FormatUptime(d time.Duration) string {
	d = d.Round(time.Second)

	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
