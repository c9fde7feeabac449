package instance

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	dockerpkg "github.com/dyluth/cantas/internal/docker"
)

const (
	// DefaultNamePrefix is the prefix for auto-generated instance names
	DefaultNamePrefix = "default-"

	// MaxNameLength is the maximum length for an instance name (DNS-compatible)
	MaxNameLength = 63
)

var (
	// NamePattern is the regex pattern for valid instance names.
	// Lowercase alphanumeric, hyphens allowed but not at start/end.
	NamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)
)

// ValidateName checks if an instance name is valid according to DNS naming rules.
// The name doubles as the key namespace of the instance in Redis.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("instance name too long: %d characters (max: %d)", len(name), MaxNameLength)
	}

	if !NamePattern.MatchString(name) {
		return fmt.Errorf("invalid instance name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}

	return nil
}

// GenerateDefaultName returns the next free default-N instance name.
func GenerateDefaultName(ctx context.Context, cli ContainerLister) (string, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: dockerpkg.ProjectFilter(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to list containers: %w", err)
	}

	highestN := 0
	for _, c := range containers {
		name := c.Labels[dockerpkg.LabelInstanceName]
		if !strings.HasPrefix(name, DefaultNamePrefix) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(name, DefaultNamePrefix)); err == nil && n > highestN {
			highestN = n
		}
	}

	return fmt.Sprintf("%s%d", DefaultNamePrefix, highestN+1), nil
}

// CheckNameCollision reports whether any container already carries instanceName.
func CheckNameCollision(ctx context.Context, cli ContainerLister, instanceName string) (bool, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: dockerpkg.InstanceFilter(instanceName),
	})
	if err != nil {
		return false, fmt.Errorf("failed to check for name collision: %w", err)
	}

	return len(containers) > 0, nil
}
