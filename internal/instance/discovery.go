package instance

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	dockerpkg "github.com/dyluth/cantas/internal/docker"
)

// GetInstanceRedisPort returns the host port of the instance's Redis container
// as recorded in its labels.
func GetInstanceRedisPort(ctx context.Context, cli ContainerLister, instanceName string) (int, error) {
	filter := dockerpkg.InstanceFilter(instanceName)
	filter.Add("label", fmt.Sprintf("%s=%s", dockerpkg.LabelComponent, dockerpkg.ComponentRedis))

	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filter,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list containers: %w", err)
	}

	if len(containers) == 0 {
		return 0, fmt.Errorf("Redis container not found for instance '%s'", instanceName)
	}

	portStr, ok := containers[0].Labels[dockerpkg.LabelRedisPort]
	if !ok {
		return 0, fmt.Errorf("Redis port label missing for instance '%s'", instanceName)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid Redis port '%s': %w", portStr, err)
	}

	return port, nil
}

// VerifyInstanceRunning returns an error unless the instance's Redis container is running.
func VerifyInstanceRunning(ctx context.Context, cli ContainerLister, instanceName string) error {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: dockerpkg.InstanceFilter(instanceName),
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	if len(containers) == 0 {
		return fmt.Errorf("instance '%s' not found", instanceName)
	}

	for _, c := range containers {
		if c.Labels[dockerpkg.LabelComponent] != dockerpkg.ComponentRedis {
			continue
		}
		if c.State != "running" {
			return fmt.Errorf("instance '%s' is not running (component '%s' is %s)", instanceName, dockerpkg.ComponentRedis, c.State)
		}
		return nil
	}

	return fmt.Errorf("instance '%s' is missing essential component '%s'", instanceName, dockerpkg.ComponentRedis)
}

// List returns every instance known to Docker, sorted by name.
func List(ctx context.Context, cli ContainerLister, now time.Time) ([]InstanceInfo, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: dockerpkg.ProjectFilter(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	byName := make(map[string][]types.Container)
	for _, c := range containers {
		name := c.Labels[dockerpkg.LabelInstanceName]
		byName[name] = append(byName[name], c)
	}

	infos := make([]InstanceInfo, 0, len(byName))
	for name, group := range byName {
		info := InstanceInfo{Name: name, Status: DetermineStatus(group), Uptime: "-"}
		if info.Status == StatusRunning {
			info.Uptime = FormatUptime(now.Sub(time.Unix(group[0].Created, 0)))
		}
		for _, c := range group {
			if port, err := strconv.Atoi(c.Labels[dockerpkg.LabelRedisPort]); err == nil {
				info.RedisURL = GetRedisURL(port)
			}
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}
