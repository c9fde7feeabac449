package instance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	"github.com/docker/go-units"

	"github.com/dyluth/cantas/internal/config"
	dockerpkg "github.com/dyluth/cantas/internal/docker"
)

// ErrNotFound is returned by Remove when no resources carry the instance name.
var ErrNotFound = errors.New("instance not found")

const redisContainerPort = nat.Port("6379/tcp")

// stopTimeout is the graceful stop period in seconds.
var stopTimeout = 10

// Spec describes an instance to create.
type Spec struct {
	Name      string
	RunID     string
	Image     string
	Resources *config.ResourcesConfig
}

// Result describes a created instance.
type Result struct {
	Name      string
	Port      int
	RedisURL  string
	Network   string
	Container string
}

// Progress receives one line per completed step.
type Progress func(format string, a ...any)

// Create allocates a port, creates the instance network and starts its Redis
// container. On error the caller should Remove the partially created instance.
func Create(ctx context.Context, eng Engine, spec Spec, progress Progress) (*Result, error) {
	if progress == nil {
		progress = func(string, ...any) {}
	}

	resources, err := hostResources(spec.Resources)
	if err != nil {
		return nil, err
	}

	port, err := FindNextAvailablePort(ctx, eng)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate Redis port: %w", err)
	}
	progress("Allocated Redis port: %d\n", port)

	networkName := dockerpkg.NetworkName(spec.Name)
	if _, err := eng.NetworkCreate(ctx, networkName, types.NetworkCreate{
		Driver: "bridge",
		Labels: dockerpkg.BuildLabels(spec.Name, spec.RunID, ""),
	}); err != nil {
		return nil, fmt.Errorf("failed to create network '%s': %w", networkName, err)
	}
	progress("Created network: %s\n", networkName)

	if err := ensureImage(ctx, eng, spec.Image); err != nil {
		return nil, err
	}

	labels := dockerpkg.BuildLabels(spec.Name, spec.RunID, dockerpkg.ComponentRedis)
	labels[dockerpkg.LabelRedisPort] = strconv.Itoa(port)

	redisName := dockerpkg.RedisContainerName(spec.Name)
	resp, err := eng.ContainerCreate(ctx, &container.Config{
		Image:        spec.Image,
		Labels:       labels,
		ExposedPorts: nat.PortSet{redisContainerPort: struct{}{}},
	}, &container.HostConfig{
		NetworkMode: container.NetworkMode(networkName),
		PortBindings: nat.PortMap{
			redisContainerPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: strconv.Itoa(port)}},
		},
		Resources: resources,
	}, nil, nil, redisName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis container: %w", err)
	}

	if err := eng.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start Redis container: %w", err)
	}
	progress("Started Redis container: %s (port %d)\n", redisName, port)

	return &Result{
		Name:      spec.Name,
		Port:      port,
		RedisURL:  GetRedisURL(port),
		Network:   networkName,
		Container: redisName,
	}, nil
}

// Remove stops and removes every container and network of the instance.
// Containers are stopped best effort; a failed removal aborts.
func Remove(ctx context.Context, eng Engine, instanceName string, progress Progress) error {
	if progress == nil {
		progress = func(string, ...any) {}
	}

	containers, err := eng.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: dockerpkg.InstanceFilter(instanceName),
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	networks, err := eng.NetworkList(ctx, types.NetworkListOptions{
		Filters: dockerpkg.InstanceFilter(instanceName),
	})
	if err != nil {
		return fmt.Errorf("failed to list networks: %w", err)
	}

	if len(containers) == 0 && len(networks) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, instanceName)
	}

	for _, c := range containers {
		progress("Stopping %s...\n", containerName(c))
		_ = eng.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &stopTimeout})
	}

	for _, c := range containers {
		progress("Removing %s...\n", containerName(c))
		if err := eng.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", containerName(c), err)
		}
	}

	for _, n := range networks {
		progress("Removing network %s...\n", n.Name)
		if err := eng.NetworkRemove(ctx, n.ID); err != nil {
			return fmt.Errorf("failed to remove network %s: %w", n.Name, err)
		}
	}

	return nil
}

func containerName(c types.Container) string {
	if len(c.Names) > 0 {
		return c.Names[0]
	}
	return c.ID
}

// ensureImage pulls image unless it is already present locally.
func ensureImage(ctx context.Context, eng Engine, image string) error {
	_, _, err := eng.ImageInspectWithRaw(ctx, image)
	if err == nil {
		return nil
	}
	if !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to inspect image %s: %w", image, err)
	}

	reader, err := eng.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}
	return nil
}

// hostResources converts the configured limits into Docker resources.
func hostResources(rc *config.ResourcesConfig) (container.Resources, error) {
	var res container.Resources
	if rc == nil {
		return res, nil
	}

	if l := rc.Limits; l != nil {
		if l.CPUs != "" {
			cpus, err := strconv.ParseFloat(l.CPUs, 64)
			if err != nil || cpus <= 0 {
				return res, fmt.Errorf("invalid cpu limit %q", l.CPUs)
			}
			res.NanoCPUs = int64(cpus * 1e9)
		}
		if l.Memory != "" {
			mem, err := units.RAMInBytes(l.Memory)
			if err != nil {
				return res, fmt.Errorf("invalid memory limit %q: %w", l.Memory, err)
			}
			res.Memory = mem
		}
	}

	if r := rc.Reservations; r != nil && r.Memory != "" {
		mem, err := units.RAMInBytes(r.Memory)
		if err != nil {
			return res, fmt.Errorf("invalid memory reservation %q: %w", r.Memory, err)
		}
		res.MemoryReservation = mem
	}

	return res, nil
}
