package instance

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/errdefs"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// fakeEngine is an in-memory Docker daemon honoring label filters.
type fakeEngine struct {
	mu         sync.Mutex
	containers []types.Container
	networks   []types.NetworkResource
	images     map[string]bool

	created    []*container.HostConfig
	pulled     []string
	stopped    []string
	failCreate error
}

func newFakeEngine(containers ...types.Container) *fakeEngine {
	return &fakeEngine{containers: containers, images: map[string]bool{}}
}

func matchLabels(args filters.Args, labels map[string]string) bool {
	for _, want := range args.Get("label") {
		key, value, _ := strings.Cut(want, "=")
		if labels[key] != value {
			return false
		}
	}
	return true
}

func (f *fakeEngine) ContainerList(_ context.Context, options container.ListOptions) ([]types.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Container
	for _, c := range f.containers {
		if matchLabels(options.Filters, c.Labels) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeEngine) ContainerCreate(_ context.Context, config *container.Config, hostConfig *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, name string) (container.CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return container.CreateResponse{}, f.failCreate
	}
	id := "c-" + name
	f.containers = append(f.containers, types.Container{
		ID:     id,
		Names:  []string{"/" + name},
		Image:  config.Image,
		Labels: config.Labels,
		State:  "created",
	})
	f.created = append(f.created, hostConfig)
	return container.CreateResponse{ID: id}, nil
}

func (f *fakeEngine) ContainerStart(_ context.Context, id string, _ container.StartOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.containers {
		if f.containers[i].ID == id {
			f.containers[i].State = "running"
			return nil
		}
	}
	return errdefs.NotFound(errors.New("no such container"))
}

func (f *fakeEngine) ContainerStop(_ context.Context, id string, _ container.StopOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeEngine) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.containers {
		if c.ID == id {
			f.containers = append(f.containers[:i], f.containers[i+1:]...)
			return nil
		}
	}
	return errdefs.NotFound(errors.New("no such container"))
}

func (f *fakeEngine) NetworkCreate(_ context.Context, name string, options types.NetworkCreate) (types.NetworkCreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.networks = append(f.networks, types.NetworkResource{ID: "n-" + name, Name: name, Labels: options.Labels})
	return types.NetworkCreateResponse{ID: "n-" + name}, nil
}

func (f *fakeEngine) NetworkList(_ context.Context, options types.NetworkListOptions) ([]types.NetworkResource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.NetworkResource
	for _, n := range f.networks {
		if matchLabels(options.Filters, n.Labels) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeEngine) NetworkRemove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.networks {
		if n.ID == id {
			f.networks = append(f.networks[:i], f.networks[i+1:]...)
			return nil
		}
	}
	return errdefs.NotFound(errors.New("no such network"))
}

func (f *fakeEngine) ImageInspectWithRaw(_ context.Context, image string) (types.ImageInspect, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.images[image] {
		return types.ImageInspect{}, nil, errdefs.NotFound(errors.New("no such image"))
	}
	return types.ImageInspect{ID: image}, nil, nil
}

func (f *fakeEngine) ImagePull(_ context.Context, ref string, _ types.ImagePullOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulled = append(f.pulled, ref)
	f.images[ref] = true
	return io.NopCloser(strings.NewReader(`{"status":"Downloaded"}`)), nil
}

// redisContainer returns a labelled Redis container of instance name.
func redisContainer(name, port, state string) types.Container {
	return types.Container{
		ID:    "c-" + name,
		Names: []string{"/cantas-redis-" + name},
		State: state,
		Labels: map[string]string{
			"cantas.project":       "true",
			"cantas.instance.name": name,
			"cantas.component":     "redis",
			"cantas.redis.port":    port,
		},
	}
}
