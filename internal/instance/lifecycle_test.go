package instance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/cantas/internal/config"
)

func TestCreateAndRemove(t *testing.T) {
	withBindable(t, func(int) bool { return true })
	ctx := context.Background()
	eng := newFakeEngine()

	var steps []string
	progress := func(format string, a ...any) { steps = append(steps, format) }

	res, err := Create(ctx, eng, Spec{Name: "dev", RunID: "run-1", Image: "redis:7-alpine"}, progress)
	require.NoError(t, err)
	assert.Equal(t, 6379, res.Port)
	assert.Equal(t, "cantas-network-dev", res.Network)
	assert.Equal(t, "cantas-redis-dev", res.Container)
	assert.Equal(t, GetRedisURL(6379), res.RedisURL)
	assert.Len(t, steps, 3)

	assert.Equal(t, []string{"redis:7-alpine"}, eng.pulled)
	require.NoError(t, VerifyInstanceRunning(ctx, eng, "dev"))
	port, err := GetInstanceRedisPort(ctx, eng, "dev")
	require.NoError(t, err)
	assert.Equal(t, 6379, port)

	t.Run("second instance takes the next port and reuses the image", func(t *testing.T) {
		res, err := Create(ctx, eng, Spec{Name: "qa", RunID: "run-2", Image: "redis:7-alpine"}, nil)
		require.NoError(t, err)
		assert.Equal(t, 6380, res.Port)
		assert.Len(t, eng.pulled, 1)
	})

	require.NoError(t, Remove(ctx, eng, "dev", nil))
	assert.Equal(t, []string{"c-cantas-redis-dev"}, eng.stopped)
	taken, err := CheckNameCollision(ctx, eng, "dev")
	require.NoError(t, err)
	assert.False(t, taken)
	assert.Len(t, eng.networks, 1)

	err = Remove(ctx, eng, "dev", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateFailureLeavesNetworkForRollback(t *testing.T) {
	withBindable(t, func(int) bool { return true })
	ctx := context.Background()
	eng := newFakeEngine()
	eng.images["redis:7-alpine"] = true
	eng.failCreate = errors.New("boom")

	_, err := Create(ctx, eng, Spec{Name: "dev", Image: "redis:7-alpine"}, nil)
	require.ErrorContains(t, err, "failed to create Redis container")
	require.Len(t, eng.networks, 1)

	require.NoError(t, Remove(ctx, eng, "dev", nil))
	assert.Empty(t, eng.networks)
}

func TestHostResources(t *testing.T) {
	res, err := hostResources(&config.ResourcesConfig{
		Limits:       &config.ResourceLimits{CPUs: "0.5", Memory: "256m"},
		Reservations: &config.ResourceLimits{Memory: "64m"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(500_000_000), res.NanoCPUs)
	assert.Equal(t, int64(256*1024*1024), res.Memory)
	assert.Equal(t, int64(64*1024*1024), res.MemoryReservation)

	_, err = hostResources(&config.ResourcesConfig{Limits: &config.ResourceLimits{CPUs: "lots"}})
	assert.Error(t, err)
	_, err = hostResources(&config.ResourcesConfig{Limits: &config.ResourceLimits{Memory: "huge"}})
	assert.Error(t, err)

	res, err = hostResources(nil)
	require.NoError(t, err)
	assert.Zero(t, res.Memory)
}
