package instance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withBindable(t *testing.T, fn func(int) bool) {
	t.Helper()
	prev := portBindable
	portBindable = fn
	t.Cleanup(func() { portBindable = prev })
}

func TestFindNextAvailablePort(t *testing.T) {
	ctx := context.Background()

	t.Run("returns 6379 when no ports used", func(t *testing.T) {
		withBindable(t, func(int) bool { return true })
		port, err := FindNextAvailablePort(ctx, newFakeEngine())
		require.NoError(t, err)
		assert.Equal(t, 6379, port)
	})

	t.Run("skips ports that are already bound", func(t *testing.T) {
		withBindable(t, func(p int) bool { return p != 6379 })
		port, err := FindNextAvailablePort(ctx, newFakeEngine())
		require.NoError(t, err)
		assert.Equal(t, 6380, port)
	})

	t.Run("skips ports claimed by other instances", func(t *testing.T) {
		withBindable(t, func(int) bool { return true })
		eng := newFakeEngine(
			redisContainer("a", "6379", "running"),
			redisContainer("b", "6380", "exited"),
		)
		port, err := FindNextAvailablePort(ctx, eng)
		require.NoError(t, err)
		assert.Equal(t, 6381, port)
	})

	t.Run("range exhausted", func(t *testing.T) {
		withBindable(t, func(int) bool { return false })
		_, err := FindNextAvailablePort(ctx, newFakeEngine())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exhausted")
	})
}
