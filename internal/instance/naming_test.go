package instance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	testCases := []struct {
		name      string
		inputName string
		errMsg    string
	}{
		{name: "simple", inputName: "prod"},
		{name: "hyphens", inputName: "staging-1"},
		{name: "generated", inputName: "default-123"},
		{name: "single character", inputName: "a"},
		{name: "empty", inputName: "", errMsg: "cannot be empty"},
		{name: "uppercase", inputName: "Prod", errMsg: "must be lowercase"},
		{name: "leading hyphen", inputName: "-prod", errMsg: "not at start/end"},
		{name: "trailing hyphen", inputName: "prod-", errMsg: "not at start/end"},
		{name: "underscore", inputName: "prod_env", errMsg: "must be lowercase alphanumeric"},
		{name: "redis key separator", inputName: "prod:1", errMsg: "must be lowercase alphanumeric"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateName(tc.inputName)
			if tc.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestValidateName_MaxLength(t *testing.T) {
	name := "a23456789012345678901234567890123456789012345678901234567890123"
	require.Len(t, name, MaxNameLength)
	assert.NoError(t, ValidateName(name))

	err := ValidateName(name + "4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too long")
}

func TestGenerateDefaultName(t *testing.T) {
	ctx := context.Background()

	t.Run("first instance", func(t *testing.T) {
		name, err := GenerateDefaultName(ctx, newFakeEngine())
		require.NoError(t, err)
		assert.Equal(t, "default-1", name)
	})

	t.Run("follows the highest existing number", func(t *testing.T) {
		eng := newFakeEngine(
			redisContainer("default-1", "6379", "running"),
			redisContainer("default-7", "6380", "exited"),
			redisContainer("prod", "6381", "running"),
			redisContainer("default-x", "6382", "running"),
		)
		name, err := GenerateDefaultName(ctx, eng)
		require.NoError(t, err)
		assert.Equal(t, "default-8", name)
	})
}

func TestCheckNameCollision(t *testing.T) {
	ctx := context.Background()
	eng := newFakeEngine(redisContainer("prod", "6379", "exited"))

	taken, err := CheckNameCollision(ctx, eng, "prod")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = CheckNameCollision(ctx, eng, "dev")
	require.NoError(t, err)
	assert.False(t, taken)
}
