package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/cantas/internal/config"
	"github.com/dyluth/cantas/internal/models"
	"github.com/dyluth/cantas/internal/printer"
	"github.com/dyluth/cantas/pkg/board"
)

const pingTimeout = 5 * time.Second

func loadConfig() (*config.CantasConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"cantas.yml not found or invalid",
			err.Error(),
			[][2]string{{"Config", configPath}},
			[]string{"Create a configuration first:\n  cantas init"},
		)
	}
	return cfg, nil
}

// openStore connects to the configured Redis and verifies it answers.
func openStore(ctx context.Context, cfg *config.CantasConfig) (*board.Client, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis.url %q: %w", cfg.Redis.URL, err)
	}

	client, err := board.NewClient(opts, cfg.Instance)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis not reachable",
			err.Error(),
			[][2]string{{"Redis", cfg.Redis.URL}, {"Instance", cfg.Instance}},
			[]string{
				"Start a local Redis:\n  cantas up",
				fmt.Sprintf("Point %s at a running server", config.EnvRedisURL),
			},
		)
	}

	return client, nil
}

// openService loads the configuration and returns the model service over the store.
// The returned close function releases the connection.
func openService(ctx context.Context) (*config.CantasConfig, *models.Service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	svc := models.NewService(board.NewRepository(client))
	return cfg, svc, func() { client.Close() }, nil
}
