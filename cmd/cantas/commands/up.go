package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/cantas/internal/config"
	dockerpkg "github.com/dyluth/cantas/internal/docker"
	"github.com/dyluth/cantas/internal/instance"
	"github.com/dyluth/cantas/internal/printer"
)

var upInstanceName string

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Start a local Redis for Cantas",
	Long: `Start a local Redis instance in Docker for development.

Creates and starts:
  • Isolated Docker network
  • Redis container published on 127.0.0.1 (first free port from 6379)

The instance name is auto-generated (default-N) unless specified with --name.
The image and resource limits come from the redis section of cantas.yml.`,
	Args: cobra.NoArgs,
	RunE: runUp,
}

func init() {
	upCmd.Flags().StringVar(&upInstanceName, "name", "", "Instance name (auto-generated if omitted)")
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	name := upInstanceName
	if name == "" {
		if name, err = instance.GenerateDefaultName(ctx, cli); err != nil {
			return fmt.Errorf("failed to generate instance name: %w", err)
		}
	}
	if err := instance.ValidateName(name); err != nil {
		return err
	}

	collision, err := instance.CheckNameCollision(ctx, cli, name)
	if err != nil {
		return err
	}
	if collision {
		return printer.Error(
			fmt.Sprintf("instance '%s' already exists", name),
			"Found existing containers with this instance name.",
			[]string{
				fmt.Sprintf("Stop the existing instance: cantas down --name %s", name),
				"Choose a different name: cantas up --name other-name",
			},
		)
	}

	res, err := instance.Create(ctx, cli, instance.Spec{
		Name:      name,
		RunID:     dockerpkg.GenerateRunID(),
		Image:     cfg.Redis.Image,
		Resources: cfg.Redis.Resources,
	}, printer.Success)
	if err != nil {
		printer.Warning("resource creation failed, rolling back\n")
		if rbErr := instance.Remove(ctx, cli, name, printer.Step); rbErr != nil && !errors.Is(rbErr, instance.ErrNotFound) {
			printer.Warning("rollback encountered errors: %v\n", rbErr)
		}
		return fmt.Errorf("failed to create instance: %w", err)
	}

	printer.Success("\nInstance '%s' started successfully\n\n", res.Name)
	printer.Info("Containers:\n  • %s (running)\n\n", res.Container)
	printer.Info("Network:\n  • %s\n\n", res.Network)
	printer.Info("Point the server at it:\n  export %s=%s\n  export %s=%s\n  cantas serve\n\n",
		config.EnvRedisURL, res.RedisURL, config.EnvInstance, res.Name)
	printer.Info("Run 'cantas down --name %s' when finished\n", res.Name)
	return nil
}
