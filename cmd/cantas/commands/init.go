package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyluth/cantas/internal/config"
	"github.com/dyluth/cantas/internal/instance"
	"github.com/dyluth/cantas/internal/printer"
)

var (
	forceInit    bool
	initInstance string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default cantas.yml",
	Long: `Write a default cantas.yml with a freshly generated signing secret.

Use --force to overwrite an existing file (the old secret invalidates every
issued session token).`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing configuration file")
	initCmd.Flags().StringVar(&initInstance, "instance", config.DefaultInstance, "Instance name (Redis key namespace)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !forceInit {
		return printer.Error(
			fmt.Sprintf("%s already exists", configPath),
			"Refusing to overwrite the existing configuration.",
			[]string{fmt.Sprintf("Reinitialize:\n  cantas init --force --config %s", configPath)},
		)
	}

	if err := instance.ValidateName(initInstance); err != nil {
		return err
	}

	secret, err := newSecret()
	if err != nil {
		return err
	}

	cfg := config.Default(initInstance, secret)
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	printer.Success("Wrote %s\n", configPath)
	printer.Info("\nNext steps:\n")
	printer.Info("  1. Run 'cantas up' to start a local Redis\n")
	printer.Info("  2. Run 'cantas serve' to start the server\n")
	return nil
}

func newSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
