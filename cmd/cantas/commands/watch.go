package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dyluth/cantas/internal/config"
	dockerpkg "github.com/dyluth/cantas/internal/docker"
	"github.com/dyluth/cantas/internal/filter"
	"github.com/dyluth/cantas/internal/instance"
	"github.com/dyluth/cantas/internal/models"
	"github.com/dyluth/cantas/internal/printer"
	"github.com/dyluth/cantas/internal/watch"
	"github.com/dyluth/cantas/pkg/board"
)

var (
	watchInstanceName string
	watchOutputFormat string
	watchChannel      string
	watchBoard        string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream board broadcasts",
	Long: `Stream the create, update and delete broadcasts of an instance as the
server publishes them.

Output Formats:
  default - One human-readable line per broadcast
  json    - Line-delimited JSON for programmatic processing

Examples:
  # Watch the instance configured in cantas.yml
  cantas watch

  # Watch a local instance started by "cantas up"
  cantas watch --name default-1

  # Card activity of one board, as JSON
  cantas watch --board <board-id> --channel '/card*' --output=json > cards.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchInstanceName, "name", "n", "", "Local instance started by 'cantas up' (defaults to cantas.yml)")
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().StringVar(&watchChannel, "channel", "", "Only channels matching this glob, e.g. '/card*'")
	watchCmd.Flags().StringVar(&watchBoard, "board", "", "Only broadcasts concerning this board")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format := watch.OutputFormat(watchOutputFormat)
	if format != watch.OutputFormatDefault && format != watch.OutputFormatJSON {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	criteria := filter.Criteria{ChannelGlob: watchChannel}
	if watchBoard != "" {
		criteria.Room = models.BoardRoom(watchBoard)
	}
	if err := criteria.Validate(); err != nil {
		return fmt.Errorf("invalid --channel pattern %q: %w", watchChannel, err)
	}

	var client *board.Client
	var err error
	if watchInstanceName != "" {
		client, err = openLocalInstance(ctx, watchInstanceName)
	} else {
		var cfg *config.CantasConfig
		if cfg, err = loadConfig(); err == nil {
			client, err = openStore(ctx, cfg)
		}
	}
	if err != nil {
		return err
	}
	defer client.Close()

	return watch.StreamActivity(ctx, client, criteria, format, cmd.OutOrStdout())
}

// openLocalInstance connects to the Redis of an instance started by "cantas up".
// The instance name doubles as the key namespace.
func openLocalInstance(ctx context.Context, name string) (*board.Client, error) {
	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	if err := instance.VerifyInstanceRunning(ctx, cli, name); err != nil {
		return nil, printer.Error(
			fmt.Sprintf("instance '%s' is not running", name),
			fmt.Sprintf("Error: %v", err),
			[]string{fmt.Sprintf("Start the instance:\n  cantas up --name %s", name)},
		)
	}

	port, err := instance.GetInstanceRedisPort(ctx, cli, name)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"Redis port not found",
			fmt.Sprintf("Instance '%s' exists but its Redis port label is missing.", name),
			nil,
			[]string{fmt.Sprintf("Restart the instance:\n  cantas down --name %s\n  cantas up --name %s", name, name)},
		)
	}

	cfg := &config.CantasConfig{
		Instance: name,
		Redis:    &config.RedisConfig{URL: instance.GetRedisURL(port)},
	}
	return openStore(ctx, cfg)
}
