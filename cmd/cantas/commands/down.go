package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	dockerpkg "github.com/dyluth/cantas/internal/docker"
	"github.com/dyluth/cantas/internal/instance"
	"github.com/dyluth/cantas/internal/printer"
)

var downInstanceName string

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop a local Redis instance",
	Long: `Stop and remove the containers and network of an instance started by
"cantas up". Board data stored in that Redis is lost.

The instance name may be omitted when exactly one instance exists.

Examples:
  cantas down
  cantas down --name default-2`,
	Args: cobra.NoArgs,
	RunE: runDown,
}

func init() {
	downCmd.Flags().StringVarP(&downInstanceName, "name", "n", "", "Target instance name")
	rootCmd.AddCommand(downCmd)
}

func runDown(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	name := downInstanceName
	if name == "" {
		infos, err := instance.List(ctx, cli, time.Now())
		if err != nil {
			return err
		}
		switch len(infos) {
		case 0:
			return printer.Error(
				"no Cantas instances found",
				"There is nothing to stop.",
				[]string{"Start an instance first:\n  cantas up"},
			)
		case 1:
			name = infos[0].Name
		default:
			return printer.Error(
				"multiple instances found",
				fmt.Sprintf("Found %d instances.", len(infos)),
				[]string{
					"Specify which instance to stop:\n  cantas down --name <instance-name>",
					"List instances:\n  cantas list",
				},
			)
		}
	}

	if err := instance.Remove(ctx, cli, name, printer.Step); err != nil {
		if errors.Is(err, instance.ErrNotFound) {
			return printer.Error(
				fmt.Sprintf("instance '%s' not found", name),
				fmt.Sprintf("No containers or networks carry instance name '%s'.", name),
				[]string{"Run 'cantas list' to see available instances"},
			)
		}
		return err
	}

	printer.Success("\nInstance '%s' removed successfully\n", name)
	return nil
}
