package commands

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	dockerpkg "github.com/dyluth/cantas/internal/docker"
	"github.com/dyluth/cantas/internal/instance"
	"github.com/dyluth/cantas/internal/printer"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List local Redis instances",
	Long: `List the instances started by "cantas up" with their status, Redis URL
and uptime.

Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cli, err := dockerpkg.NewClient(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	infos, err := instance.List(ctx, cli, time.Now())
	if err != nil {
		return err
	}

	return writeInstances(infos, listJSON)
}

func writeInstances(infos []instance.InstanceInfo, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return err
		}
		printer.Info("%s\n", data)
		return nil
	}

	if len(infos) == 0 {
		printer.Info("No Cantas instances found.\n\nRun 'cantas up' to start a new instance.\n")
		return nil
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{info.Name, string(info.Status), info.RedisURL, info.Uptime})
	}
	return printer.Table([]string{"Instance", "Status", "Redis", "Uptime"}, rows)
}
