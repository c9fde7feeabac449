package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/cantas/internal/printer"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cantas",
	Short: "Cantas - realtime collaborative kanban boards",
	Long: `Cantas serves collaborative kanban boards: boards, lists, cards,
comments and votes stored in Redis and kept in sync across browsers over a
WebSocket event protocol.

Start a local Redis with "cantas up", then run "cantas serve".`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		printer.Stdout = cmd.OutOrStdout()
		printer.Stderr = cmd.ErrOrStderr()
	},
	// Show help rather than silently succeeding on "cantas --flag"
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Errors are printed by the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "cantas.yml", "Path to the configuration file")
}
