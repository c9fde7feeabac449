package commands

import (
	"github.com/spf13/cobra"

	"github.com/dyluth/cantas/internal/printer"
)

var boardUser string

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Manage boards",
}

var boardNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a default board for a user",
	Long: `Create the default board of a user: the board, its "To Do", "Doing"
and "Done" lists, the creation activity and the creator's membership.

The user is created on first use.`,
	Args: cobra.NoArgs,
	RunE: runBoardNew,
}

func init() {
	boardNewCmd.Flags().StringVarP(&boardUser, "user", "u", "", "Username of the creator (required)")
	_ = boardNewCmd.MarkFlagRequired("user")
	boardCmd.AddCommand(boardNewCmd)
	rootCmd.AddCommand(boardCmd)
}

func runBoardNew(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	_, svc, closeStore, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	user, _, err := svc.EnsureUser(ctx, boardUser)
	if err != nil {
		return err
	}

	b, err := svc.NewBoard(ctx, user)
	if err != nil {
		return err
	}

	printer.Success("Created board %s for %s\n", b.ID, boardUser)
	return nil
}
