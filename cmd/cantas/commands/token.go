package commands

import (
	"github.com/spf13/cobra"

	"github.com/dyluth/cantas/internal/auth"
	"github.com/dyluth/cantas/internal/models"
	"github.com/dyluth/cantas/internal/printer"
)

var tokenUser string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a session token for a user",
	Long: `Mint a signed session token for a user, creating the user on first use.

The token is accepted as the session cookie or as the "token" query parameter
of the WebSocket endpoint:

  cantas token --user alice
  wscat -c "ws://localhost:8000/socket?token=$(cantas token --user alice)"`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenUser, "user", "u", "", "Username (required)")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, svc, closeStore, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	user, created, err := svc.EnsureUser(ctx, tokenUser)
	if err != nil {
		return err
	}
	if created {
		printer.Warning("created user %s (%s)\n", tokenUser, user.ID)
	}

	authenticator := auth.NewAuthenticator([]byte(cfg.Auth.Secret), cfg.Auth.CookieName, cfg.TokenTTL(), svc, models.User)
	token, err := authenticator.Issue(user.ID)
	if err != nil {
		return err
	}

	printer.Info("%s\n", token)
	return nil
}
