package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/darziflow/console/cmd/darzictl/internal/cliconfig"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cliconfig.MustFromContext(cmd.Context())
			client, err := cfg.Client(cmd.Context())
			if err != nil {
				return err
			}
			if client.HasToken() {
				if err := client.Logout(cmd.Context()); err != nil {
					log := cfg.Logger()
					log.Debug().Err(err).Msg("backend logout failed")
				}
			}
			if err := client.ClearToken(cmd.Context()); err != nil {
				return fmt.Errorf("failed to delete token: %w", err)
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Println("Logged out successfully")
			return nil
		},
	}
}
