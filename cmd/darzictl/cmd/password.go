package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/darziflow/console/cmd/darzictl/internal/cliconfig"
	"github.com/darziflow/console/internal/core/domain"
)

const minPasswordLength = 8

func newPasswordCmd() *cobra.Command {
	var current, next string

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the account password",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cliconfig.MustFromContext(cmd.Context())
			if current == "" || next == "" {
				if cfg.NonInteractive {
					return fmt.Errorf("--current and --new are required")
				}
				var err error
				if current == "" {
					if current, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("Current password"); err != nil {
						return err
					}
				}
				if next == "" {
					if next, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("New password"); err != nil {
						return err
					}
				}
			}
			if len(next) < minPasswordLength {
				return fmt.Errorf("new password must be at least %d characters", minPasswordLength)
			}

			client, err := sessionClient(cmd)
			if err != nil {
				return err
			}
			if err := client.ChangePassword(cmd.Context(), current, next); err != nil {
				return fmt.Errorf("password not changed: %s", domain.MessageOf(err))
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Println("Password updated")
			return nil
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "Current password")
	cmd.Flags().StringVar(&next, "new", "", "New password")
	return cmd
}
