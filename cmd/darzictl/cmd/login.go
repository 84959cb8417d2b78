package cmd

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/darziflow/console/cmd/darzictl/internal/cliconfig"
	"github.com/darziflow/console/internal/core/domain"
)

var consoleRoles = []domain.Role{domain.RoleAdmin, domain.RoleModerator}

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to DarziFlow",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cliconfig.MustFromContext(cmd.Context())
			out := cmd.OutOrStdout()

			email = strings.TrimSpace(firstNonEmpty(email, cfg.Profile.Email))
			if email == "" {
				if cfg.NonInteractive {
					return fmt.Errorf("--email is required")
				}
				v, err := pterm.DefaultInteractiveTextInput.Show("Email")
				if err != nil {
					return err
				}
				email = strings.TrimSpace(v)
			}
			if password == "" {
				if cfg.NonInteractive {
					return fmt.Errorf("--password is required")
				}
				v, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
				if err != nil {
					return err
				}
				password = v
			}

			client, err := cfg.Client(cmd.Context())
			if err != nil {
				return err
			}
			p, err := client.Login(cmd.Context(), domain.Credentials{Email: email, Password: password})
			if err != nil {
				return fmt.Errorf("login failed: %s", domain.MessageOf(err))
			}

			cfg.Profile.Email = p.Email
			cfg.Profile.Server = cfg.ServerURL
			if err := cfg.Profile.Save(cfg.ProfilePath); err != nil {
				pterm.Warning.WithWriter(cmd.ErrOrStderr()).Printf("Could not save profile: %v\n", err)
			}

			pterm.Success.WithWriter(out).Printf("Logged in as %s (%s)\n", p.DisplayName(), p.Role)
			if !p.Role.In(consoleRoles) {
				pterm.Warning.WithWriter(out).Println("This account has no access to the console.")
			}
			if p.MustChangePassword {
				pterm.Warning.WithWriter(out).Println("Your password must be changed. Run `darzictl password`.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (default from profile)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when empty)")
	return cmd
}
