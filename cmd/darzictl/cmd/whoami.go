package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/darziflow/console/internal/core/domain"
)

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sessionClient(cmd)
			if err != nil {
				return err
			}
			p, err := client.Me(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to resolve session: %s", domain.MessageOf(err))
			}

			data := pterm.TableData{
				{"Email", p.Email},
				{"Name", firstNonEmpty(p.Name, "-")},
				{"Role", p.Role.String()},
				{"Console access", yesNo(p.Role.In(consoleRoles))},
				{"Password change required", yesNo(p.MustChangePassword)},
			}
			return pterm.DefaultTable.WithWriter(cmd.OutOrStdout()).WithData(data).Render()
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
