package cmd

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/darziflow/console/internal/core/domain"
)

func newDepartmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "departments",
		Aliases: []string{"deps"},
		Short:   "Inspect production departments",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List departments",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sessionClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), listTimeout)
			defer cancel()

			deps, err := client.ListDepartments(ctx)
			if err != nil {
				return fmt.Errorf("failed to list departments: %s", domain.MessageOf(err))
			}
			if len(deps) == 0 {
				pterm.Info.WithWriter(cmd.OutOrStdout()).Println("No departments found")
				return nil
			}

			data := pterm.TableData{{"ID", "NAME", "HEAD", "DESCRIPTION"}}
			for _, d := range deps {
				data = append(data, []string{d.ID, d.Name, firstNonEmpty(d.HeadEmail, "-"), firstNonEmpty(d.Description, "-")})
			}
			return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
		},
	})
	return cmd
}
