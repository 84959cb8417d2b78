package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/ports"
)

const listTimeout = 10 * time.Second

func newOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect customer orders",
	}
	cmd.AddCommand(newOrdersListCmd())
	return cmd
}

func newOrdersListCmd() *cobra.Command {
	var status, search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sessionClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), listTimeout)
			defer cancel()

			orders, err := client.ListOrders(ctx, ports.OrderFilter{
				Status: domain.OrderStatus(strings.ToUpper(strings.TrimSpace(status))),
				Search: strings.TrimSpace(search),
			})
			if err != nil {
				return fmt.Errorf("failed to list orders: %s", domain.MessageOf(err))
			}
			if len(orders) == 0 {
				pterm.Info.WithWriter(cmd.OutOrStdout()).Println("No orders found")
				return nil
			}

			data := pterm.TableData{{"REFERENCE", "CUSTOMER", "STATUS", "ITEMS", "DUE"}}
			for _, o := range orders {
				due := "-"
				if !o.DueDate.IsZero() {
					due = o.DueDate.Format("2006-01-02")
				}
				data = append(data, []string{
					firstNonEmpty(o.Reference, o.ID),
					o.Customer,
					string(o.Status),
					fmt.Sprint(itemCount(o.Items)),
					due,
				})
			}
			return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only orders in this status (PENDING, IN_PROGRESS, QC, COMPLETED, CANCELLED)")
	cmd.Flags().StringVar(&search, "search", "", "Match customer or reference")
	return cmd
}

func itemCount(items []domain.OrderItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
