package main

import (
	"os"
	"strconv"

	"socialsellers/internal/services"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newReportCmd(a *app) *cobra.Command {
	report := &cobra.Command{
		Use:   "report",
		Short: "Print sales reports to the terminal",
	}

	var percentage string
	commissions := &cobra.Command{
		Use:   "commissions",
		Short: "Commission per seller",
		RunE: func(cmd *cobra.Command, args []string) error {
			pct, err := decimal.NewFromString(percentage)
			if err != nil {
				return err
			}
			rows, err := services.NewReportService(a.db, a.log).Commissions(cmd.Context(), pct)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Vendedor", "Ventas", "Total vendido", "%", "Comisión"})
			total := decimal.Zero
			for _, c := range rows {
				t.AppendRow(table.Row{c.SellerID, c.Name, c.SaleCount, c.Total.StringFixed(2), c.Percentage.String(), c.Amount.StringFixed(2)})
				total = total.Add(c.Amount)
			}
			t.AppendFooter(table.Row{"", "", "", "", "Total", total.StringFixed(2)})
			t.SetColumnConfigs([]table.ColumnConfig{
				{Number: 4, Align: text.AlignRight},
				{Number: 6, Align: text.AlignRight},
			})
			t.Render()
			return nil
		},
	}
	commissions.Flags().StringVar(&percentage, "porcentaje", services.DefaultCommissionPercentage.String(), "commission percentage (0-100)")

	var limit int
	topProducts := &cobra.Command{
		Use:   "top-products",
		Short: "Best selling products by units",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := services.NewReportService(a.db, a.log).TopProducts(cmd.Context(), limit)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"#", "Producto", "Unidades", "Monto"})
			for i, p := range rows {
				t.AppendRow(table.Row{strconv.Itoa(i + 1), p.Name, p.Quantity, p.Amount.StringFixed(2)})
			}
			t.Render()
			return nil
		},
	}
	topProducts.Flags().IntVar(&limit, "limite", services.DefaultTopProducts, "number of products")

	report.AddCommand(commissions, topProducts)
	return report
}
