package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/tablepos/api/internal/billing"
	"github.com/tablepos/api/internal/enum"
)

func parseAmount(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a number, got %q", name, s)
	}
	return d, nil
}

func newPayCmd(a *App) *cobra.Command {
	var tendered, method string
	cmd := &cobra.Command{
		Use:   "pay --tendered <amount>",
		Short: "Take payment for the active order and free its tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paid, err := parseAmount("tendered", tendered)
			if err != nil {
				return err
			}
			inv, summary, err := a.manager.Checkout(cmd.Context(), paid, method)
			if err != nil {
				return err
			}
			return a.print(receiptMarkdown(inv, summary))
		},
	}
	cmd.Flags().StringVarP(&tendered, "tendered", "t", "", "Amount the customer paid")
	cmd.Flags().StringVarP(&method, "method", "m", enum.PaymentMethodCash, "CASH, CARD or TRANSFER")
	_ = cmd.MarkFlagRequired("tendered")
	return cmd
}

func newChangeCmd(a *App) *cobra.Command {
	var total, tendered string
	cmd := &cobra.Command{
		Use:   "change --total <amount> --tendered <amount>",
		Short: "Work out the change due without touching any order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseAmount("total", total)
			if err != nil {
				return err
			}
			p, err := parseAmount("tendered", tendered)
			if err != nil {
				return err
			}
			if t.IsNegative() || p.IsNegative() {
				return billing.ErrNegativeAmount
			}
			s := billing.Summarize(t, p)
			if p.LessThan(t) {
				fmt.Fprintf(a.Out, "Short by %s.\n", money(t.Sub(p)))
				return nil
			}
			fmt.Fprintf(a.Out, "Change due: %s\n", money(s.Change))
			return nil
		},
	}
	cmd.Flags().StringVar(&total, "total", "", "Order total")
	cmd.Flags().StringVarP(&tendered, "tendered", "t", "", "Amount the customer paid")
	_ = cmd.MarkFlagRequired("total")
	_ = cmd.MarkFlagRequired("tendered")
	return cmd
}
