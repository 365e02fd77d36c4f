package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tablepos/api/internal/posclient"
	"github.com/tablepos/api/internal/session"
)

func newLoginCmd(a *App) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the token for this terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				email = a.readLine("Email: ")
			}
			if password == "" {
				password = a.readPassword("Password: ")
			}
			if email == "" || password == "" {
				return errors.New("email and password are required")
			}
			tokens, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			a.manager.SetToken(tokens.AccessToken)
			fmt.Fprintf(a.Out, "Logged in as %s (%s).\n", tokens.User.FullName, tokens.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	return cmd
}

func newLogoutCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the token and the active table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Delete(cmd.Context(), a.cfg.Terminal); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			a.manager = nil
			fmt.Fprintln(a.Out, "Logged out.")
			return nil
		},
	}
}

func newTablesCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables and who holds them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.manager.RefreshTables(cmd.Context()); err != nil {
				return err
			}
			return a.print(tablesMarkdown(a.manager.Tables()))
		},
	}
}

func newMenuCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "List products and their sellable units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := a.loadMenu(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(menuMarkdown(rows))
		},
	}
}

// loadMenu fetches active products with their units.
func (a *App) loadMenu(ctx context.Context) ([]menuRow, error) {
	products, err := a.client.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	rows := make([]menuRow, 0, len(products))
	for _, p := range products {
		if !p.IsActive {
			continue
		}
		units, err := a.client.ListUnits(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load units for %s: %w", p.Name, err)
		}
		rows = append(rows, menuRow{product: p, units: units})
	}
	return rows, nil
}

func newMergeCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <table>...",
		Short: "Link more tables to the active order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := a.resolveTables(cmd.Context(), args)
			if err != nil {
				return err
			}
			if err := a.manager.MergeTables(cmd.Context(), ids); err != nil {
				return err
			}
			return a.showOrder()
		},
	}
}

func newSplitCmd(a *App) *cobra.Command {
	var to, lineFlags []string
	cmd := &cobra.Command{
		Use:   "split --to <table>... --line <line>=<qty>...",
		Short: "Move items of the active order to a new order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(to) == 0 {
				return session.ErrNoTargetTables
			}
			tableIDs, err := a.resolveTables(cmd.Context(), to)
			if err != nil {
				return err
			}
			lines, err := a.parseSplitLines(lineFlags)
			if err != nil {
				return err
			}
			res, err := a.manager.SplitOrder(cmd.Context(), tableIDs, lines)
			if err != nil {
				return err
			}
			if res.Target != nil {
				fmt.Fprintf(a.Out, "Moved %d item(s) to order %s.\n", len(lines), shortID(res.Target.ID))
			}
			return a.showOrder()
		},
	}
	cmd.Flags().StringSliceVar(&to, "to", nil, "Tables for the new order")
	cmd.Flags().StringArrayVar(&lineFlags, "line", nil, "Item and quantity to move, as <line>=<qty>")
	return cmd
}

func (a *App) parseSplitLines(flags []string) ([]posclient.SplitLine, error) {
	lines := make([]posclient.SplitLine, 0, len(flags))
	for _, arg := range flags {
		ref, qty, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --line %q, want <line>=<qty>", arg)
		}
		id, err := a.resolveOrderLine(ref)
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(qty, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity in --line %q", arg)
		}
		lines = append(lines, posclient.SplitLine{OrderDetailID: id, Quantity: int32(n)})
	}
	return lines, nil
}
