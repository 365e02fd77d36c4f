package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tablepos/api/internal/menu"
	"github.com/tablepos/api/internal/session"
)

func (a *App) showOrder() error {
	return a.print(orderMarkdown(a.manager.Table(), a.manager.Tables(), a.manager.Order()))
}

func newSelectCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "select <table>",
		Short: "Make a table active and load its open order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.resolveTable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.manager.SelectTable(cmd.Context(), id); err != nil {
				return err
			}
			return a.showOrder()
		},
	}
}

func newShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active table's order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if t := a.manager.Table(); t != nil {
				if err := a.manager.SelectTable(cmd.Context(), t.ID); err != nil {
					return err
				}
			}
			return a.showOrder()
		},
	}
}

func newAddCmd(a *App) *cobra.Command {
	var qty int
	var note string
	cmd := &cobra.Command{
		Use:   "add <unit-id | item text>",
		Short: "Add an item to the active table, opening an order if needed",
		Long: `Add an item by unit id, or by name as shown by "posctl menu":

  posctl add 2x iced tea pitcher

A quantity in the text is used unless --qty is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.manager.Table() == nil {
				return session.ErrNoTable
			}
			unitID, textQty, err := a.resolveUnit(cmd.Context(), args)
			if err != nil {
				return err
			}
			if textQty > 0 && !cmd.Flags().Changed("qty") {
				qty = textQty
			}
			if err := a.manager.AddItem(cmd.Context(), unitID, qty, note); err != nil {
				return err
			}
			return a.showOrder()
		},
	}
	cmd.Flags().IntVarP(&qty, "qty", "q", 1, "Quantity (1-99)")
	cmd.Flags().StringVarP(&note, "note", "n", "", "Note for the kitchen")
	return cmd
}

// resolveUnit accepts a unit UUID or free text matched against the menu.
func (a *App) resolveUnit(ctx context.Context, args []string) (uuid.UUID, int, error) {
	if len(args) == 1 {
		if id, err := uuid.Parse(args[0]); err == nil {
			return id, 0, nil
		}
	}
	rows, err := a.loadMenu(ctx)
	if err != nil {
		return uuid.Nil, 0, err
	}
	var items []menu.Item
	for _, r := range rows {
		for _, u := range r.units {
			items = append(items, menu.Item{
				UnitID: u.ID, ProductName: r.product.Name, UnitName: u.Name, Price: u.Price,
			})
		}
	}

	text := strings.Join(args, " ")
	res := menu.NewMatcher(items).Match(text)
	switch res.Status {
	case menu.Matched:
		a.log.Debug("item matched", "text", text, "unit", res.Item.Label())
		return res.Item.UnitID, res.Quantity, nil
	case menu.Ambiguous:
		labels := make([]string, len(res.Candidates))
		for i, c := range res.Candidates {
			labels[i] = c.Label()
		}
		return uuid.Nil, 0, fmt.Errorf("%q could be %s", text, strings.Join(labels, ", "))
	default:
		return uuid.Nil, 0, fmt.Errorf("nothing on the menu matches %q", text)
	}
}

func newQtyCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "qty <line> <quantity>",
		Short: "Change an item's quantity (clamped to 1-99)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lineID, err := a.resolveOrderLine(args[0])
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be a number, got %q", args[1])
			}
			if err := a.manager.UpdateQuantity(cmd.Context(), lineID, n); err != nil {
				return err
			}
			return a.showOrder()
		},
	}
}

func newNoteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "note <line> <text>...",
		Short: "Attach a note to an item",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lineID, err := a.resolveOrderLine(args[0])
			if err != nil {
				return err
			}
			if err := a.manager.AttachNote(cmd.Context(), lineID, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			return a.showOrder()
		},
	}
}

func newRmCmd(a *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <line>",
		Short: "Remove an item; removing the last one deletes the order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lineID, err := a.resolveOrderLine(args[0])
			if err != nil {
				return err
			}
			confirm := a.confirm
			if yes {
				confirm = func(string) bool { return true }
			}
			removed, err := a.manager.RemoveItem(cmd.Context(), lineID, confirm)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintln(a.Out, "Nothing removed.")
				return nil
			}
			if a.manager.Order() == nil {
				fmt.Fprintln(a.Out, "Order deleted and table freed.")
				return nil
			}
			return a.showOrder()
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask before deleting the order")
	return cmd
}

func newSendCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "send",
		Short: "Send new items to the kitchen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.manager.NotifyKitchen(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "Sent %d item(s) to the kitchen.\n", n)
			return a.showOrder()
		},
	}
}
