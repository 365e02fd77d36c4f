package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tablepos/api/internal/events"
	"github.com/tablepos/api/internal/kitchen"
	"github.com/tablepos/api/internal/posclient"
)

func newKitchenCmd(a *App) *cobra.Command {
	var station string
	var watch bool
	cmd := &cobra.Command{
		Use:   "kitchen",
		Short: "Show items waiting to be prepared, grouped by station",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := kitchen.NewQueue(a.client, station, a.log)
			if err := q.Refresh(cmd.Context()); err != nil {
				return err
			}
			if err := a.print(kitchenMarkdown(q.Stations())); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return a.watchKitchen(cmd.Context(), q, station)
		},
	}
	cmd.PersistentFlags().StringVarP(&station, "station", "s", "", "Only show one station, e.g. GRILL")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep the view open and refresh on every change")

	cmd.AddCommand(
		newKitchenMoveCmd(a, &station, "confirm", "Mark items as prepared", (*kitchen.Queue).Confirm),
		newKitchenMoveCmd(a, &station, "cancel", "Cancel items", (*kitchen.Queue).Cancel),
	)
	return cmd
}

func (a *App) watchKitchen(ctx context.Context, q *kitchen.Queue, station string) error {
	var renderErr error
	err := a.client.WatchKitchen(ctx, station, func(evt events.OrderDetailEvent) {
		a.log.Debug("kitchen event", "type", evt.Type, "detail", evt.DetailID)
		if err := q.Refresh(ctx); err != nil {
			a.log.Warn("kitchen refresh failed", "error", err)
			return
		}
		if err := a.print(kitchenMarkdown(q.Stations())); err != nil {
			renderErr = err
		}
	})
	if err != nil {
		return err
	}
	return renderErr
}

type moveFunc func(q *kitchen.Queue, ctx context.Context, ids []uuid.UUID) (int, error)

func newKitchenMoveCmd(a *App, station *string, verb, short string, move moveFunc) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <line>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := kitchen.NewQueue(a.client, *station, a.log)
			if err := q.Refresh(cmd.Context()); err != nil {
				return err
			}
			var pending []posclient.OrderDetail
			for _, s := range q.Stations() {
				pending = append(pending, s.Lines...)
			}
			ids := make([]uuid.UUID, 0, len(args))
			for _, ref := range args {
				id, err := resolveLine(pending, ref)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			n, err := move(q, cmd.Context(), ids)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "%d of %d item(s) updated.\n", n, len(ids))
			return a.print(kitchenMarkdown(q.Stations()))
		},
	}
}
