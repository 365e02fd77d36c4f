package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tablepos/api/internal/database"
	"github.com/tablepos/api/internal/enum"
)

// MergeTablesRequest attaches more tables to an open order.
type MergeTablesRequest struct {
	OrderID      uuid.UUID
	RestaurantID uuid.UUID
	TableIDs     []uuid.UUID
}

// SplitOrderRequest moves quantities of some lines to a new order on other tables.
type SplitOrderRequest struct {
	OrderID      uuid.UUID
	RestaurantID uuid.UUID
	CreatedBy    uuid.UUID
	TableIDs     []uuid.UUID
	Items        []SplitItem
}

// SplitItem is one line to move and how much of it.
type SplitItem struct {
	DetailID uuid.UUID
	Quantity int32
}

// SplitResult holds both orders after a split. Source is nil when every line
// moved and the source order was deleted.
type SplitResult struct {
	Source *OrderView
	Target *OrderView
}

// MergeTables links the given tables to the order. A table linked to another
// open order fails the whole request.
func (s *OrderService) MergeTables(ctx context.Context, req MergeTablesRequest) (*OrderView, error) {
	tableIDs := uniqueIDs(req.TableIDs)
	if len(tableIDs) == 0 {
		return nil, ErrNoTables
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := lockOpenOrder(ctx, store, req.OrderID, req.RestaurantID)
	if err != nil {
		return nil, err
	}

	owned := make(map[uuid.UUID]bool, len(order.TableIDs))
	for _, id := range order.TableIDs {
		owned[id] = true
	}
	var added []uuid.UUID
	for _, id := range tableIDs {
		if !owned[id] {
			added = append(added, id)
		}
	}

	if len(added) > 0 {
		if err := lockFreeTables(ctx, store, req.RestaurantID, added, order.ID); err != nil {
			return nil, err
		}
		tableStatus := enum.TableStatusOccupied
		if order.Status == enum.OrderStatusReserved {
			tableStatus = enum.TableStatusReserved
		}
		if err := claimTables(ctx, store, added, order.ID, tableStatus); err != nil {
			return nil, err
		}
		if _, err := store.SetOrderTables(ctx, database.SetOrderTablesParams{
			ID:       order.ID,
			TableIDs: append(append([]uuid.UUID{}, order.TableIDs...), added...),
		}); err != nil {
			return nil, fmt.Errorf("set order tables: %w", err)
		}
	}

	view, err := refreshView(ctx, store, order.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return view, nil
}

// SplitOrder moves the selected quantities to a new order on free tables.
// Every item must satisfy 0 < quantity <= the line's quantity; a full
// quantity moves the line, a partial one splits it at the same price and status.
func (s *OrderService) SplitOrder(ctx context.Context, req SplitOrderRequest) (*SplitResult, error) {
	tableIDs := uniqueIDs(req.TableIDs)
	if len(tableIDs) == 0 {
		return nil, ErrNoTables
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptySplit
	}
	seen := make(map[uuid.UUID]bool, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrSplitQuantity)
		}
		if seen[item.DetailID] {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrDuplicateSplitLine)
		}
		seen[item.DetailID] = true
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	source, err := lockOpenOrder(ctx, store, req.OrderID, req.RestaurantID)
	if err != nil {
		return nil, err
	}

	lines, err := store.ListOrderDetailsByOrder(ctx, source.ID)
	if err != nil {
		return nil, fmt.Errorf("list order details: %w", err)
	}
	byID := make(map[uuid.UUID]database.OrderDetail, len(lines))
	for _, d := range lines {
		byID[d.ID] = d
	}
	for i, item := range req.Items {
		d, ok := byID[item.DetailID]
		if !ok {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrDetailNotFound)
		}
		if item.Quantity > d.Quantity {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrSplitQuantity)
		}
	}

	if err := lockFreeTables(ctx, store, req.RestaurantID, tableIDs, uuid.Nil); err != nil {
		return nil, err
	}

	status := enum.OrderStatusPending
	if source.Status == enum.OrderStatusWaiting {
		status = enum.OrderStatusWaiting
	}
	target, err := store.CreateOrder(ctx, database.CreateOrderParams{
		RestaurantID: req.RestaurantID,
		Status:       status,
		TableIDs:     tableIDs,
		ClientID:     source.ClientID,
		CreatedBy:    req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if err := claimTables(ctx, store, tableIDs, target.ID, enum.TableStatusOccupied); err != nil {
		return nil, err
	}

	for _, item := range req.Items {
		d := byID[item.DetailID]
		if item.Quantity == d.Quantity {
			if _, err := store.MoveOrderDetail(ctx, database.MoveOrderDetailParams{ID: d.ID, OrderID: target.ID}); err != nil {
				return nil, fmt.Errorf("move order detail: %w", err)
			}
			continue
		}
		if _, err := store.UpdateOrderDetail(ctx, database.UpdateOrderDetailParams{
			ID:       d.ID,
			Quantity: d.Quantity - item.Quantity,
			Note:     d.Note,
		}); err != nil {
			return nil, fmt.Errorf("reduce order detail: %w", err)
		}
		if _, err := store.CreateOrderDetail(ctx, database.CreateOrderDetailParams{
			OrderID:     target.ID,
			UnitID:      d.UnitID,
			ProductID:   d.ProductID,
			Quantity:    item.Quantity,
			UnitPrice:   d.UnitPrice,
			Status:      d.Status,
			Note:        d.Note,
			Station:     d.Station,
			ProductName: d.ProductName,
			UnitName:    d.UnitName,
		}); err != nil {
			return nil, fmt.Errorf("create split detail: %w", err)
		}
	}

	result := &SplitResult{}
	remaining, err := store.CountOrderDetails(ctx, source.ID)
	if err != nil {
		return nil, fmt.Errorf("count order details: %w", err)
	}
	if remaining == 0 {
		if err := deleteOrder(ctx, store, source.ID); err != nil {
			return nil, err
		}
	} else if result.Source, err = refreshView(ctx, store, source.ID); err != nil {
		return nil, err
	}

	if result.Target, err = refreshView(ctx, store, target.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}
