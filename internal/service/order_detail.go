package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablepos/api/internal/database"
	"github.com/tablepos/api/internal/enum"
)

// AddDetailRequest adds one line to an open order.
type AddDetailRequest struct {
	RestaurantID uuid.UUID
	OrderID      uuid.UUID
	UnitID       uuid.UUID
	Quantity     int32
	Note         string
}

// UpdateDetailRequest changes a line. Nil fields are left as they are.
type UpdateDetailRequest struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Quantity     *int32
	Note         *string
}

// DetailResult is the changed line plus the refreshed order.
type DetailResult struct {
	Detail database.OrderDetail
	View   *OrderView
}

// RemoveDetailResult reports whether removing the line also deleted the order.
// View is nil when OrderDeleted is true.
type RemoveDetailResult struct {
	Detail       database.OrderDetail
	OrderDeleted bool
	View         *OrderView
}

// StatusResult lists the lines whose status changed. View is set when the
// change was made for a single order.
type StatusResult struct {
	Updated []database.OrderDetail
	View    *OrderView
}

func validQuantity(q int32) bool {
	return q >= MinQuantity && q <= MaxQuantity
}

// AddDetail creates an AWAITING line priced from the unit at the time of adding.
// A WAITING order goes back to PENDING since it has unsent lines again.
func (s *OrderService) AddDetail(ctx context.Context, req AddDetailRequest) (*DetailResult, error) {
	if !validQuantity(req.Quantity) {
		return nil, ErrInvalidQuantity
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

	unit, err := store.GetUnitForOrder(ctx, database.GetUnitForOrderParams{ID: req.UnitID, RestaurantID: req.RestaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnitNotFound
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}
	if !unit.ProductActive {
		return nil, ErrProductInactive
	}

	detail, err := store.CreateOrderDetail(ctx, database.CreateOrderDetailParams{
		OrderID:     order.ID,
		UnitID:      unit.ID,
		ProductID:   unit.ProductID,
		Quantity:    req.Quantity,
		UnitPrice:   unit.Price,
		Status:      enum.OrderDetailStatusAwaiting,
		Note:        optionalText(req.Note),
		Station:     unit.Station,
		ProductName: unit.ProductName,
		UnitName:    unit.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("create order detail: %w", err)
	}

	if order.Status == enum.OrderStatusWaiting {
		if _, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:     order.ID,
			Status: enum.OrderStatusPending,
		}); err != nil {
			return nil, fmt.Errorf("update order status: %w", err)
		}
	}

	view, err := refreshView(ctx, store, order.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &DetailResult{Detail: detail, View: view}, nil
}

// UpdateDetail changes the quantity or note of a line. The quantity can only
// change while the line is AWAITING; the note can always change.
func (s *OrderService) UpdateDetail(ctx context.Context, req UpdateDetailRequest) (*DetailResult, error) {
	if req.Quantity != nil && !validQuantity(*req.Quantity) {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	detail, order, err := lockDetail(ctx, store, req.ID, req.RestaurantID)
	if err != nil {
		return nil, err
	}

	params := database.UpdateOrderDetailParams{
		ID:       detail.ID,
		Quantity: detail.Quantity,
		Note:     detail.Note,
	}
	if req.Quantity != nil && *req.Quantity != detail.Quantity {
		if detail.Status != enum.OrderDetailStatusAwaiting {
			return nil, ErrDetailLocked
		}
		params.Quantity = *req.Quantity
	}
	if req.Note != nil {
		params.Note = optionalText(*req.Note)
	}

	updated, err := store.UpdateOrderDetail(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("update order detail: %w", err)
	}

	view, err := refreshView(ctx, store, order.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &DetailResult{Detail: updated, View: view}, nil
}

// RemoveDetail deletes a line. Removing the last line deletes the order and
// frees its tables.
func (s *OrderService) RemoveDetail(ctx context.Context, id, restaurantID uuid.UUID) (*RemoveDetailResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	detail, order, err := lockDetail(ctx, store, id, restaurantID)
	if err != nil {
		return nil, err
	}

	if err := store.DeleteOrderDetail(ctx, detail.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDetailNotFound
		}
		return nil, fmt.Errorf("delete order detail: %w", err)
	}

	remaining, err := store.CountOrderDetails(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("count order details: %w", err)
	}

	result := &RemoveDetailResult{Detail: detail}
	if remaining == 0 {
		if err := deleteOrder(ctx, store, order.ID); err != nil {
			return nil, err
		}
		result.OrderDeleted = true
	} else {
		if result.View, err = refreshView(ctx, store, order.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// SendToKitchen moves every AWAITING line of the order to PENDING and marks
// the order WAITING. Lines in any other status are untouched.
func (s *OrderService) SendToKitchen(ctx context.Context, orderID, restaurantID uuid.UUID) (*StatusResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := lockOpenOrder(ctx, store, orderID, restaurantID)
	if err != nil {
		return nil, err
	}
	if order.Status == enum.OrderStatusReserved {
		return nil, ErrOrderReserved
	}

	updated, err := store.TransitionOrderDetailsByOrder(ctx, database.TransitionOrderDetailsByOrderParams{
		OrderID:    order.ID,
		FromStatus: enum.OrderDetailStatusAwaiting,
		ToStatus:   enum.OrderDetailStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("send order details: %w", err)
	}

	if len(updated) > 0 && order.Status == enum.OrderStatusPending {
		if _, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:     order.ID,
			Status: enum.OrderStatusWaiting,
		}); err != nil {
			return nil, fmt.Errorf("update order status: %w", err)
		}
	}

	view, err := refreshView(ctx, store, order.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &StatusResult{Updated: updated, View: view}, nil
}

// UpdateDetailStatus moves PENDING lines to CONFIRMED or CANCELED. Lines not
// currently PENDING are skipped. Canceling a line drops it from the order total.
func (s *OrderService) UpdateDetailStatus(ctx context.Context, ids []uuid.UUID, restaurantID uuid.UUID, status string) (*StatusResult, error) {
	if status != enum.OrderDetailStatusConfirmed && status != enum.OrderDetailStatusCanceled {
		return nil, ErrInvalidStatus
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, ErrEmptyIDs
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	updated, err := store.TransitionOrderDetails(ctx, database.TransitionOrderDetailsParams{
		IDs:          ids,
		RestaurantID: restaurantID,
		FromStatus:   enum.OrderDetailStatusPending,
		ToStatus:     status,
	})
	if err != nil {
		return nil, fmt.Errorf("update order detail status: %w", err)
	}

	if status == enum.OrderDetailStatusCanceled {
		seen := make(map[uuid.UUID]bool)
		for _, d := range updated {
			if seen[d.OrderID] {
				continue
			}
			seen[d.OrderID] = true
			if _, err := store.RecalculateOrderTotal(ctx, d.OrderID); err != nil {
				return nil, fmt.Errorf("recalculate total: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &StatusResult{Updated: updated}, nil
}

// lockDetail loads a line of the restaurant and locks its open order.
func lockDetail(ctx context.Context, store OrderStore, id, restaurantID uuid.UUID) (database.OrderDetail, database.Order, error) {
	detail, err := store.GetOrderDetail(ctx, database.GetOrderDetailParams{ID: id, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return detail, database.Order{}, ErrDetailNotFound
		}
		return detail, database.Order{}, fmt.Errorf("get order detail: %w", err)
	}
	order, err := lockOpenOrder(ctx, store, detail.OrderID, restaurantID)
	if err != nil {
		return detail, order, err
	}
	return detail, order, nil
}

// refreshView recomputes the order total and reloads its lines.
func refreshView(ctx context.Context, store OrderStore, orderID uuid.UUID) (*OrderView, error) {
	order, err := store.RecalculateOrderTotal(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("recalculate total: %w", err)
	}
	details, err := store.ListOrderDetailsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order details: %w", err)
	}
	return &OrderView{Order: order, Details: details}, nil
}
