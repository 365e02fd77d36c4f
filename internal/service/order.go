package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablepos/api/internal/database"
	"github.com/tablepos/api/internal/enum"
)

const (
	MinQuantity = 1
	MaxQuantity = 99
)

// Errors returned by the order service.
var (
	ErrNoTables             = errors.New("table_ids are required")
	ErrTableNotFound        = errors.New("dining table not found")
	ErrTableInactive        = errors.New("dining table is not active")
	ErrTableInUse           = errors.New("dining table is linked to another open order")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderClosed          = errors.New("order is no longer open")
	ErrOrderCompleted       = errors.New("completed orders cannot be deleted")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidTransition    = errors.New("status transition not allowed")
	ErrCompleteViaInvoice   = errors.New("orders are completed by creating an invoice")
	ErrOrderReserved        = errors.New("reserved orders must be seated before sending to the kitchen")
	ErrInvalidQuantity      = errors.New("quantity must be between 1 and 99")
	ErrUnitNotFound         = errors.New("unit not found")
	ErrProductInactive      = errors.New("product is not active")
	ErrDetailNotFound       = errors.New("order detail not found")
	ErrDetailLocked         = errors.New("quantity can only change before the line is sent to the kitchen")
	ErrEmptyIDs             = errors.New("ids are required")
	ErrEmptySplit           = errors.New("items are required")
	ErrDuplicateSplitLine   = errors.New("order detail listed more than once")
	ErrSplitQuantity        = errors.New("split quantity must be greater than 0 and at most the line quantity")
	ErrInvalidPaymentMethod = errors.New("payment_method must be CASH, CARD or TRANSFER")
	ErrInsufficientPayment  = errors.New("customer_paid is less than the order total")
	ErrNoBillableLines      = errors.New("order has no billable lines")
	ErrOrderAlreadyPaid     = errors.New("order already has an invoice")
	ErrOrderCanceled        = errors.New("order is canceled")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the order workflow needs inside a transaction.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	UpdateOrder(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	SetOrderTables(ctx context.Context, arg database.SetOrderTablesParams) (database.Order, error)
	RecalculateOrderTotal(ctx context.Context, id uuid.UUID) (database.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error

	LockDiningTables(ctx context.Context, arg database.LockDiningTablesParams) ([]database.DiningTable, error)
	ClaimDiningTables(ctx context.Context, arg database.ClaimDiningTablesParams) (int64, error)
	ReleaseDiningTables(ctx context.Context, orderID uuid.UUID) error
	SetDiningTablesStatusByOrder(ctx context.Context, arg database.SetDiningTablesStatusByOrderParams) error

	GetUnitForOrder(ctx context.Context, arg database.GetUnitForOrderParams) (database.GetUnitForOrderRow, error)
	CreateOrderDetail(ctx context.Context, arg database.CreateOrderDetailParams) (database.OrderDetail, error)
	GetOrderDetail(ctx context.Context, arg database.GetOrderDetailParams) (database.OrderDetail, error)
	ListOrderDetailsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderDetail, error)
	UpdateOrderDetail(ctx context.Context, arg database.UpdateOrderDetailParams) (database.OrderDetail, error)
	DeleteOrderDetail(ctx context.Context, id uuid.UUID) error
	DeleteOrderDetailsByOrder(ctx context.Context, orderID uuid.UUID) error
	CountOrderDetails(ctx context.Context, orderID uuid.UUID) (int64, error)
	TransitionOrderDetailsByOrder(ctx context.Context, arg database.TransitionOrderDetailsByOrderParams) ([]database.OrderDetail, error)
	TransitionOrderDetails(ctx context.Context, arg database.TransitionOrderDetailsParams) ([]database.OrderDetail, error)
	MoveOrderDetail(ctx context.Context, arg database.MoveOrderDetailParams) (database.OrderDetail, error)

	CreateInvoice(ctx context.Context, arg database.CreateInvoiceParams) (database.Invoice, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// OrderView is an order together with its lines, as returned after every mutation.
type OrderView struct {
	Order   database.Order
	Details []database.OrderDetail
}

// CreateOrderRequest is the validated input for opening an order on tables.
type CreateOrderRequest struct {
	RestaurantID    uuid.UUID
	CreatedBy       uuid.UUID
	TableIDs        []uuid.UUID
	ClientID        *uuid.UUID
	ReservationTime *time.Time
	Note            string
}

// UpdateOrderRequest changes order fields. Nil fields are left as they are.
type UpdateOrderRequest struct {
	ID              uuid.UUID
	RestaurantID    uuid.UUID
	ClientID        *uuid.UUID
	ReservationTime *time.Time
	Note            *string
	Status          string
}

// OrderService handles order, line, table and invoice business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// allowedTransitions defines valid order status transitions.
// COMPLETED is listed so invoices can check it; UpdateOrder refuses it.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:  {enum.OrderStatusWaiting, enum.OrderStatusCanceled, enum.OrderStatusCompleted},
	enum.OrderStatusReserved: {enum.OrderStatusPending, enum.OrderStatusCanceled},
	enum.OrderStatusWaiting:  {enum.OrderStatusPending, enum.OrderStatusCompleted, enum.OrderStatusCanceled},
}

func validateStatusTransition(current, next string) error {
	for _, s := range allowedTransitions[current] {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, next)
}

func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusReserved, enum.OrderStatusWaiting,
		enum.OrderStatusCompleted, enum.OrderStatusCanceled:
		return true
	}
	return false
}

// CreateOrder opens an order on the given tables. Every table must be active
// and free. The order starts PENDING, or RESERVED when a reservation time is set.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderView, error) {
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

	if err := lockFreeTables(ctx, store, req.RestaurantID, tableIDs, uuid.Nil); err != nil {
		return nil, err
	}

	status, tableStatus := enum.OrderStatusPending, enum.TableStatusOccupied
	reservation := pgtype.Timestamptz{}
	if req.ReservationTime != nil {
		status, tableStatus = enum.OrderStatusReserved, enum.TableStatusReserved
		reservation = pgtype.Timestamptz{Time: *req.ReservationTime, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		RestaurantID:    req.RestaurantID,
		Status:          status,
		TableIDs:        tableIDs,
		ClientID:        optionalUUID(req.ClientID),
		ReservationTime: reservation,
		Note:            optionalText(req.Note),
		CreatedBy:       req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := claimTables(ctx, store, tableIDs, order.ID, tableStatus); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &OrderView{Order: order}, nil
}

// UpdateOrder changes the client, reservation time, note and status of an open order.
func (s *OrderService) UpdateOrder(ctx context.Context, req UpdateOrderRequest) (*OrderView, error) {
	if req.Status != "" && !isValidOrderStatus(req.Status) {
		return nil, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := lockOpenOrder(ctx, store, req.ID, req.RestaurantID)
	if err != nil {
		return nil, err
	}

	params := database.UpdateOrderParams{
		ID:              order.ID,
		ClientID:        order.ClientID,
		ReservationTime: order.ReservationTime,
		Note:            order.Note,
	}
	if req.ClientID != nil {
		params.ClientID = optionalUUID(req.ClientID)
	}
	if req.ReservationTime != nil {
		params.ReservationTime = pgtype.Timestamptz{Time: *req.ReservationTime, Valid: true}
	}
	if req.Note != nil {
		params.Note = optionalText(*req.Note)
	}
	if order, err = store.UpdateOrder(ctx, params); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if req.Status != "" && req.Status != order.Status {
		if req.Status == enum.OrderStatusCompleted {
			return nil, ErrCompleteViaInvoice
		}
		if err := validateStatusTransition(order.Status, req.Status); err != nil {
			return nil, err
		}
		if order, err = applyStatus(ctx, store, order, req.Status); err != nil {
			return nil, err
		}
	}

	details, err := store.ListOrderDetailsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order details: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &OrderView{Order: order, Details: details}, nil
}

// applyStatus performs the side effects of an order status change.
func applyStatus(ctx context.Context, store OrderStore, order database.Order, next string) (database.Order, error) {
	switch next {
	case enum.OrderStatusCanceled:
		for _, from := range []string{enum.OrderDetailStatusAwaiting, enum.OrderDetailStatusPending} {
			if _, err := store.TransitionOrderDetailsByOrder(ctx, database.TransitionOrderDetailsByOrderParams{
				OrderID:    order.ID,
				FromStatus: from,
				ToStatus:   enum.OrderDetailStatusCanceled,
			}); err != nil {
				return order, fmt.Errorf("cancel order details: %w", err)
			}
		}
		if err := store.ReleaseDiningTables(ctx, order.ID); err != nil {
			return order, fmt.Errorf("release tables: %w", err)
		}
		if _, err := store.RecalculateOrderTotal(ctx, order.ID); err != nil {
			return order, fmt.Errorf("recalculate total: %w", err)
		}
	case enum.OrderStatusPending:
		if order.Status == enum.OrderStatusReserved {
			if err := store.SetDiningTablesStatusByOrder(ctx, database.SetDiningTablesStatusByOrderParams{
				OrderID: order.ID,
				Status:  enum.TableStatusOccupied,
			}); err != nil {
				return order, fmt.Errorf("seat tables: %w", err)
			}
		}
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{ID: order.ID, Status: next})
	if err != nil {
		return order, fmt.Errorf("update order status: %w", err)
	}
	return updated, nil
}

// DeleteOrder removes an order and its lines and frees its tables.
func (s *OrderService) DeleteOrder(ctx context.Context, id, restaurantID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: id, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}
	if order.Status == enum.OrderStatusCompleted {
		return ErrOrderCompleted
	}

	if err := deleteOrder(ctx, store, order.ID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// --- Helpers ---

func deleteOrder(ctx context.Context, store OrderStore, orderID uuid.UUID) error {
	if err := store.ReleaseDiningTables(ctx, orderID); err != nil {
		return fmt.Errorf("release tables: %w", err)
	}
	if err := store.DeleteOrderDetailsByOrder(ctx, orderID); err != nil {
		return fmt.Errorf("delete order details: %w", err)
	}
	if err := store.DeleteOrder(ctx, orderID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

// lockOpenOrder locks the order row and checks it still holds its tables.
func lockOpenOrder(ctx context.Context, store OrderStore, id, restaurantID uuid.UUID) (database.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: id, RestaurantID: restaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order, ErrOrderNotFound
		}
		return order, fmt.Errorf("get order: %w", err)
	}
	if !enum.OrderOpen(order.Status) {
		return order, ErrOrderClosed
	}
	return order, nil
}

// lockFreeTables locks the tables and checks each is active and not linked
// to an order other than owner. Pass uuid.Nil when no order may own them.
func lockFreeTables(ctx context.Context, store OrderStore, restaurantID uuid.UUID, ids []uuid.UUID, owner uuid.UUID) error {
	tables, err := store.LockDiningTables(ctx, database.LockDiningTablesParams{IDs: ids, RestaurantID: restaurantID})
	if err != nil {
		return fmt.Errorf("lock tables: %w", err)
	}
	if len(tables) != len(ids) {
		return ErrTableNotFound
	}
	for _, t := range tables {
		if !t.IsActive {
			return fmt.Errorf("%s: %w", t.Name, ErrTableInactive)
		}
		if t.CurrentOrderID.Valid && uuid.UUID(t.CurrentOrderID.Bytes) != owner {
			return fmt.Errorf("%s: %w", t.Name, ErrTableInUse)
		}
	}
	return nil
}

func claimTables(ctx context.Context, store OrderStore, ids []uuid.UUID, orderID uuid.UUID, status string) error {
	n, err := store.ClaimDiningTables(ctx, database.ClaimDiningTablesParams{IDs: ids, OrderID: orderID, Status: status})
	if err != nil {
		return fmt.Errorf("claim tables: %w", err)
	}
	if n != int64(len(ids)) {
		return ErrTableInUse
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func optionalUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil || *id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
