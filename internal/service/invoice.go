package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/tablepos/api/internal/billing"
	"github.com/tablepos/api/internal/database"
	"github.com/tablepos/api/internal/enum"
)

// CreateInvoiceRequest pays an order in full with a single method.
type CreateInvoiceRequest struct {
	OrderID       uuid.UUID
	RestaurantID  uuid.UUID
	CreatedBy     uuid.UUID
	CustomerPaid  decimal.Decimal
	PaymentMethod string
}

// CreateInvoice records the payment, completes the order and frees its tables
// in one transaction. The total is recomputed from the lines before comparing.
func (s *OrderService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*database.Invoice, error) {
	method, ok := billing.NormalizeMethod(req.PaymentMethod)
	if !ok {
		return nil, ErrInvalidPaymentMethod
	}
	if req.CustomerPaid.IsNegative() {
		return nil, ErrInsufficientPayment
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: req.OrderID, RestaurantID: req.RestaurantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	switch order.Status {
	case enum.OrderStatusCompleted:
		return nil, ErrOrderAlreadyPaid
	case enum.OrderStatusCanceled:
		return nil, ErrOrderCanceled
	}
	if err := validateStatusTransition(order.Status, enum.OrderStatusCompleted); err != nil {
		return nil, err
	}

	view, err := refreshView(ctx, store, order.ID)
	if err != nil {
		return nil, err
	}
	if !hasBillableLines(view.Details) {
		return nil, ErrNoBillableLines
	}

	total := numericToDecimal(view.Order.TotalPrice)
	if err := billing.Validate(total, req.CustomerPaid, method); err != nil {
		return nil, ErrInsufficientPayment
	}
	summary := billing.Summarize(total, req.CustomerPaid)

	invoice, err := store.CreateInvoice(ctx, database.CreateInvoiceParams{
		OrderID:        order.ID,
		RestaurantID:   req.RestaurantID,
		TotalAmount:    decimalToNumeric(summary.Total),
		CustomerPaid:   decimalToNumeric(summary.Tendered),
		ChangeReturned: decimalToNumeric(summary.Change),
		TaxAmount:      decimalToNumeric(summary.Tax),
		DiscountAmount: decimalToNumeric(summary.Discount),
		PaymentMethod:  method,
		CreatedBy:      req.CreatedBy,
	})
	if err != nil {
		if isInvoiceConflict(err) {
			return nil, ErrOrderAlreadyPaid
		}
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	if _, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:     order.ID,
		Status: enum.OrderStatusCompleted,
	}); err != nil {
		return nil, fmt.Errorf("complete order: %w", err)
	}
	if err := store.ReleaseDiningTables(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("release tables: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &invoice, nil
}

func hasBillableLines(details []database.OrderDetail) bool {
	for _, d := range details {
		if d.Status != enum.OrderDetailStatusCanceled {
			return true
		}
	}
	return false
}

// isInvoiceConflict checks for the one-invoice-per-order unique constraint (23505).
func isInvoiceConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "invoices_order_id_key"
	}
	return false
}
