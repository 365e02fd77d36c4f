package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const invoiceColumns = `id, order_id, restaurant_id, total_amount, customer_paid, change_returned, tax_amount, discount_amount, payment_method, created_by, created_at`

func scanInvoice(row interface{ Scan(...interface{}) error }) (Invoice, error) {
	var i Invoice
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.RestaurantID,
		&i.TotalAmount,
		&i.CustomerPaid,
		&i.ChangeReturned,
		&i.TaxAmount,
		&i.DiscountAmount,
		&i.PaymentMethod,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createInvoice = `INSERT INTO invoices
    (order_id, restaurant_id, total_amount, customer_paid, change_returned, tax_amount, discount_amount, payment_method, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + invoiceColumns

type CreateInvoiceParams struct {
	OrderID        uuid.UUID
	RestaurantID   uuid.UUID
	TotalAmount    pgtype.Numeric
	CustomerPaid   pgtype.Numeric
	ChangeReturned pgtype.Numeric
	TaxAmount      pgtype.Numeric
	DiscountAmount pgtype.Numeric
	PaymentMethod  string
	CreatedBy      uuid.UUID
}

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, createInvoice,
		arg.OrderID,
		arg.RestaurantID,
		arg.TotalAmount,
		arg.CustomerPaid,
		arg.ChangeReturned,
		arg.TaxAmount,
		arg.DiscountAmount,
		arg.PaymentMethod,
		arg.CreatedBy,
	))
}

const getInvoice = `SELECT ` + invoiceColumns + ` FROM invoices
WHERE id = $1 AND restaurant_id = $2`

type GetInvoiceParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetInvoice(ctx context.Context, arg GetInvoiceParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoice, arg.ID, arg.RestaurantID))
}

const getInvoiceByOrder = `SELECT ` + invoiceColumns + ` FROM invoices
WHERE order_id = $1`

func (q *Queries) GetInvoiceByOrder(ctx context.Context, orderID uuid.UUID) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoiceByOrder, orderID))
}

const listInvoices = `SELECT ` + invoiceColumns + ` FROM invoices
WHERE restaurant_id = $1
  AND ($2::uuid IS NULL OR order_id = $2::uuid)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

type ListInvoicesParams struct {
	RestaurantID uuid.UUID
	OrderID      pgtype.UUID
	Limit        int32
	Offset       int32
}

func (q *Queries) ListInvoices(ctx context.Context, arg ListInvoicesParams) ([]Invoice, error) {
	rows, err := q.db.Query(ctx, listInvoices, arg.RestaurantID, arg.OrderID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Invoice, error) {
		return scanInvoice(row)
	})
}
