package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, restaurant_id, status, table_ids, total_price, client_id, reservation_time, note, created_by, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.RestaurantID,
		&o.Status,
		&o.TableIDs,
		&o.TotalPrice,
		&o.ClientID,
		&o.ReservationTime,
		&o.Note,
		&o.CreatedBy,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

const createOrder = `INSERT INTO orders (restaurant_id, status, table_ids, client_id, reservation_time, note, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	RestaurantID    uuid.UUID
	Status          string
	TableIDs        []uuid.UUID
	ClientID        pgtype.UUID
	ReservationTime pgtype.Timestamptz
	Note            pgtype.Text
	CreatedBy       uuid.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.RestaurantID,
		arg.Status,
		arg.TableIDs,
		arg.ClientID,
		arg.ReservationTime,
		arg.Note,
		arg.CreatedBy,
	))
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders
WHERE id = $1 AND restaurant_id = $2`

type GetOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, arg.ID, arg.RestaurantID))
}

const getOrderForUpdate = getOrder + `
FOR UPDATE`

// GetOrderForUpdate locks the order row until the surrounding transaction ends.
func (q *Queries) GetOrderForUpdate(ctx context.Context, arg GetOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, arg.ID, arg.RestaurantID))
}

const listOrders = `SELECT ` + orderColumns + ` FROM orders
WHERE restaurant_id = $1
  AND ($2::text IS NULL OR status = $2::text)
  AND ($3::uuid IS NULL OR $3::uuid = ANY(table_ids))
  AND (NOT $4::boolean OR status IN ('PENDING', 'RESERVED', 'WAITING'))
ORDER BY created_at DESC
LIMIT $5 OFFSET $6`

type ListOrdersParams struct {
	RestaurantID uuid.UUID
	Status       pgtype.Text
	TableID      pgtype.UUID
	ActiveOnly   bool
	Limit        int32
	Offset       int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.RestaurantID,
		arg.Status,
		arg.TableID,
		arg.ActiveOnly,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) {
		return scanOrder(row)
	})
}

const updateOrder = `UPDATE orders
SET client_id = $2, reservation_time = $3, note = $4, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderParams struct {
	ID              uuid.UUID
	ClientID        pgtype.UUID
	ReservationTime pgtype.Timestamptz
	Note            pgtype.Text
}

func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrder,
		arg.ID,
		arg.ClientID,
		arg.ReservationTime,
		arg.Note,
	))
}

const updateOrderStatus = `UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status))
}

const setOrderTables = `UPDATE orders
SET table_ids = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type SetOrderTablesParams struct {
	ID       uuid.UUID
	TableIDs []uuid.UUID
}

func (q *Queries) SetOrderTables(ctx context.Context, arg SetOrderTablesParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, setOrderTables, arg.ID, arg.TableIDs))
}

const recalculateOrderTotal = `UPDATE orders
SET total_price = COALESCE((
        SELECT SUM(d.quantity * d.unit_price)
        FROM order_details d
        WHERE d.order_id = orders.id AND d.status <> 'CANCELED'
    ), 0),
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

// RecalculateOrderTotal sets total_price to the sum of quantity * unit_price
// over the order's non-canceled lines.
func (q *Queries) RecalculateOrderTotal(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, recalculateOrderTotal, id))
}

const deleteOrder = `DELETE FROM orders WHERE id = $1`

func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, deleteOrder, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
