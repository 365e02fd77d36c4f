package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderDetailColumns = `d.id, d.order_id, d.unit_id, d.product_id, d.quantity, d.unit_price, d.status, d.note, d.station, d.product_name, d.unit_name, d.created_at, d.updated_at`

func scanOrderDetail(row interface{ Scan(...interface{}) error }) (OrderDetail, error) {
	var d OrderDetail
	err := row.Scan(
		&d.ID,
		&d.OrderID,
		&d.UnitID,
		&d.ProductID,
		&d.Quantity,
		&d.UnitPrice,
		&d.Status,
		&d.Note,
		&d.Station,
		&d.ProductName,
		&d.UnitName,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

func collectOrderDetails(rows pgx.Rows) ([]OrderDetail, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrderDetail, error) {
		return scanOrderDetail(row)
	})
}

const createOrderDetail = `INSERT INTO order_details AS d
    (order_id, unit_id, product_id, quantity, unit_price, status, note, station, product_name, unit_name)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + orderDetailColumns

type CreateOrderDetailParams struct {
	OrderID     uuid.UUID
	UnitID      uuid.UUID
	ProductID   uuid.UUID
	Quantity    int32
	UnitPrice   pgtype.Numeric
	Status      string
	Note        pgtype.Text
	Station     pgtype.Text
	ProductName string
	UnitName    string
}

func (q *Queries) CreateOrderDetail(ctx context.Context, arg CreateOrderDetailParams) (OrderDetail, error) {
	return scanOrderDetail(q.db.QueryRow(ctx, createOrderDetail,
		arg.OrderID,
		arg.UnitID,
		arg.ProductID,
		arg.Quantity,
		arg.UnitPrice,
		arg.Status,
		arg.Note,
		arg.Station,
		arg.ProductName,
		arg.UnitName,
	))
}

const getOrderDetail = `SELECT ` + orderDetailColumns + `
FROM order_details d
JOIN orders o ON o.id = d.order_id
WHERE d.id = $1 AND o.restaurant_id = $2`

type GetOrderDetailParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetOrderDetail(ctx context.Context, arg GetOrderDetailParams) (OrderDetail, error) {
	return scanOrderDetail(q.db.QueryRow(ctx, getOrderDetail, arg.ID, arg.RestaurantID))
}

const listOrderDetailsByOrder = `SELECT ` + orderDetailColumns + `
FROM order_details d
WHERE d.order_id = $1
ORDER BY d.created_at, d.id`

func (q *Queries) ListOrderDetailsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderDetail, error) {
	rows, err := q.db.Query(ctx, listOrderDetailsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	return collectOrderDetails(rows)
}

const listOrderDetailsByRestaurant = `SELECT ` + orderDetailColumns + `
FROM order_details d
JOIN orders o ON o.id = d.order_id
WHERE o.restaurant_id = $1
  AND ($2::text IS NULL OR d.status = $2::text)
  AND ($3::text IS NULL OR d.station = $3::text)
ORDER BY d.created_at, d.id
LIMIT $4`

type ListOrderDetailsByRestaurantParams struct {
	RestaurantID uuid.UUID
	Status       pgtype.Text
	Station      pgtype.Text
	Limit        int32
}

func (q *Queries) ListOrderDetailsByRestaurant(ctx context.Context, arg ListOrderDetailsByRestaurantParams) ([]OrderDetail, error) {
	rows, err := q.db.Query(ctx, listOrderDetailsByRestaurant,
		arg.RestaurantID,
		arg.Status,
		arg.Station,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	return collectOrderDetails(rows)
}

const updateOrderDetail = `UPDATE order_details AS d
SET quantity = $2, note = $3, updated_at = now()
WHERE d.id = $1
RETURNING ` + orderDetailColumns

type UpdateOrderDetailParams struct {
	ID       uuid.UUID
	Quantity int32
	Note     pgtype.Text
}

func (q *Queries) UpdateOrderDetail(ctx context.Context, arg UpdateOrderDetailParams) (OrderDetail, error) {
	return scanOrderDetail(q.db.QueryRow(ctx, updateOrderDetail, arg.ID, arg.Quantity, arg.Note))
}

const deleteOrderDetail = `DELETE FROM order_details WHERE id = $1`

func (q *Queries) DeleteOrderDetail(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, deleteOrderDetail, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const deleteOrderDetailsByOrder = `DELETE FROM order_details WHERE order_id = $1`

func (q *Queries) DeleteOrderDetailsByOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrderDetailsByOrder, orderID)
	return err
}

const countOrderDetails = `SELECT COUNT(*) FROM order_details WHERE order_id = $1`

func (q *Queries) CountOrderDetails(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrderDetails, orderID).Scan(&n)
	return n, err
}

const transitionOrderDetailsByOrder = `UPDATE order_details AS d
SET status = $3, updated_at = now()
WHERE d.order_id = $1 AND d.status = $2
RETURNING ` + orderDetailColumns

type TransitionOrderDetailsByOrderParams struct {
	OrderID    uuid.UUID
	FromStatus string
	ToStatus   string
}

// TransitionOrderDetailsByOrder moves every line of the order currently in
// FromStatus to ToStatus. Lines in any other status are not touched.
func (q *Queries) TransitionOrderDetailsByOrder(ctx context.Context, arg TransitionOrderDetailsByOrderParams) ([]OrderDetail, error) {
	rows, err := q.db.Query(ctx, transitionOrderDetailsByOrder, arg.OrderID, arg.FromStatus, arg.ToStatus)
	if err != nil {
		return nil, err
	}
	return collectOrderDetails(rows)
}

const transitionOrderDetails = `UPDATE order_details AS d
SET status = $4, updated_at = now()
FROM orders o
WHERE o.id = d.order_id
  AND d.id = ANY($1::uuid[])
  AND o.restaurant_id = $2
  AND d.status = $3
RETURNING ` + orderDetailColumns

type TransitionOrderDetailsParams struct {
	IDs          []uuid.UUID
	RestaurantID uuid.UUID
	FromStatus   string
	ToStatus     string
}

// TransitionOrderDetails moves the listed lines from FromStatus to ToStatus.
// Lines that are not in FromStatus are skipped.
func (q *Queries) TransitionOrderDetails(ctx context.Context, arg TransitionOrderDetailsParams) ([]OrderDetail, error) {
	rows, err := q.db.Query(ctx, transitionOrderDetails, arg.IDs, arg.RestaurantID, arg.FromStatus, arg.ToStatus)
	if err != nil {
		return nil, err
	}
	return collectOrderDetails(rows)
}

const moveOrderDetail = `UPDATE order_details AS d
SET order_id = $2, updated_at = now()
WHERE d.id = $1
RETURNING ` + orderDetailColumns

type MoveOrderDetailParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) MoveOrderDetail(ctx context.Context, arg MoveOrderDetailParams) (OrderDetail, error) {
	return scanOrderDetail(q.db.QueryRow(ctx, moveOrderDetail, arg.ID, arg.OrderID))
}
