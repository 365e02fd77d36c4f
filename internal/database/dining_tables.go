package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const diningTableColumns = `id, restaurant_id, name, location, seats, is_active, status, current_order_id, created_at, updated_at`

func scanDiningTable(row interface{ Scan(...interface{}) error }) (DiningTable, error) {
	var t DiningTable
	err := row.Scan(
		&t.ID,
		&t.RestaurantID,
		&t.Name,
		&t.Location,
		&t.Seats,
		&t.IsActive,
		&t.Status,
		&t.CurrentOrderID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

func collectDiningTables(rows pgx.Rows) ([]DiningTable, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (DiningTable, error) {
		return scanDiningTable(row)
	})
}

const listDiningTables = `SELECT ` + diningTableColumns + ` FROM dining_tables
WHERE restaurant_id = $1
ORDER BY name`

func (q *Queries) ListDiningTables(ctx context.Context, restaurantID uuid.UUID) ([]DiningTable, error) {
	rows, err := q.db.Query(ctx, listDiningTables, restaurantID)
	if err != nil {
		return nil, err
	}
	return collectDiningTables(rows)
}

const getDiningTable = `SELECT ` + diningTableColumns + ` FROM dining_tables
WHERE id = $1 AND restaurant_id = $2`

type GetDiningTableParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetDiningTable(ctx context.Context, arg GetDiningTableParams) (DiningTable, error) {
	return scanDiningTable(q.db.QueryRow(ctx, getDiningTable, arg.ID, arg.RestaurantID))
}

const lockDiningTables = `SELECT ` + diningTableColumns + ` FROM dining_tables
WHERE id = ANY($1::uuid[]) AND restaurant_id = $2
ORDER BY id
FOR UPDATE`

type LockDiningTablesParams struct {
	IDs          []uuid.UUID
	RestaurantID uuid.UUID
}

// LockDiningTables returns the requested tables locked for the rest of the
// transaction. Rows are locked in id order to avoid deadlocks between
// concurrent merges.
func (q *Queries) LockDiningTables(ctx context.Context, arg LockDiningTablesParams) ([]DiningTable, error) {
	rows, err := q.db.Query(ctx, lockDiningTables, arg.IDs, arg.RestaurantID)
	if err != nil {
		return nil, err
	}
	return collectDiningTables(rows)
}

const claimDiningTables = `UPDATE dining_tables
SET current_order_id = $2, status = $3, updated_at = now()
WHERE id = ANY($1::uuid[]) AND current_order_id IS NULL`

type ClaimDiningTablesParams struct {
	IDs     []uuid.UUID
	OrderID uuid.UUID
	Status  string
}

// ClaimDiningTables links free tables to an order and returns how many rows
// were claimed. Tables already linked to an order are left untouched.
func (q *Queries) ClaimDiningTables(ctx context.Context, arg ClaimDiningTablesParams) (int64, error) {
	tag, err := q.db.Exec(ctx, claimDiningTables, arg.IDs, arg.OrderID, arg.Status)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const releaseDiningTables = `UPDATE dining_tables
SET current_order_id = NULL, status = 'AVAILABLE', updated_at = now()
WHERE current_order_id = $1`

func (q *Queries) ReleaseDiningTables(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, releaseDiningTables, orderID)
	return err
}

const setDiningTablesStatusByOrder = `UPDATE dining_tables
SET status = $2, updated_at = now()
WHERE current_order_id = $1`

type SetDiningTablesStatusByOrderParams struct {
	OrderID uuid.UUID
	Status  string
}

func (q *Queries) SetDiningTablesStatusByOrder(ctx context.Context, arg SetDiningTablesStatusByOrderParams) error {
	_, err := q.db.Exec(ctx, setDiningTablesStatusByOrder, arg.OrderID, arg.Status)
	return err
}

const createDiningTable = `INSERT INTO dining_tables (restaurant_id, name, location, seats)
VALUES ($1, $2, $3, $4)
RETURNING ` + diningTableColumns

type CreateDiningTableParams struct {
	RestaurantID uuid.UUID
	Name         string
	Location     pgtype.Text
	Seats        int32
}

func (q *Queries) CreateDiningTable(ctx context.Context, arg CreateDiningTableParams) (DiningTable, error) {
	return scanDiningTable(q.db.QueryRow(ctx, createDiningTable,
		arg.RestaurantID,
		arg.Name,
		arg.Location,
		arg.Seats,
	))
}
