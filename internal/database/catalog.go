package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, restaurant_id, name, station, is_active, created_at`

func scanProduct(row interface{ Scan(...interface{}) error }) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.RestaurantID, &p.Name, &p.Station, &p.IsActive, &p.CreatedAt)
	return p, err
}

const listProducts = `SELECT ` + productColumns + ` FROM products
WHERE restaurant_id = $1 AND is_active = true
ORDER BY name`

func (q *Queries) ListProducts(ctx context.Context, restaurantID uuid.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, restaurantID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		return scanProduct(row)
	})
}

const getProduct = `SELECT ` + productColumns + ` FROM products
WHERE id = $1 AND restaurant_id = $2`

type GetProductParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetProduct(ctx context.Context, arg GetProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, arg.ID, arg.RestaurantID))
}

const createProduct = `INSERT INTO products (restaurant_id, name, station)
VALUES ($1, $2, $3)
RETURNING ` + productColumns

type CreateProductParams struct {
	RestaurantID uuid.UUID
	Name         string
	Station      pgtype.Text
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, createProduct, arg.RestaurantID, arg.Name, arg.Station))
}

const unitColumns = `id, product_id, name, price, created_at`

func scanUnit(row interface{ Scan(...interface{}) error }) (Unit, error) {
	var u Unit
	err := row.Scan(&u.ID, &u.ProductID, &u.Name, &u.Price, &u.CreatedAt)
	return u, err
}

const listUnitsByProduct = `SELECT ` + unitColumns + ` FROM units
WHERE product_id = $1
ORDER BY price, name`

func (q *Queries) ListUnitsByProduct(ctx context.Context, productID uuid.UUID) ([]Unit, error) {
	rows, err := q.db.Query(ctx, listUnitsByProduct, productID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Unit, error) {
		return scanUnit(row)
	})
}

const createUnit = `INSERT INTO units (product_id, name, price)
VALUES ($1, $2, $3)
RETURNING ` + unitColumns

type CreateUnitParams struct {
	ProductID uuid.UUID
	Name      string
	Price     pgtype.Numeric
}

func (q *Queries) CreateUnit(ctx context.Context, arg CreateUnitParams) (Unit, error) {
	return scanUnit(q.db.QueryRow(ctx, createUnit, arg.ProductID, arg.Name, arg.Price))
}

const getUnitForOrder = `SELECT u.id, u.product_id, u.name, u.price, p.name, p.station, p.is_active
FROM units u
JOIN products p ON p.id = u.product_id
WHERE u.id = $1 AND p.restaurant_id = $2`

type GetUnitForOrderParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

// GetUnitForOrderRow is a unit joined with the product fields an order line
// snapshots (name and preparation station).
type GetUnitForOrderRow struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	Name          string
	Price         pgtype.Numeric
	ProductName   string
	Station       pgtype.Text
	ProductActive bool
}

func (q *Queries) GetUnitForOrder(ctx context.Context, arg GetUnitForOrderParams) (GetUnitForOrderRow, error) {
	var r GetUnitForOrderRow
	err := q.db.QueryRow(ctx, getUnitForOrder, arg.ID, arg.RestaurantID).Scan(
		&r.ID,
		&r.ProductID,
		&r.Name,
		&r.Price,
		&r.ProductName,
		&r.Station,
		&r.ProductActive,
	)
	return r, err
}
