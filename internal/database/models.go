package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Restaurant struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

type User struct {
	ID             uuid.UUID
	RestaurantID   uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	IsActive       bool
	CreatedAt      time.Time
}

type DiningTable struct {
	ID             uuid.UUID
	RestaurantID   uuid.UUID
	Name           string
	Location       pgtype.Text
	Seats          int32
	IsActive       bool
	Status         string
	CurrentOrderID pgtype.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Product struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Station      pgtype.Text
	IsActive     bool
	CreatedAt    time.Time
}

type Unit struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Name      string
	Price     pgtype.Numeric
	CreatedAt time.Time
}

type Order struct {
	ID              uuid.UUID
	RestaurantID    uuid.UUID
	Status          string
	TableIDs        []uuid.UUID
	TotalPrice      pgtype.Numeric
	ClientID        pgtype.UUID
	ReservationTime pgtype.Timestamptz
	Note            pgtype.Text
	CreatedBy       uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderDetail struct {
	ID          uuid.UUID
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
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Invoice struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	RestaurantID   uuid.UUID
	TotalAmount    pgtype.Numeric
	CustomerPaid   pgtype.Numeric
	ChangeReturned pgtype.Numeric
	TaxAmount      pgtype.Numeric
	DiscountAmount pgtype.Numeric
	PaymentMethod  string
	CreatedBy      uuid.UUID
	CreatedAt      time.Time
}
