package posclient

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the server's order view. Details are present on single-order
// responses and omitted from lists.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	RestaurantID    uuid.UUID       `json:"restaurant_id"`
	Status          string          `json:"status"`
	TableIDs        []uuid.UUID     `json:"table_ids"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	ClientID        *uuid.UUID      `json:"client_id"`
	ReservationTime *time.Time      `json:"reservation_time"`
	Note            *string         `json:"note"`
	CreatedBy       uuid.UUID       `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Details         []OrderDetail   `json:"details"`
}

// Detail returns the line with id, or nil.
func (o *Order) Detail(id uuid.UUID) *OrderDetail {
	if o == nil {
		return nil
	}
	for i := range o.Details {
		if o.Details[i].ID == id {
			return &o.Details[i]
		}
	}
	return nil
}

// CountByStatus returns how many lines are in status.
func (o *Order) CountByStatus(status string) int {
	if o == nil {
		return 0
	}
	n := 0
	for _, d := range o.Details {
		if d.Status == status {
			n++
		}
	}
	return n
}

type OrderDetail struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	UnitID      uuid.UUID       `json:"unit_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitName    string          `json:"unit_name"`
	Quantity    int32           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Status      string          `json:"status"`
	Note        *string         `json:"note"`
	Station     *string         `json:"station"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// LineTotal is quantity × unit price.
func (d OrderDetail) LineTotal() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt32(d.Quantity))
}

type DiningTable struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Location       *string    `json:"location"`
	Seats          int32      `json:"seats"`
	IsActive       bool       `json:"is_active"`
	Status         string     `json:"status"`
	CurrentOrderID *uuid.UUID `json:"current_order_id"`
}

// InUse reports whether the table is linked to an open order.
func (t DiningTable) InUse() bool {
	return t.CurrentOrderID != nil || (t.Status != "" && t.Status != "AVAILABLE")
}

type Product struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Name         string    `json:"name"`
	Station      *string   `json:"station"`
	IsActive     bool      `json:"is_active"`
}

type Unit struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	ProductName string          `json:"product_name"`
	Station     *string         `json:"station"`
}

type Invoice struct {
	ID             uuid.UUID       `json:"id"`
	OrderID        uuid.UUID       `json:"order_id"`
	RestaurantID   uuid.UUID       `json:"restaurant_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	CustomerPaid   decimal.Decimal `json:"customer_paid"`
	ChangeReturned decimal.Decimal `json:"change_returned"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	PaymentMethod  string          `json:"payment_method"`
	CreatedBy      uuid.UUID       `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

type User struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// --- Requests ---

type CreateOrderRequest struct {
	TableIDs        []uuid.UUID `json:"table_ids"`
	ClientID        *uuid.UUID  `json:"client_id,omitempty"`
	ReservationTime *time.Time  `json:"reservation_time,omitempty"`
	Note            string      `json:"note,omitempty"`
}

type UpdateOrderRequest struct {
	ID              uuid.UUID  `json:"id"`
	ClientID        *uuid.UUID `json:"client_id,omitempty"`
	ReservationTime *time.Time `json:"reservation_time,omitempty"`
	Note            *string    `json:"note,omitempty"`
	Status          string     `json:"status,omitempty"`
}

type OrderFilter struct {
	Status  string
	TableID *uuid.UUID
	Active  bool
	Limit   int
	Offset  int
}

type SplitLine struct {
	OrderDetailID uuid.UUID `json:"order_detail_id"`
	Quantity      int32     `json:"quantity"`
}

type SplitOrderRequest struct {
	OrderID  uuid.UUID   `json:"order_id"`
	TableIDs []uuid.UUID `json:"table_ids"`
	Items    []SplitLine `json:"items"`
}

// SplitResult holds both sides of a split. Source is nil when every line
// moved and the source order was deleted.
type SplitResult struct {
	Source *Order `json:"source"`
	Target *Order `json:"target"`
}

type AddDetailRequest struct {
	OrderID  uuid.UUID `json:"order_id"`
	UnitID   uuid.UUID `json:"unit_id"`
	Quantity int32     `json:"quantity"`
	Note     string    `json:"note,omitempty"`
}

type UpdateDetailRequest struct {
	ID       uuid.UUID `json:"id"`
	Quantity *int32    `json:"quantity,omitempty"`
	Note     *string   `json:"note,omitempty"`
}

// RemoveResult reports whether removing a line also deleted its order.
type RemoveResult struct {
	ID           uuid.UUID `json:"id"`
	OrderDeleted bool      `json:"order_deleted"`
	Order        *Order    `json:"order"`
}

type DetailFilter struct {
	OrderID *uuid.UUID
	Status  string
	Station string
}

type BatchStatusRequest struct {
	OrderID *uuid.UUID  `json:"order_id,omitempty"`
	IDs     []uuid.UUID `json:"ids,omitempty"`
	Status  string      `json:"status"`
}

// BatchResult lists the lines that actually changed. Order is set when the
// batch was addressed by order.
type BatchResult struct {
	Updated []OrderDetail `json:"updated"`
	Order   *Order        `json:"order"`
}

type CreateInvoiceRequest struct {
	OrderID       uuid.UUID       `json:"order_id"`
	CustomerPaid  decimal.Decimal `json:"customer_paid"`
	PaymentMethod string          `json:"payment_method"`
}
