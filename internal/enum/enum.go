package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusReserved  = "RESERVED"
	OrderStatusWaiting   = "WAITING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCanceled  = "CANCELED"
)

const (
	OrderDetailStatusAwaiting  = "AWAITING"
	OrderDetailStatusPending   = "PENDING"
	OrderDetailStatusConfirmed = "CONFIRMED"
	OrderDetailStatusCanceled  = "CANCELED"
)

const (
	TableStatusAvailable = "AVAILABLE"
	TableStatusOccupied  = "OCCUPIED"
	TableStatusReserved  = "RESERVED"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodTransfer = "TRANSFER"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	StationGrill    = "GRILL"
	StationKitchen  = "KITCHEN"
	StationBar      = "BAR"
	StationBeverage = "BEVERAGE"
	StationDessert  = "DESSERT"
)

// Stations lists the known preparation stations in display order.
var Stations = []string{
	StationGrill,
	StationKitchen,
	StationBar,
	StationBeverage,
	StationDessert,
}

// OrderOpen reports whether an order still holds its tables.
func OrderOpen(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusReserved, OrderStatusWaiting:
		return true
	}
	return false
}
