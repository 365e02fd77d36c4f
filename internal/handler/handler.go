package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablepos/api/internal/auth"
	"github.com/tablepos/api/internal/database"
	"github.com/tablepos/api/internal/envelope"
	"github.com/tablepos/api/internal/events"
	"github.com/tablepos/api/internal/middleware"
	"github.com/tablepos/api/internal/service"
)

// Recorder receives business counters. Satisfied by *metrics.Metrics.
type Recorder interface {
	OrderCreated()
	DetailsMoved(status string, n int)
	InvoiceCreated(method string, total decimal.Decimal)
}

type nopRecorder struct{}

func (nopRecorder) OrderCreated()                          {}
func (nopRecorder) DetailsMoved(string, int)               {}
func (nopRecorder) InvoiceCreated(string, decimal.Decimal) {}

// --- Error mapping ---

func isValidationError(err error) bool {
	return errors.Is(err, service.ErrNoTables) ||
		errors.Is(err, service.ErrTableNotFound) ||
		errors.Is(err, service.ErrTableInactive) ||
		errors.Is(err, service.ErrInvalidStatus) ||
		errors.Is(err, service.ErrCompleteViaInvoice) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrUnitNotFound) ||
		errors.Is(err, service.ErrProductInactive) ||
		errors.Is(err, service.ErrEmptyIDs) ||
		errors.Is(err, service.ErrEmptySplit) ||
		errors.Is(err, service.ErrDuplicateSplitLine) ||
		errors.Is(err, service.ErrSplitQuantity) ||
		errors.Is(err, service.ErrInvalidPaymentMethod) ||
		errors.Is(err, service.ErrInsufficientPayment) ||
		errors.Is(err, service.ErrNoBillableLines)
}

func isConflictError(err error) bool {
	return errors.Is(err, service.ErrTableInUse) ||
		errors.Is(err, service.ErrOrderClosed) ||
		errors.Is(err, service.ErrOrderCompleted) ||
		errors.Is(err, service.ErrInvalidTransition) ||
		errors.Is(err, service.ErrOrderReserved) ||
		errors.Is(err, service.ErrDetailLocked) ||
		errors.Is(err, service.ErrOrderAlreadyPaid) ||
		errors.Is(err, service.ErrOrderCanceled)
}

func isNotFoundError(err error) bool {
	return errors.Is(err, service.ErrOrderNotFound) ||
		errors.Is(err, service.ErrDetailNotFound)
}

// writeServiceError maps known service errors to HTTP status codes and logs
// anything unexpected under op.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case isValidationError(err):
		envelope.WriteError(w, http.StatusBadRequest, err.Error())
	case isConflictError(err):
		envelope.WriteError(w, http.StatusConflict, err.Error())
	case isNotFoundError(err):
		envelope.WriteError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("ERROR: %s: %v", op, err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

// --- Request helpers ---

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func requireClaims(w http.ResponseWriter, r *http.Request) *auth.Claims {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		envelope.WriteError(w, http.StatusUnauthorized, "not authenticated")
	}
	return claims
}

func urlID(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "invalid "+label)
		return uuid.Nil, false
	}
	return id, true
}

func parseIDs(raw []string) ([]uuid.UUID, bool) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func parseOptionalID(s *string) (*uuid.UUID, bool) {
	if s == nil || *s == "" {
		return nil, true
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, false
	}
	return &id, true
}

// pagination reads limit (default 20, max 100) and offset from the query.
func pagination(r *http.Request) (int, int) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// publish sends evt for every line and logs failures. Kitchen hints are
// best effort and never fail the request.
func publish(ctx context.Context, pub events.Publisher, typ string, restaurantID uuid.UUID, details []database.OrderDetail) {
	if pub == nil {
		return
	}
	for _, d := range details {
		if err := pub.Publish(ctx, events.FromDetail(typ, restaurantID, d)); err != nil {
			log.Printf("ERROR: publish %s event: %v", typ, err)
		}
	}
}

// --- Response types ---

type orderDetailResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	UnitID      uuid.UUID `json:"unit_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitName    string    `json:"unit_name"`
	Quantity    int32     `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	Status      string    `json:"status"`
	Note        *string   `json:"note"`
	Station     *string   `json:"station"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type orderResponse struct {
	ID              uuid.UUID             `json:"id"`
	RestaurantID    uuid.UUID             `json:"restaurant_id"`
	Status          string                `json:"status"`
	TableIDs        []uuid.UUID           `json:"table_ids"`
	TotalPrice      string                `json:"total_price"`
	ClientID        *uuid.UUID            `json:"client_id"`
	ReservationTime *time.Time            `json:"reservation_time"`
	Note            *string               `json:"note"`
	CreatedBy       uuid.UUID             `json:"created_by"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Details         []orderDetailResponse `json:"details,omitempty"`
}

type invoiceResponse struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	RestaurantID   uuid.UUID `json:"restaurant_id"`
	TotalAmount    string    `json:"total_amount"`
	CustomerPaid   string    `json:"customer_paid"`
	ChangeReturned string    `json:"change_returned"`
	TaxAmount      string    `json:"tax_amount"`
	DiscountAmount string    `json:"discount_amount"`
	PaymentMethod  string    `json:"payment_method"`
	CreatedBy      uuid.UUID `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// --- Conversion helpers ---

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func uuidPtr(u pgtype.UUID) *uuid.UUID {
	if !u.Valid {
		return nil
	}
	id := uuid.UUID(u.Bytes)
	return &id
}

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		RestaurantID: o.RestaurantID,
		Status:       o.Status,
		TableIDs:     o.TableIDs,
		TotalPrice:   numericToString(o.TotalPrice),
		ClientID:     uuidPtr(o.ClientID),
		Note:         textPtr(o.Note),
		CreatedBy:    o.CreatedBy,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	if resp.TableIDs == nil {
		resp.TableIDs = []uuid.UUID{}
	}
	if o.ReservationTime.Valid {
		t := o.ReservationTime.Time
		resp.ReservationTime = &t
	}
	return resp
}

func dbDetailToResponse(d database.OrderDetail) orderDetailResponse {
	return orderDetailResponse{
		ID:          d.ID,
		OrderID:     d.OrderID,
		UnitID:      d.UnitID,
		ProductID:   d.ProductID,
		ProductName: d.ProductName,
		UnitName:    d.UnitName,
		Quantity:    d.Quantity,
		UnitPrice:   numericToString(d.UnitPrice),
		Status:      d.Status,
		Note:        textPtr(d.Note),
		Station:     textPtr(d.Station),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func detailsToResponse(details []database.OrderDetail) []orderDetailResponse {
	resp := make([]orderDetailResponse, len(details))
	for i, d := range details {
		resp[i] = dbDetailToResponse(d)
	}
	return resp
}

// viewToResponse converts an order with its lines. A nil view gives nil.
func viewToResponse(v *service.OrderView) *orderResponse {
	if v == nil {
		return nil
	}
	resp := dbOrderToResponse(v.Order)
	resp.Details = detailsToResponse(v.Details)
	return &resp
}

func dbInvoiceToResponse(inv database.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:             inv.ID,
		OrderID:        inv.OrderID,
		RestaurantID:   inv.RestaurantID,
		TotalAmount:    numericToString(inv.TotalAmount),
		CustomerPaid:   numericToString(inv.CustomerPaid),
		ChangeReturned: numericToString(inv.ChangeReturned),
		TaxAmount:      numericToString(inv.TaxAmount),
		DiscountAmount: numericToString(inv.DiscountAmount),
		PaymentMethod:  inv.PaymentMethod,
		CreatedBy:      inv.CreatedBy,
		CreatedAt:      inv.CreatedAt,
	}
}
