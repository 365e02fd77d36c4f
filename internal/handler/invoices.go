package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablepos/api/internal/database"
	"github.com/tablepos/api/internal/envelope"
	"github.com/tablepos/api/internal/service"
)

// InvoiceServicer defines the service methods needed by invoice handlers.
type InvoiceServicer interface {
	CreateInvoice(ctx context.Context, req service.CreateInvoiceRequest) (*database.Invoice, error)
}

// InvoiceStore defines the database methods needed by invoice read handlers.
type InvoiceStore interface {
	GetInvoice(ctx context.Context, arg database.GetInvoiceParams) (database.Invoice, error)
	ListInvoices(ctx context.Context, arg database.ListInvoicesParams) ([]database.Invoice, error)
}

// InvoiceHandler handles invoice endpoints. Invoices are immutable once created.
type InvoiceHandler struct {
	svc     InvoiceServicer
	store   InvoiceStore
	metrics Recorder
}

// NewInvoiceHandler creates a new InvoiceHandler. rec may be nil.
func NewInvoiceHandler(svc InvoiceServicer, store InvoiceStore, rec Recorder) *InvoiceHandler {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &InvoiceHandler{svc: svc, store: store, metrics: rec}
}

// RegisterRoutes registers invoice endpoints. Expected to be mounted at /invoices.
func (h *InvoiceHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

type createInvoiceRequest struct {
	OrderID       string          `json:"order_id"`
	CustomerPaid  decimal.Decimal `json:"customer_paid"`
	PaymentMethod string          `json:"payment_method"`
}

type invoiceListResponse struct {
	Invoices []invoiceResponse `json:"invoices"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// Create handles POST /invoices. The order is completed and its tables freed
// in the same transaction.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	var req createInvoiceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "invalid order_id")
		return
	}

	inv, err := h.svc.CreateInvoice(r.Context(), service.CreateInvoiceRequest{
		OrderID:       orderID,
		RestaurantID:  claims.RestaurantID,
		CreatedBy:     claims.UserID,
		CustomerPaid:  req.CustomerPaid,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeServiceError(w, "create invoice", err)
		return
	}

	resp := dbInvoiceToResponse(*inv)
	total, _ := decimal.NewFromString(resp.TotalAmount)
	h.metrics.InvoiceCreated(inv.PaymentMethod, total)

	envelope.WriteData(w, http.StatusCreated, "invoice created", resp)
}

// Get handles GET /invoices/{id}.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	id, ok := urlID(w, r, "id", "invoice ID")
	if !ok {
		return
	}

	inv, err := h.store.GetInvoice(r.Context(), database.GetInvoiceParams{
		ID:           id,
		RestaurantID: claims.RestaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			envelope.WriteError(w, http.StatusNotFound, "invoice not found")
			return
		}
		log.Printf("ERROR: get invoice: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	envelope.WriteData(w, http.StatusOK, "", dbInvoiceToResponse(inv))
}

// List handles GET /invoices?order_id=&limit=&offset=.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	limit, offset := pagination(r)
	params := database.ListInvoicesParams{
		RestaurantID: claims.RestaurantID,
		Limit:        int32(limit),
		Offset:       int32(offset),
	}
	if s := r.URL.Query().Get("order_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			envelope.WriteError(w, http.StatusBadRequest, "invalid order_id")
			return
		}
		params.OrderID = pgtype.UUID{Bytes: id, Valid: true}
	}

	invoices, err := h.store.ListInvoices(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list invoices: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]invoiceResponse, len(invoices))
	for i, inv := range invoices {
		resp[i] = dbInvoiceToResponse(inv)
	}

	envelope.WriteData(w, http.StatusOK, "", invoiceListResponse{
		Invoices: resp,
		Limit:    limit,
		Offset:   offset,
	})
}
