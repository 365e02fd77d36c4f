package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablepos/api/internal/database"
	"github.com/tablepos/api/internal/envelope"
	"github.com/tablepos/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderView, error)
	UpdateOrder(ctx context.Context, req service.UpdateOrderRequest) (*service.OrderView, error)
	DeleteOrder(ctx context.Context, id, restaurantID uuid.UUID) error
	MergeTables(ctx context.Context, req service.MergeTablesRequest) (*service.OrderView, error)
	SplitOrder(ctx context.Context, req service.SplitOrderRequest) (*service.SplitResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderDetailsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderDetail, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc     OrderServicer
	store   OrderStore
	metrics Recorder
}

// NewOrderHandler creates a new OrderHandler. rec may be nil.
func NewOrderHandler(svc OrderServicer, store OrderStore, rec Recorder) *OrderHandler {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &OrderHandler{svc: svc, store: store, metrics: rec}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/", h.Update)
	r.Get("/", h.List)
	r.Post("/merge-table", h.MergeTables)
	r.Post("/split-order", h.SplitOrder)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createOrderRequest struct {
	TableIDs        []string   `json:"table_ids"`
	ClientID        *string    `json:"client_id"`
	ReservationTime *time.Time `json:"reservation_time"`
	Note            string     `json:"note"`
}

type updateOrderRequest struct {
	ID              string     `json:"id"`
	ClientID        *string    `json:"client_id"`
	ReservationTime *time.Time `json:"reservation_time"`
	Note            *string    `json:"note"`
	Status          string     `json:"status"`
}

type mergeTableRequest struct {
	OrderID  string   `json:"order_id"`
	TableIDs []string `json:"table_ids"`
}

type splitItemRequest struct {
	OrderDetailID string `json:"order_detail_id"`
	Quantity      int32  `json:"quantity"`
}

type splitOrderRequest struct {
	OrderID  string             `json:"order_id"`
	TableIDs []string           `json:"table_ids"`
	Items    []splitItemRequest `json:"items"`
}

type splitOrderResponse struct {
	Source *orderResponse `json:"source"`
	Target *orderResponse `json:"target"`
}

type deleteResponse struct {
	ID      uuid.UUID `json:"id"`
	Deleted bool      `json:"deleted"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	var req createOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if len(req.TableIDs) == 0 {
		envelope.WriteError(w, http.StatusBadRequest, "table_ids are required")
		return
	}
	tableIDs, ok := parseIDs(req.TableIDs)
	if !ok {
		envelope.WriteError(w, http.StatusBadRequest, "invalid table_ids")
		return
	}
	clientID, ok := parseOptionalID(req.ClientID)
	if !ok {
		envelope.WriteError(w, http.StatusBadRequest, "invalid client_id")
		return
	}

	view, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		RestaurantID:    claims.RestaurantID,
		CreatedBy:       claims.UserID,
		TableIDs:        tableIDs,
		ClientID:        clientID,
		ReservationTime: req.ReservationTime,
		Note:            req.Note,
	})
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	h.metrics.OrderCreated()
	envelope.WriteData(w, http.StatusCreated, "order created", viewToResponse(view))
}

// Update handles PUT /orders.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	var req updateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	orderID, err := uuid.Parse(req.ID)
	if err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}
	clientID, ok := parseOptionalID(req.ClientID)
	if !ok {
		envelope.WriteError(w, http.StatusBadRequest, "invalid client_id")
		return
	}

	view, err := h.svc.UpdateOrder(r.Context(), service.UpdateOrderRequest{
		ID:              orderID,
		RestaurantID:    claims.RestaurantID,
		ClientID:        clientID,
		ReservationTime: req.ReservationTime,
		Note:            req.Note,
		Status:          req.Status,
	})
	if err != nil {
		writeServiceError(w, "update order", err)
		return
	}

	envelope.WriteData(w, http.StatusOK, "order updated", viewToResponse(view))
}

// Delete handles DELETE /orders/{id}.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	orderID, ok := urlID(w, r, "id", "order ID")
	if !ok {
		return
	}

	if err := h.svc.DeleteOrder(r.Context(), orderID, claims.RestaurantID); err != nil {
		writeServiceError(w, "delete order", err)
		return
	}

	envelope.WriteData(w, http.StatusOK, "order deleted", deleteResponse{ID: orderID, Deleted: true})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	orderID, ok := urlID(w, r, "id", "order ID")
	if !ok {
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{
		ID:           orderID,
		RestaurantID: claims.RestaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			envelope.WriteError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	details, err := h.store.ListOrderDetailsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order details: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	envelope.WriteData(w, http.StatusOK, "", viewToResponse(&service.OrderView{Order: order, Details: details}))
}

// List handles GET /orders?status=&table_id=&active=&limit=&offset=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	limit, offset := pagination(r)
	params := database.ListOrdersParams{
		RestaurantID: claims.RestaurantID,
		Limit:        int32(limit),
		Offset:       int32(offset),
	}

	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := q.Get("table_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			envelope.WriteError(w, http.StatusBadRequest, "invalid table_id")
			return
		}
		params.TableID = pgtype.UUID{Bytes: id, Valid: true}
	}
	params.ActiveOnly = q.Get("active") == "true"

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	envelope.WriteData(w, http.StatusOK, "", orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// MergeTables handles POST /orders/merge-table.
func (h *OrderHandler) MergeTables(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	var req mergeTableRequest
	if !decodeBody(w, r, &req) {
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "invalid order_id")
		return
	}
	tableIDs, ok := parseIDs(req.TableIDs)
	if !ok {
		envelope.WriteError(w, http.StatusBadRequest, "invalid table_ids")
		return
	}

	view, err := h.svc.MergeTables(r.Context(), service.MergeTablesRequest{
		OrderID:      orderID,
		RestaurantID: claims.RestaurantID,
		TableIDs:     tableIDs,
	})
	if err != nil {
		writeServiceError(w, "merge tables", err)
		return
	}

	envelope.WriteData(w, http.StatusOK, "tables merged", viewToResponse(view))
}

// SplitOrder handles POST /orders/split-order.
func (h *OrderHandler) SplitOrder(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	var req splitOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "invalid order_id")
		return
	}
	tableIDs, ok := parseIDs(req.TableIDs)
	if !ok {
		envelope.WriteError(w, http.StatusBadRequest, "invalid table_ids")
		return
	}

	items := make([]service.SplitItem, len(req.Items))
	for i, item := range req.Items {
		detailID, err := uuid.Parse(item.OrderDetailID)
		if err != nil {
			envelope.WriteError(w, http.StatusBadRequest, "invalid order_detail_id")
			return
		}
		items[i] = service.SplitItem{DetailID: detailID, Quantity: item.Quantity}
	}

	result, err := h.svc.SplitOrder(r.Context(), service.SplitOrderRequest{
		OrderID:      orderID,
		RestaurantID: claims.RestaurantID,
		CreatedBy:    claims.UserID,
		TableIDs:     tableIDs,
		Items:        items,
	})
	if err != nil {
		writeServiceError(w, "split order", err)
		return
	}

	h.metrics.OrderCreated()
	envelope.WriteData(w, http.StatusOK, "order split", splitOrderResponse{
		Source: viewToResponse(result.Source),
		Target: viewToResponse(result.Target),
	})
}
