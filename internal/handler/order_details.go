package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablepos/api/internal/database"
	"github.com/tablepos/api/internal/enum"
	"github.com/tablepos/api/internal/envelope"
	"github.com/tablepos/api/internal/events"
	"github.com/tablepos/api/internal/service"
)

// kitchenQueueLimit caps restaurant-wide line listings.
const kitchenQueueLimit = 500

// OrderDetailServicer defines the service methods needed by order line handlers.
type OrderDetailServicer interface {
	AddDetail(ctx context.Context, req service.AddDetailRequest) (*service.DetailResult, error)
	UpdateDetail(ctx context.Context, req service.UpdateDetailRequest) (*service.DetailResult, error)
	RemoveDetail(ctx context.Context, id, restaurantID uuid.UUID) (*service.RemoveDetailResult, error)
	SendToKitchen(ctx context.Context, orderID, restaurantID uuid.UUID) (*service.StatusResult, error)
	UpdateDetailStatus(ctx context.Context, ids []uuid.UUID, restaurantID uuid.UUID, status string) (*service.StatusResult, error)
}

// OrderDetailStore defines the database methods needed by order line read handlers.
type OrderDetailStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrderDetailsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderDetail, error)
	ListOrderDetailsByRestaurant(ctx context.Context, arg database.ListOrderDetailsByRestaurantParams) ([]database.OrderDetail, error)
}

// OrderDetailHandler handles order line endpoints.
type OrderDetailHandler struct {
	svc     OrderDetailServicer
	store   OrderDetailStore
	pub     events.Publisher
	metrics Recorder
}

// NewOrderDetailHandler creates a new OrderDetailHandler. pub and rec may be nil.
func NewOrderDetailHandler(svc OrderDetailServicer, store OrderDetailStore, pub events.Publisher, rec Recorder) *OrderDetailHandler {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &OrderDetailHandler{svc: svc, store: store, pub: pub, metrics: rec}
}

// RegisterRoutes registers order line endpoints. Expected to be mounted at /order-details.
func (h *OrderDetailHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Add)
	r.Put("/", h.Update)
	r.Get("/", h.List)
	r.Post("/batch-update-status", h.BatchUpdateStatus)
	r.Delete("/{id}", h.Remove)
}

// --- Request / Response types ---

type addDetailRequest struct {
	OrderID  string `json:"order_id"`
	UnitID   string `json:"unit_id"`
	Quantity int32  `json:"quantity"`
	Note     string `json:"note"`
}

type updateDetailRequest struct {
	ID       string  `json:"id"`
	Quantity *int32  `json:"quantity"`
	Note     *string `json:"note"`
}

type batchStatusRequest struct {
	OrderID string   `json:"order_id"`
	IDs     []string `json:"ids"`
	Status  string   `json:"status"`
}

type removeDetailResponse struct {
	ID           uuid.UUID      `json:"id"`
	OrderDeleted bool           `json:"order_deleted"`
	Order        *orderResponse `json:"order"`
}

type statusResponse struct {
	Updated []orderDetailResponse `json:"updated"`
	Order   *orderResponse        `json:"order,omitempty"`
}

// --- Handlers ---

// Add handles POST /order-details.
func (h *OrderDetailHandler) Add(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	var req addDetailRequest
	if !decodeBody(w, r, &req) {
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "invalid order_id")
		return
	}
	unitID, err := uuid.Parse(req.UnitID)
	if err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "invalid unit_id")
		return
	}

	result, err := h.svc.AddDetail(r.Context(), service.AddDetailRequest{
		RestaurantID: claims.RestaurantID,
		OrderID:      orderID,
		UnitID:       unitID,
		Quantity:     req.Quantity,
		Note:         req.Note,
	})
	if err != nil {
		writeServiceError(w, "add order detail", err)
		return
	}

	publish(r.Context(), h.pub, events.DetailAdded, claims.RestaurantID, []database.OrderDetail{result.Detail})
	envelope.WriteData(w, http.StatusCreated, "order detail added", viewToResponse(result.View))
}

// Update handles PUT /order-details.
func (h *OrderDetailHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	var req updateDetailRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}

	result, err := h.svc.UpdateDetail(r.Context(), service.UpdateDetailRequest{
		ID:           id,
		RestaurantID: claims.RestaurantID,
		Quantity:     req.Quantity,
		Note:         req.Note,
	})
	if err != nil {
		writeServiceError(w, "update order detail", err)
		return
	}

	envelope.WriteData(w, http.StatusOK, "order detail updated", viewToResponse(result.View))
}

// Remove handles DELETE /order-details/{id}.
func (h *OrderDetailHandler) Remove(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	id, ok := urlID(w, r, "id", "order detail ID")
	if !ok {
		return
	}

	result, err := h.svc.RemoveDetail(r.Context(), id, claims.RestaurantID)
	if err != nil {
		writeServiceError(w, "remove order detail", err)
		return
	}

	publish(r.Context(), h.pub, events.DetailRemoved, claims.RestaurantID, []database.OrderDetail{result.Detail})

	msg := "order detail removed"
	if result.OrderDeleted {
		msg = "order deleted"
	}
	envelope.WriteData(w, http.StatusOK, msg, removeDetailResponse{
		ID:           id,
		OrderDeleted: result.OrderDeleted,
		Order:        viewToResponse(result.View),
	})
}

// List handles GET /order-details?order_id= and GET /order-details?status=&station=.
func (h *OrderDetailHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	q := r.URL.Query()
	if s := q.Get("order_id"); s != "" {
		orderID, err := uuid.Parse(s)
		if err != nil {
			envelope.WriteError(w, http.StatusBadRequest, "invalid order_id")
			return
		}
		h.listByOrder(w, r, orderID, claims.RestaurantID)
		return
	}

	params := database.ListOrderDetailsByRestaurantParams{
		RestaurantID: claims.RestaurantID,
		Limit:        kitchenQueueLimit,
	}
	if s := q.Get("status"); s != "" {
		params.Status = pgtype.Text{String: strings.ToUpper(s), Valid: true}
	}
	if s := q.Get("station"); s != "" {
		params.Station = pgtype.Text{String: strings.ToUpper(s), Valid: true}
	}

	details, err := h.store.ListOrderDetailsByRestaurant(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list order details: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	envelope.WriteData(w, http.StatusOK, "", detailsToResponse(details))
}

func (h *OrderDetailHandler) listByOrder(w http.ResponseWriter, r *http.Request, orderID, restaurantID uuid.UUID) {
	// Scope check: the order must belong to the caller's restaurant.
	if _, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, RestaurantID: restaurantID}); err != nil {
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

	envelope.WriteData(w, http.StatusOK, "", detailsToResponse(details))
}

// BatchUpdateStatus handles POST /order-details/batch-update-status.
//
// status PENDING with order_id sends the order's AWAITING lines to the kitchen.
// status CONFIRMED or CANCELED with ids is the kitchen's answer and needs a
// KITCHEN, MANAGER or OWNER role.
func (h *OrderDetailHandler) BatchUpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	var req batchStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status := strings.ToUpper(strings.TrimSpace(req.Status))

	var (
		result  *service.StatusResult
		err     error
		evtType string
	)
	switch status {
	case enum.OrderDetailStatusPending:
		orderID, perr := uuid.Parse(req.OrderID)
		if perr != nil {
			envelope.WriteError(w, http.StatusBadRequest, "order_id is required to send lines to the kitchen")
			return
		}
		result, err = h.svc.SendToKitchen(r.Context(), orderID, claims.RestaurantID)
		evtType = events.DetailSent

	case enum.OrderDetailStatusConfirmed, enum.OrderDetailStatusCanceled:
		if !kitchenRole(claims.Role) {
			envelope.WriteError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		if len(req.IDs) == 0 {
			envelope.WriteError(w, http.StatusBadRequest, "ids are required")
			return
		}
		ids, ok := parseIDs(req.IDs)
		if !ok {
			envelope.WriteError(w, http.StatusBadRequest, "invalid ids")
			return
		}
		result, err = h.svc.UpdateDetailStatus(r.Context(), ids, claims.RestaurantID, status)
		evtType = events.DetailStatusChanged

	default:
		envelope.WriteError(w, http.StatusBadRequest, "status must be PENDING, CONFIRMED or CANCELED")
		return
	}
	if err != nil {
		writeServiceError(w, "update order detail status", err)
		return
	}

	h.metrics.DetailsMoved(status, len(result.Updated))
	publish(r.Context(), h.pub, evtType, claims.RestaurantID, result.Updated)

	envelope.WriteData(w, http.StatusOK, "order details updated", statusResponse{
		Updated: detailsToResponse(result.Updated),
		Order:   viewToResponse(result.View),
	})
}

func kitchenRole(role string) bool {
	switch role {
	case enum.UserRoleKitchen, enum.UserRoleManager, enum.UserRoleOwner:
		return true
	}
	return false
}
