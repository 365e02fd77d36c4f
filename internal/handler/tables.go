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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablepos/api/internal/database"
	"github.com/tablepos/api/internal/envelope"
	"github.com/tablepos/api/internal/middleware"
)

// TableStore defines the database methods needed by dining table handlers.
type TableStore interface {
	ListDiningTables(ctx context.Context, restaurantID uuid.UUID) ([]database.DiningTable, error)
	GetDiningTable(ctx context.Context, arg database.GetDiningTableParams) (database.DiningTable, error)
	CreateDiningTable(ctx context.Context, arg database.CreateDiningTableParams) (database.DiningTable, error)
}

// TableHandler handles dining table endpoints. Occupancy is owned by the
// order workflow and is read-only here.
type TableHandler struct {
	store TableStore
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore) *TableHandler {
	return &TableHandler{store: store}
}

// RegisterRoutes registers dining table endpoints. Expected to be mounted at /dining-tables.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.With(middleware.RequireRole("OWNER", "MANAGER")).Post("/", h.Create)
}

type createTableRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Seats    int32  `json:"seats"`
}

type tableResponse struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Location       *string    `json:"location"`
	Seats          int32      `json:"seats"`
	IsActive       bool       `json:"is_active"`
	Status         string     `json:"status"`
	CurrentOrderID *uuid.UUID `json:"current_order_id"`
}

// List handles GET /dining-tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	tables, err := h.store.ListDiningTables(r.Context(), claims.RestaurantID)
	if err != nil {
		log.Printf("ERROR: list dining tables: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = toTableResponse(t)
	}
	envelope.WriteData(w, http.StatusOK, "", resp)
}

// Get handles GET /dining-tables/{id}.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	id, ok := urlID(w, r, "id", "table ID")
	if !ok {
		return
	}

	table, err := h.store.GetDiningTable(r.Context(), database.GetDiningTableParams{
		ID:           id,
		RestaurantID: claims.RestaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			envelope.WriteError(w, http.StatusNotFound, "dining table not found")
			return
		}
		log.Printf("ERROR: get dining table: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	envelope.WriteData(w, http.StatusOK, "", toTableResponse(table))
}

// Create handles POST /dining-tables.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	var req createTableRequest
	if !decodeBody(w, r, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		envelope.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Seats == 0 {
		req.Seats = 4
	}
	if req.Seats < 0 {
		envelope.WriteError(w, http.StatusBadRequest, "seats must be positive")
		return
	}

	var location pgtype.Text
	if s := strings.TrimSpace(req.Location); s != "" {
		location = pgtype.Text{String: s, Valid: true}
	}

	table, err := h.store.CreateDiningTable(r.Context(), database.CreateDiningTableParams{
		RestaurantID: claims.RestaurantID,
		Name:         name,
		Location:     location,
		Seats:        req.Seats,
	})
	if err != nil {
		if isUniqueViolation(err) {
			envelope.WriteError(w, http.StatusConflict, "a table with this name already exists")
			return
		}
		log.Printf("ERROR: create dining table: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	envelope.WriteData(w, http.StatusCreated, "dining table created", toTableResponse(table))
}

func toTableResponse(t database.DiningTable) tableResponse {
	return tableResponse{
		ID:             t.ID,
		Name:           t.Name,
		Location:       textPtr(t.Location),
		Seats:          t.Seats,
		IsActive:       t.IsActive,
		Status:         t.Status,
		CurrentOrderID: uuidPtr(t.CurrentOrderID),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
