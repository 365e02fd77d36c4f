package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablepos/api/internal/database"
	"github.com/tablepos/api/internal/envelope"
	"github.com/tablepos/api/internal/middleware"
)

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	ListProducts(ctx context.Context, restaurantID uuid.UUID) ([]database.Product, error)
	GetProduct(ctx context.Context, arg database.GetProductParams) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	ListUnitsByProduct(ctx context.Context, productID uuid.UUID) ([]database.Unit, error)
	CreateUnit(ctx context.Context, arg database.CreateUnitParams) (database.Unit, error)
	GetUnitForOrder(ctx context.Context, arg database.GetUnitForOrderParams) (database.GetUnitForOrderRow, error)
}

// ProductHandler handles the price list: products and their sellable units.
type ProductHandler struct {
	store ProductStore
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterRoutes registers product endpoints. Expected to be mounted at /products.
// Writes are limited to OWNER and MANAGER.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/units", h.ListUnits)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole("OWNER", "MANAGER"))
		r.Post("/", h.Create)
		r.Post("/{id}/units", h.CreateUnit)
	})
}

// RegisterUnitRoutes registers unit lookups. Expected to be mounted at /units.
func (h *ProductHandler) RegisterUnitRoutes(r chi.Router) {
	r.Get("/{id}", h.GetUnit)
}

// --- Request / Response types ---

type createProductRequest struct {
	Name    string `json:"name"`
	Station string `json:"station"`
}

type createUnitRequest struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

type productResponse struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Name         string    `json:"name"`
	Station      *string   `json:"station"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type unitResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	ProductName string    `json:"product_name,omitempty"`
	Station     *string   `json:"station,omitempty"`
}

// --- Handlers ---

// List handles GET /products. Only active products are listed.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	products, err := h.store.ListProducts(r.Context(), claims.RestaurantID)
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	envelope.WriteData(w, http.StatusOK, "", resp)
}

// Get handles GET /products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}
	product, ok := h.loadProduct(w, r, claims.RestaurantID)
	if !ok {
		return
	}
	envelope.WriteData(w, http.StatusOK, "", toProductResponse(product))
}

// ListUnits handles GET /products/{id}/units.
func (h *ProductHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}
	product, ok := h.loadProduct(w, r, claims.RestaurantID)
	if !ok {
		return
	}

	units, err := h.store.ListUnitsByProduct(r.Context(), product.ID)
	if err != nil {
		log.Printf("ERROR: list units: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]unitResponse, len(units))
	for i, u := range units {
		resp[i] = toUnitResponse(u)
		resp[i].ProductName = product.Name
		resp[i].Station = textPtr(product.Station)
	}
	envelope.WriteData(w, http.StatusOK, "", resp)
}

// GetUnit handles GET /units/{id}.
func (h *ProductHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	id, ok := urlID(w, r, "id", "unit ID")
	if !ok {
		return
	}

	row, err := h.store.GetUnitForOrder(r.Context(), database.GetUnitForOrderParams{
		ID:           id,
		RestaurantID: claims.RestaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			envelope.WriteError(w, http.StatusNotFound, "unit not found")
			return
		}
		log.Printf("ERROR: get unit: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	envelope.WriteData(w, http.StatusOK, "", unitResponse{
		ID:          row.ID,
		ProductID:   row.ProductID,
		Name:        row.Name,
		Price:       numericToString(row.Price),
		ProductName: row.ProductName,
		Station:     textPtr(row.Station),
	})
}

// Create handles POST /products.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	var req createProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		envelope.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	var station pgtype.Text
	if s := strings.ToUpper(strings.TrimSpace(req.Station)); s != "" {
		station = pgtype.Text{String: s, Valid: true}
	}

	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		RestaurantID: claims.RestaurantID,
		Name:         strings.TrimSpace(req.Name),
		Station:      station,
	})
	if err != nil {
		log.Printf("ERROR: create product: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	envelope.WriteData(w, http.StatusCreated, "product created", toProductResponse(product))
}

// CreateUnit handles POST /products/{id}/units.
func (h *ProductHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}
	product, ok := h.loadProduct(w, r, claims.RestaurantID)
	if !ok {
		return
	}

	var req createUnitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		envelope.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		envelope.WriteError(w, http.StatusBadRequest, "price must be a non-negative decimal")
		return
	}

	var numeric pgtype.Numeric
	if err := numeric.Scan(price.String()); err != nil {
		log.Printf("ERROR: convert price: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	unit, err := h.store.CreateUnit(r.Context(), database.CreateUnitParams{
		ProductID: product.ID,
		Name:      strings.TrimSpace(req.Name),
		Price:     numeric,
	})
	if err != nil {
		log.Printf("ERROR: create unit: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	envelope.WriteData(w, http.StatusCreated, "unit created", toUnitResponse(unit))
}

// --- Helpers ---

func (h *ProductHandler) loadProduct(w http.ResponseWriter, r *http.Request, restaurantID uuid.UUID) (database.Product, bool) {
	id, ok := urlID(w, r, "id", "product ID")
	if !ok {
		return database.Product{}, false
	}

	product, err := h.store.GetProduct(r.Context(), database.GetProductParams{
		ID:           id,
		RestaurantID: restaurantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			envelope.WriteError(w, http.StatusNotFound, "product not found")
			return product, false
		}
		log.Printf("ERROR: get product: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return product, false
	}
	return product, true
}

func toProductResponse(p database.Product) productResponse {
	return productResponse{
		ID:           p.ID,
		RestaurantID: p.RestaurantID,
		Name:         p.Name,
		Station:      textPtr(p.Station),
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
	}
}

func toUnitResponse(u database.Unit) unitResponse {
	return unitResponse{
		ID:        u.ID,
		ProductID: u.ProductID,
		Name:      u.Name,
		Price:     numericToString(u.Price),
	}
}
