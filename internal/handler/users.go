package handler

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tablepos/api/internal/database"
	"github.com/tablepos/api/internal/enum"
	"github.com/tablepos/api/internal/envelope"
	"golang.org/x/crypto/bcrypt"
)

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	ListUsersByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
}

// UserHandler handles staff accounts of the caller's restaurant.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterRoutes registers user endpoints. Expected to be mounted at /users
// behind RequireRole("OWNER", "MANAGER").
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// List returns the active users of the restaurant.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	users, err := h.store.ListUsersByRestaurant(r.Context(), claims.RestaurantID)
	if err != nil {
		log.Printf("ERROR: list users: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	envelope.WriteData(w, http.StatusOK, "", resp)
}

// Create adds a staff account to the restaurant.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := requireClaims(w, r)
	if claims == nil {
		return
	}

	var req createUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	fullName := strings.TrimSpace(req.FullName)
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if email == "" || req.Password == "" || fullName == "" {
		envelope.WriteError(w, http.StatusBadRequest, "email, password and full_name are required")
		return
	}
	if !isValidRole(role) {
		envelope.WriteError(w, http.StatusBadRequest, "role must be OWNER, MANAGER, CASHIER or KITCHEN")
		return
	}
	// Only owners create owners.
	if role == enum.UserRoleOwner && claims.Role != enum.UserRoleOwner {
		envelope.WriteError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: hash password: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		RestaurantID:   claims.RestaurantID,
		Email:          email,
		HashedPassword: string(hash),
		FullName:       fullName,
		Role:           role,
	})
	if err != nil {
		if isUniqueViolation(err) {
			envelope.WriteError(w, http.StatusConflict, "email already exists")
			return
		}
		log.Printf("ERROR: create user: %v", err)
		envelope.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	envelope.WriteData(w, http.StatusCreated, "user created", toUserResponse(user))
}

func isValidRole(role string) bool {
	switch role {
	case enum.UserRoleOwner, enum.UserRoleManager,
		enum.UserRoleCashier, enum.UserRoleKitchen:
		return true
	}
	return false
}
