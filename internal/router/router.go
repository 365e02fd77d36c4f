package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tablepos/api/internal/config"
	"github.com/tablepos/api/internal/database"
	"github.com/tablepos/api/internal/events"
	"github.com/tablepos/api/internal/handler"
	"github.com/tablepos/api/internal/metrics"
	mw "github.com/tablepos/api/internal/middleware"
	"github.com/tablepos/api/internal/service"
	"github.com/tablepos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Every /api/v1 route except auth and the kitchen socket requires a bearer
// token and is scoped to the token's restaurant.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, pub events.Publisher, m *metrics.Metrics) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method("GET", "/metrics", m.Handler())

	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public)
		authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
		authHandler.RegisterRoutes(r)

		// Kitchen screens (handles auth internally via query param)
		r.Get("/ws/kitchen", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWS(hub, cfg.JWTSecret, w, r)
		})

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))

			orderHandler := handler.NewOrderHandler(orderService, queries, m)
			r.Route("/orders", orderHandler.RegisterRoutes)

			detailHandler := handler.NewOrderDetailHandler(orderService, queries, pub, m)
			r.Route("/order-details", detailHandler.RegisterRoutes)

			invoiceHandler := handler.NewInvoiceHandler(orderService, queries, m)
			r.Route("/invoices", invoiceHandler.RegisterRoutes)

			tableHandler := handler.NewTableHandler(queries)
			r.Route("/dining-tables", tableHandler.RegisterRoutes)

			productHandler := handler.NewProductHandler(queries)
			r.Route("/products", productHandler.RegisterRoutes)
			r.Route("/units", productHandler.RegisterUnitRoutes)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole("OWNER", "MANAGER"))
				userHandler := handler.NewUserHandler(queries)
				r.Route("/users", userHandler.RegisterRoutes)
			})
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
