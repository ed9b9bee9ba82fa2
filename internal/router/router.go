package router

import (
	"net/http"

	"github.com/dapur-pos/api/internal/config"
	"github.com/dapur-pos/api/internal/database"
	"github.com/dapur-pos/api/internal/enum"
	"github.com/dapur-pos/api/internal/handler"
	"github.com/dapur-pos/api/internal/kds"
	mw "github.com/dapur-pos/api/internal/middleware"
	"github.com/dapur-pos/api/internal/printer"
	"github.com/dapur-pos/api/internal/service"
	"github.com/dapur-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, branch scoping, and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, dispatcher *printer.Dispatcher) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/branches/{bid}/events", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	orderService := service.NewOrderService(queries)
	refundService := service.NewRefundService(
		pool,
		func(db database.DBTX) service.RefundStore {
			return database.New(db)
		},
		dispatcher,
	)
	boards := kds.NewBoards()

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/branches/{bid}", func(r chi.Router) {
			r.Use(mw.RequireBranch)

			orderHandler := handler.NewOrderHandler(orderService, refundService, dispatcher, hub)
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", orderHandler.List)
				r.Get("/{id}", orderHandler.Get)
				r.Post("/{id}/print", orderHandler.Print)

				// Refunds need a manager or owner at the till.
				r.Group(func(r chi.Router) {
					r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager))
					r.Post("/{id}/refund", orderHandler.Refund)
				})
			})

			kitchenHandler := handler.NewKitchenHandler(orderService, boards, hub)
			r.Route("/kitchen", kitchenHandler.RegisterRoutes)
		})
	})

	return r
}
