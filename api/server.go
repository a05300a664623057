/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions. This
  is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the management frontend

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/leases", func(r chi.Router) {
			r.Get("/", h.ListLeases)
			r.Post("/", h.CreateLease)
			r.Get("/{id}", h.GetLease)
			r.Put("/{id}", h.UpdateLease)
		})

		r.Route("/maintenance", func(r chi.Router) {
			r.Get("/", h.ListMaintenance)
			r.Post("/", h.CreateMaintenance)
			r.Get("/{id}", h.GetMaintenance)
			r.Put("/{id}", h.UpdateMaintenance)
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Post("/generate", h.GenerateLedger)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
			r.Post("/{id}/pay", h.PayTransaction)
			r.Post("/{id}/unpay", h.UnpayTransaction)
		})

		r.Get("/summary", h.GetSummary)
	})

	return r
}
