/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in error logs
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Instrument: Prometheus latency by route pattern
  5. CORS:       Cross-origin requests for a browser frontend

ROUTE GROUPS:
  /api/products/*    Inventory
  /api/customers/*   Customers, balances, statements
  /api/sales         Sales
  /api/payments      Payments
  /api/summary       Management figures
  /api/reports/*     CSV exports
  /api/audit         Audit trail
  /api/scenarios/*   Demo scenarios
  /health            Liveness
  /metrics           Prometheus

SECURITY NOTE:
  No authentication middleware. The ledger is meant for a single shop on
  a trusted network.

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

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(h.Metrics.Instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)
	r.Method("GET", "/metrics", h.Metrics.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/available", h.ListAvailableProducts)
			r.Get("/{id}", h.GetProduct)
			r.Get("/{id}/image", h.GetProductImage)
			r.Get("/{id}/sale", h.GetProductSale)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.CreateCustomer)
			r.Get("/{id}", h.GetCustomer)
			r.Put("/{id}", h.UpdateCustomer)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/statement", h.GetStatement)
			r.Get("/{id}/sales", h.GetCustomerSales)
			r.Get("/{id}/payments", h.GetCustomerPayments)
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.ListSales)
			r.Post("/", h.CreateSale)
		})
		r.Post("/payments", h.CreatePayment)

		r.Get("/summary", h.GetSummary)
		r.Route("/reports", func(r chi.Router) {
			r.Get("/stock.csv", h.StockCSV)
			r.Get("/sales.csv", h.SalesCSV)
			r.Get("/summary.csv", h.SummaryCSV)
		})
		r.Get("/audit", h.ListAudit)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetData)
		})
	})

	return r
}
