/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/ledger/*      Movement capture
  /api/balance       Balance as-of
  /api/aging/*       FIFO aging reports
  /api/sellout/*     Draft batch lifecycle
  /api/customers,... Master data
  /api/admin/*       Admin operations

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Ledger routes
		r.Post("/ledger/entries", h.CaptureEntries)
		r.Post("/snapshots", h.IngestSnapshot)
		r.Get("/balance", h.GetBalance)

		// Aging routes
		r.Route("/aging", func(r chi.Router) {
			r.Get("/", h.GetAging)
			r.Get("/layers", h.GetAgingLayers)
			r.Get("/export.csv", h.ExportAgingCSV)
		})

		// Sell-out batch routes
		r.Route("/sellout", func(r chi.Router) {
			r.Route("/uploads", func(r chi.Router) {
				r.Get("/", h.ListUploads)
				r.Post("/", h.CreateUpload)
				r.Get("/{id}", h.GetUpload)
				r.Get("/{id}/preview", h.GetPreview)
				r.Get("/{id}/approvals", h.GetApprovals)
			})
			r.Post("/approve", h.ApproveUploads)
			r.Post("/reject", h.RejectUploads)
			r.Post("/resubmit", h.ResubmitUploads)
		})

		// Master data routes
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.UpsertCustomer)
		})
		r.Route("/skus", func(r chi.Router) {
			r.Get("/", h.ListSKUs)
			r.Post("/", h.UpsertSKU)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/status/recompute", h.TriggerRecompute)
		})

		// Config routes
		r.Route("/config", func(r chi.Router) {
			r.Get("/{key}", h.GetConfig)
			r.Put("/{key}", h.SetConfig)
		})

		// Demo scenario routes (development only)
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
