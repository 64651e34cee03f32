package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	mW "github.com/dazzlersden/backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Handlers groups every HTTP handler of the API.
type Handlers struct {
	Customers *CustomerHandler
	Ledger    *LedgerHandler
	Sessions  *SessionHandler
	Catalog   *CatalogHandler
	Reports   *ReportHandler
	QR        *QRHandler
}

// NewRouter mounts the API under /api/v1 behind auth.
func NewRouter(h Handlers, auth func(http.Handler) http.Handler, swaggerURL string) chi.Router {
	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth)

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", h.Customers.Register)
			r.Get("/", h.Customers.List)
			r.Get("/by-token", h.Customers.GetByToken)
			r.Get("/birthdays", h.Customers.Birthdays)
			r.Get("/{id}", h.Customers.Get)
			r.Put("/{id}", h.Customers.Update)
			r.Get("/{id}/qr", h.QR.CustomerCard)
			r.Get("/{id}/balance", h.Customers.Balance)
		})

		r.Post("/recharge", h.Ledger.Recharge)
		r.Get("/transactions", h.Ledger.ListTransactions)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.Sessions.List)
			r.Post("/start", h.Sessions.Start)
			r.Get("/active", h.Sessions.Active)
			r.Get("/overdue", h.Sessions.Overdue)
			r.Post("/{id}/exit", h.Sessions.Exit)
		})

		r.Route("/plans", func(r chi.Router) {
			r.Get("/", h.Catalog.Plans)
			r.Post("/", h.Catalog.CreatePlan)
			r.Put("/{id}", h.Catalog.UpdatePlan)
			r.Delete("/{id}", h.Catalog.DeactivatePlan)
		})

		r.Route("/offers", func(r chi.Router) {
			r.Get("/", h.Catalog.Offers)
			r.Post("/", h.Catalog.CreateOffer)
			r.Put("/{id}", h.Catalog.UpdateOffer)
			r.Delete("/{id}", h.Catalog.DeactivateOffer)
		})

		r.Get("/dashboard", h.Reports.Dashboard)
		r.Get("/export/{kind}", h.Reports.Export)
	})

	return r
}
