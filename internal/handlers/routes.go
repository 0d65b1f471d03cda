package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ymcoiffure/salon-bookings/pkg/middleware"
)

type RouterConfig struct {
	AllowedOrigins []string
	AdminKey       string
	AdminKeyHash   string

	// Limiter guards the two verification endpoints; nil disables it.
	Limiter middleware.Limiter

	// TrustProxy reads the client address from forwarding headers.
	TrustProxy bool
}

func (h *Handlers) Routes(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.ServiceName("salon-bookings"))
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader, middleware.AdminKeyHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.Limiter != nil {
				r.Use(middleware.RateLimit(cfg.Limiter))
			}
			r.Post("/verify-request", h.RequestVerification)
			r.Post("/verify-confirm", h.ConfirmVerification)
		})

		r.Get("/status", h.Status)
		r.Get("/busy-slots", h.BusySlots)
		r.Get("/appointments/cancel", h.PreviewCancel)
		r.Post("/appointments/cancel", h.CancelAppointment)
		r.Delete("/appointments/cancel", h.CancelAppointment)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminKey(cfg.AdminKey, cfg.AdminKeyHash))

			r.Get("/appointments", h.ListAppointments)
			r.Post("/toggle-status", h.ToggleStatus)
			r.Delete("/appointment/{id}", h.DeleteAppointment)
			r.Get("/blacklist", h.ListBlacklist)
			r.Post("/blacklist", h.AddToBlacklist)
			r.Delete("/blacklist/{email}", h.RemoveFromBlacklist)
		})
	})

	return r
}
