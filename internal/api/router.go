package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/booklane/slot-reservation/internal/booking"
	"github.com/booklane/slot-reservation/internal/lock"
	"github.com/booklane/slot-reservation/internal/schedule"
)

type RouterConfig struct {
	Locks    *lock.Service
	Planner  *schedule.Planner
	Bookings *booking.Service
	DB       DBPinger
	Registry *prometheus.Registry
	AdminKey string
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints (public)
	health := NewHealthHandler(cfg.DB, cfg.Locks, cfg.Env, cfg.Version)
	r.Get("/health", health.Liveness)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Lock endpoints
	r.Route("/locks", func(r chi.Router) {
		r.Post("/acquire", acquireLockHandler(cfg.Locks))
		r.Post("/verify", verifyLockHandler(cfg.Locks))
		r.Post("/release", releaseLockHandler(cfg.Locks))
		r.Post("/refresh", refreshLockHandler(cfg.Locks))
	})

	// Slot and booking endpoints, tenant-scoped
	r.Group(func(r chi.Router) {
		r.Use(SalonMiddleware)
		r.Get("/slots", listSlotsHandler(cfg.Planner))
		r.Get("/slots/fully-booked", fullyBookedHandler(cfg.Planner))
		r.Post("/appointments", createAppointmentHandler(cfg.Bookings))
	})

	// Admin endpoints
	r.Route("/admin", func(r chi.Router) {
		r.Use(AdminMiddleware(cfg.AdminKey))
		r.Get("/locks", listActiveLocksHandler(cfg.Locks))
		r.Post("/locks/force-release", forceReleaseLockHandler(cfg.Locks))
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	})

	return r
}
