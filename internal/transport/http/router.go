// Package httptransport assembles the HTTP surface: platform middleware,
// health and metrics endpoints, and the authenticated API group the domain
// handlers mount themselves on.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cmms/internal/platform/middleware"
)

// Registrar mounts a handler's routes on the router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck probes one dependency. A nil check is skipped.
type HealthCheck func(ctx context.Context) error

// NewRouter builds the server's handler tree. Health and metrics are public;
// everything the registrars mount sits behind JWT auth.
func NewRouter(signingKey string, logger *slog.Logger, checks []HealthCheck, registrars ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(signingKey, logger))
		for _, registrar := range registrars {
			registrar.Register(r)
		}
	})
	return r
}
