package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterOptions configures Router.
type RouterOptions struct {
	Logger       *slog.Logger
	Checks       []Check
	CheckTimeout time.Duration
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// Router returns the operational routes: /healthz, /readyz and /metrics.
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Liveness())
	r.Get("/readyz", Readiness(opts.Logger, opts.CheckTimeout, opts.Checks...))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	return r
}
