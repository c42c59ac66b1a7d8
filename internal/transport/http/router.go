package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nomcli/internal/config"
)

// NewRouter wires the service routes with request identification, panic
// recovery, structured request logging, and a per-request timeout sized for
// long estimation runs.
func NewRouter(cfg *config.Config, logger *slog.Logger, metrics *Metrics, registry *prometheus.Registry) chi.Router {
	h := NewHandler(cfg, logger, metrics)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger, metrics))
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Post("/estimate", h.Estimate)
		r.Post("/estimate/dynamic", h.EstimateDynamic)
	})

	return r
}

// requestLogger logs each request once it completes and feeds the request
// counter.
func requestLogger(logger *slog.Logger, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.RequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(status)).Inc()
			logger.InfoContext(r.Context(), "request served",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("elapsed", time.Since(start)))
		})
	}
}
