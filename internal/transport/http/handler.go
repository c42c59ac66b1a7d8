package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"nomcli/internal/config"
	"nomcli/internal/dynamic"
	apperrors "nomcli/internal/errors"
	"nomcli/internal/nominate"
	"nomcli/internal/rollcall"
)

// Handler serves the estimation endpoints.
type Handler struct {
	cfg      *config.Config
	logger   *slog.Logger
	validate *validator.Validate
	metrics  *Metrics
}

// NewHandler creates the estimation handler.
func NewHandler(cfg *config.Config, logger *slog.Logger, metrics *Metrics) *Handler {
	return &Handler{
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "estimate_handler")),
		validate: validator.New(),
		metrics:  metrics,
	}
}

// Estimate handles POST /api/estimate.
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.renderError(w, r, apperrors.Input("decode request: %v", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.renderError(w, r, apperrors.Input("invalid request: %v", err))
		return
	}

	m, err := req.PeriodPayload.matrix()
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	opts := req.Options.apply(h.cfg.Estimation.Options())
	start := time.Now()
	result, err := nominate.Estimate(r.Context(), m, opts, h.logger)
	h.metrics.EstimationDuration.WithLabelValues("single").Observe(time.Since(start).Seconds())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

// EstimateDynamic handles POST /api/estimate/dynamic.
func (h *Handler) EstimateDynamic(w http.ResponseWriter, r *http.Request) {
	var req DynamicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.renderError(w, r, apperrors.Input("decode request: %v", err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.renderError(w, r, apperrors.Input("invalid request: %v", err))
		return
	}

	matrices := make([]*rollcall.Matrix, len(req.Periods))
	for t, payload := range req.Periods {
		m, err := payload.matrix()
		if err != nil {
			h.renderError(w, r, err)
			return
		}
		matrices[t] = m
	}

	opts := req.Options.apply(h.cfg.Dynamic.Options())
	start := time.Now()
	result, err := dynamic.Estimate(r.Context(), matrices, opts, h.logger)
	h.metrics.EstimationDuration.WithLabelValues("dynamic").Observe(time.Since(start).Seconds())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperrors.KindOf(err)
	if kind == "" {
		kind = "INTERNAL"
	}
	h.metrics.EstimationErrors.WithLabelValues(string(kind)).Inc()
	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("kind", string(kind)),
		slog.String("error", err.Error()))

	apiErr := apperrors.ToAPIError(err)
	if renderErr := render.Render(w, r, apiErr); renderErr != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
