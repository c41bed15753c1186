package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"octopus/internal/reporting/models"
	id "octopus/pkg/domain"
	"octopus/pkg/platform/httputil"
	"octopus/pkg/requestcontext"
)

// Service is the reporting surface used by the handlers.
type Service interface {
	ProviderStats(ctx context.Context, providerID id.ProviderID) (*models.ProviderStats, error)
	Dashboard(ctx context.Context) (*models.Dashboard, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts nothing: revenue figures are operator-only.
func (h *Handler) Register(chi.Router) {}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/providers/{id}/stats", h.HandleProviderStats)
	r.Get("/admin/dashboard", h.HandleDashboard)
}

func (h *Handler) HandleProviderStats(w http.ResponseWriter, r *http.Request) {
	providerID, err := id.ParseProviderID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	stats, err := h.service.ProviderStats(r.Context(), providerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := h.service.Dashboard(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "dashboard request failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}
