package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	booking "octopus/internal/booking/models"
	"octopus/internal/lead/attribution"
	"octopus/internal/lead/models"
	"octopus/internal/lead/service"
	id "octopus/pkg/domain"
	"octopus/pkg/platform/httputil"
	"octopus/pkg/requestcontext"
)

// Service is the lead funnel surface used by the handlers.
type Service interface {
	Capture(ctx context.Context, req *models.CaptureRequest) (*models.Lead, error)
	Get(ctx context.Context, leadID id.LeadID) (*models.Lead, error)
	MarkContacted(ctx context.Context, leadID id.LeadID) (*models.Lead, error)
	MarkQuoted(ctx context.Context, leadID id.LeadID) (*models.Lead, error)
	MarkLost(ctx context.Context, leadID id.LeadID, reason string) (*models.Lead, error)
	Convert(ctx context.Context, leadID id.LeadID, req service.ConvertRequest) (*booking.Booking, error)
	VerifyAttribution(ctx context.Context, hash, token string) (*attribution.Verification, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/leads/capture", h.HandleCapture)
	r.Get("/leads/attribution/{hash}", h.HandleVerifyAttribution)
	r.Get("/leads/{id}", h.HandleGet)
	r.Post("/leads/{id}/contacted", h.HandleContacted)
	r.Post("/leads/{id}/quoted", h.HandleQuoted)
	r.Post("/leads/{id}/lost", h.HandleLost)
	r.Post("/leads/{id}/convert", h.HandleConvert)
}

func (h *Handler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CaptureRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	lead, err := h.service.Capture(ctx, &req.CaptureRequest)
	if err != nil {
		h.logger.WarnContext(ctx, "lead capture failed",
			"request_id", requestID,
			"provider_id", req.ProviderID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, lead)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	leadID, err := id.ParseLeadID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	lead, err := h.service.Get(r.Context(), leadID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lead)
}

func (h *Handler) HandleContacted(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkContacted)
}

func (h *Handler) HandleQuoted(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkQuoted)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, id.LeadID) (*models.Lead, error)) {
	leadID, err := id.ParseLeadID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	lead, err := apply(r.Context(), leadID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lead)
}

func (h *Handler) HandleLost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	leadID, err := id.ParseLeadID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[LostRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	lead, err := h.service.MarkLost(ctx, leadID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lead)
}

func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	leadID, err := id.ParseLeadID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ConvertRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	b, err := h.service.Convert(ctx, leadID, req.toService())
	if err != nil {
		h.logger.WarnContext(ctx, "lead conversion failed",
			"request_id", requestID,
			"lead_id", leadID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, b)
}

// HandleVerifyAttribution is the target of signed attribution URLs.
func (h *Handler) HandleVerifyAttribution(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.VerifyAttribution(r.Context(), chi.URLParam(r, "hash"), r.URL.Query().Get("token"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}
