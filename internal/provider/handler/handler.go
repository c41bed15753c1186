package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"octopus/internal/provider/models"
	id "octopus/pkg/domain"
	"octopus/pkg/platform/httputil"
	"octopus/pkg/requestcontext"
)

// Service is the provider lifecycle surface used by the handlers.
type Service interface {
	Claim(ctx context.Context, req *models.ClaimRequest) (*models.Provider, error)
	Get(ctx context.Context, providerID id.ProviderID) (*models.Provider, error)
	Search(ctx context.Context, filter models.SearchFilter) (*models.SearchResult, error)
	ListPending(ctx context.Context, limit, offset int) (*models.SearchResult, error)
	Update(ctx context.Context, providerID id.ProviderID, req *models.UpdateRequest) (*models.Provider, error)
	Suspend(ctx context.Context, providerID id.ProviderID, reason string) (*models.Provider, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public provider routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/providers/claim", h.HandleClaim)
	r.Get("/providers/search", h.HandleSearch)
	r.Get("/providers/{id}", h.HandleGet)
}

// RegisterAdmin mounts routes that must sit behind the admin token.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Patch("/providers/{id}", h.HandleUpdate)
	r.Get("/admin/providers/pending", h.HandleListPending)
	r.Post("/admin/providers/{id}/suspend", h.HandleSuspend)
}

func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ClaimRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.service.Claim(ctx, &req.ClaimRequest)
	if err != nil {
		h.logger.WarnContext(ctx, "provider claim failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	providerID, err := id.ParseProviderID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.Get(r.Context(), providerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSearch(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q, "limit")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	offset, err := intParam(q, "offset")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.ListPending(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	providerID, err := id.ParseProviderID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.service.Update(ctx, providerID, &req.UpdateRequest)
	if err != nil {
		h.logger.WarnContext(ctx, "provider update failed",
			"request_id", requestID,
			"provider_id", providerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	providerID, err := id.ParseProviderID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SuspendRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.service.Suspend(ctx, providerID, req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "provider suspension failed",
			"request_id", requestID,
			"provider_id", providerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "provider suspended",
		"request_id", requestID,
		"provider_id", providerID,
		"actor", requestcontext.ActorID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, p)
}
