package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"octopus/internal/trust/models"
	"octopus/internal/trust/service"
	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
	"octopus/pkg/platform/httputil"
	"octopus/pkg/requestcontext"
)

// Service is the trust surface used by the handlers.
type Service interface {
	Evaluate(ctx context.Context, providerID id.ProviderID) (*models.TrustScore, error)
	Latest(ctx context.Context, providerID id.ProviderID) (*models.TrustScore, error)
	History(ctx context.Context, providerID id.ProviderID, limit int) ([]*models.TrustScore, error)
	ManualReview(ctx context.Context, req service.ManualReviewRequest) (*models.TrustScore, error)
	Reinstate(ctx context.Context, providerID id.ProviderID) (*models.TrustScore, error)
	RecordContribution(ctx context.Context, req service.ContributionRequest) (*models.Contribution, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/trust/{id}", h.HandleLatest)
	r.Post("/trust/{id}/calculate", h.HandleCalculate)
	r.Get("/trust/{id}/history", h.HandleHistory)
}

// RegisterAdmin mounts reviewer routes; callers put them behind the admin token.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/trust/{id}/manual-review", h.HandleManualReview)
	r.Post("/admin/providers/{id}/reinstate", h.HandleReinstate)
	r.Post("/admin/providers/{id}/contributions", h.HandleRecordContribution)
}

// ManualReviewRequest is the body of POST /admin/trust/{id}/manual-review.
// ReviewerID falls back to the admin actor.
type ManualReviewRequest struct {
	Approve    *bool  `json:"approve"`
	Notes      string `json:"notes"`
	ReviewerID string `json:"reviewer_id"`
}

func (r *ManualReviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Approve == nil {
		return dErrors.New(dErrors.CodeValidation, "approve is required")
	}
	r.Notes = strings.TrimSpace(r.Notes)
	if len(r.Notes) > 2000 {
		return dErrors.New(dErrors.CodeValidation, "notes must be 2000 characters or less")
	}
	r.ReviewerID = strings.TrimSpace(r.ReviewerID)
	return nil
}

// ContributionRequest is the body of POST /admin/providers/{id}/contributions.
type ContributionRequest struct {
	Hours       *float64   `json:"hours"`
	Verified    bool       `json:"verified"`
	Quality     float64    `json:"quality"`
	Description string     `json:"description"`
	OccurredAt  *time.Time `json:"occurred_at"`
}

func (r *ContributionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Hours == nil {
		return dErrors.New(dErrors.CodeValidation, "hours is required")
	}
	return nil
}

// HistoryResponse wraps the newest-first history.
type HistoryResponse struct {
	ProviderID id.ProviderID        `json:"provider_id"`
	History    []*models.TrustScore `json:"history"`
}

func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	score, err := h.service.Latest(r.Context(), providerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, score)
}

func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	start := time.Now()
	score, err := h.service.Evaluate(ctx, providerID)
	if err != nil {
		h.logger.WarnContext(ctx, "trust calculation failed",
			"request_id", requestcontext.RequestID(ctx),
			"provider_id", providerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "trust calculated",
		"request_id", requestcontext.RequestID(ctx),
		"provider_id", providerID,
		"score", score.Score,
		"decision", score.Decision,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, score)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be an integer"))
			return
		}
		limit = n
	}
	history, err := h.service.History(r.Context(), providerID, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if history == nil {
		history = []*models.TrustScore{}
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{ProviderID: providerID, History: history})
}

func (h *Handler) HandleManualReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ManualReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	reviewer := req.ReviewerID
	if reviewer == "" {
		reviewer = requestcontext.ActorID(ctx)
	}

	score, err := h.service.ManualReview(ctx, service.ManualReviewRequest{
		ProviderID: providerID,
		Approve:    *req.Approve,
		Notes:      req.Notes,
		ReviewerID: reviewer,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "manual review failed",
			"request_id", requestID,
			"provider_id", providerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, score)
}

func (h *Handler) HandleReinstate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	score, err := h.service.Reinstate(ctx, providerID)
	if err != nil {
		h.logger.WarnContext(ctx, "reinstatement failed",
			"request_id", requestcontext.RequestID(ctx),
			"provider_id", providerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, score)
}

func (h *Handler) HandleRecordContribution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ContributionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	in := service.ContributionRequest{
		ProviderID:  providerID,
		Hours:       *req.Hours,
		Verified:    req.Verified,
		Quality:     req.Quality,
		Description: req.Description,
	}
	if req.OccurredAt != nil {
		in.OccurredAt = *req.OccurredAt
	}
	c, err := h.service.RecordContribution(ctx, in)
	if err != nil {
		h.logger.WarnContext(ctx, "contribution rejected",
			"request_id", requestID,
			"provider_id", providerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) providerID(w http.ResponseWriter, r *http.Request) (id.ProviderID, bool) {
	providerID, err := id.ParseProviderID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ProviderID{}, false
	}
	return providerID, true
}
