package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"octopus/internal/booking/models"
	id "octopus/pkg/domain"
	"octopus/pkg/platform/httputil"
	"octopus/pkg/requestcontext"
)

// Service is the booking ledger surface used by the handlers.
type Service interface {
	Get(ctx context.Context, bookingID id.BookingID) (*models.Booking, error)
	Confirm(ctx context.Context, bookingID id.BookingID, party models.Party) (*models.Booking, error)
	Start(ctx context.Context, bookingID id.BookingID) (*models.Booking, error)
	Complete(ctx context.Context, bookingID id.BookingID, actualValue float64) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID id.BookingID, reason string) (*models.Booking, error)
	Dispute(ctx context.Context, bookingID id.BookingID, reason string) (*models.Booking, error)
	ResolveDispute(ctx context.Context, bookingID id.BookingID, r models.Resolution) (*models.Booking, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/bookings/{id}", h.HandleGet)
	r.Post("/bookings/{id}/confirm", h.HandleConfirm)
	r.Post("/bookings/{id}/start", h.HandleStart)
	r.Post("/bookings/{id}/complete", h.HandleComplete)
	r.Post("/bookings/{id}/cancel", h.HandleCancel)
	r.Post("/bookings/{id}/dispute", h.HandleDispute)
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/bookings/{id}/resolve", h.HandleResolve)
}

func bookingID(w http.ResponseWriter, r *http.Request) (id.BookingID, bool) {
	bid, err := id.ParseBookingID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return bid, false
	}
	return bid, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, action string, b *models.Booking, err error) {
	if err != nil {
		h.logger.WarnContext(r.Context(), "booking "+action+" failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"booking_id", chi.URLParam(r, "id"),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	bid, ok := bookingID(w, r)
	if !ok {
		return
	}
	b, err := h.service.Get(r.Context(), bid)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bid, ok := bookingID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ConfirmRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	b, err := h.service.Confirm(ctx, bid, req.Party)
	h.respond(w, r, "confirm", b, err)
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	bid, ok := bookingID(w, r)
	if !ok {
		return
	}
	b, err := h.service.Start(r.Context(), bid)
	h.respond(w, r, "start", b, err)
}

func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bid, ok := bookingID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CompleteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	b, err := h.service.Complete(ctx, bid, *req.ActualValue)
	h.respond(w, r, "completion", b, err)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bid, ok := bookingID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	b, err := h.service.Cancel(ctx, bid, req.Reason)
	h.respond(w, r, "cancellation", b, err)
}

func (h *Handler) HandleDispute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bid, ok := bookingID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	b, err := h.service.Dispute(ctx, bid, req.Reason)
	h.respond(w, r, "dispute", b, err)
}

func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	bid, ok := bookingID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ResolveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	reviewer := req.ReviewerID
	if reviewer == "" {
		reviewer = requestcontext.ActorID(ctx)
	}
	b, err := h.service.ResolveDispute(ctx, bid, models.Resolution{
		Outcome:     req.Outcome,
		ReviewerID:  reviewer,
		Notes:       req.Notes,
		ActualValue: req.ActualValue,
	})
	if err == nil {
		h.logger.InfoContext(ctx, "booking dispute resolved by admin",
			"request_id", requestID,
			"booking_id", bid,
			"outcome", req.Outcome,
			"actor", requestcontext.ActorID(ctx),
		)
	}
	h.respond(w, r, "resolution", b, err)
}
