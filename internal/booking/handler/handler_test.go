package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"octopus/internal/booking/handler/mocks"
	"octopus/internal/booking/models"
	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
	"octopus/pkg/platform/middleware/admin"
	"octopus/pkg/testutil"
)

const adminToken = "secret-token"

func newBookingRouter(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(svc, logger)

	r := chi.NewRouter()
	h.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(adminToken, logger))
		h.RegisterAdmin(r)
	})
	return r, svc
}

func ptr[T any](v T) *T { return &v }

func TestHandleGet(t *testing.T) {
	router, svc := newBookingRouter(t)
	bid := id.NewBookingID()

	svc.EXPECT().Get(gomock.Any(), bid).Return(&models.Booking{ID: bid, Status: models.StatusRequested, CommissionRate: 0.05}, nil)
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/bookings/"+bid.String()))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "status", "REQUESTED")

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/bookings/nope"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
}

func TestHandleConfirm(t *testing.T) {
	router, svc := newBookingRouter(t)
	bid := id.NewBookingID()
	path := "/bookings/" + bid.String() + "/confirm"

	t.Run("party is normalised", func(t *testing.T) {
		svc.EXPECT().Confirm(gomock.Any(), bid, models.PartyCustomer).
			Return(&models.Booking{ID: bid, Status: models.StatusConfirmed}, nil)
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, path, map[string]string{"party": " Customer "}))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "CONFIRMED")
	})

	t.Run("unknown party never reaches the service", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, path, map[string]string{"party": "broker"}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})
}

func TestHandleComplete(t *testing.T) {
	router, svc := newBookingRouter(t)
	bid := id.NewBookingID()
	path := "/bookings/" + bid.String() + "/complete"

	t.Run("settles", func(t *testing.T) {
		svc.EXPECT().Complete(gomock.Any(), bid, 1200.0).
			Return(&models.Booking{ID: bid, Status: models.StatusCompleted, ActualValue: ptr(1200.0), CommissionAmount: ptr(60.0)}, nil)
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, path, map[string]any{"actual_value": 1200}))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "commission_amount", 60.0)
	})

	t.Run("second completion conflicts", func(t *testing.T) {
		svc.EXPECT().Complete(gomock.Any(), bid, 1200.0).
			Return(nil, dErrors.New(dErrors.CodeInvalidTransition, "cannot complete a COMPLETED booking"))
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, path, map[string]any{"actual_value": 1200}))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "invalid_transition")
	})

	t.Run("actual value is required", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, path, map[string]any{}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})
}

func TestHandleCancelAndDispute(t *testing.T) {
	router, svc := newBookingRouter(t)
	bid := id.NewBookingID()
	base := "/bookings/" + bid.String()

	svc.EXPECT().Cancel(gomock.Any(), bid, "customer moved").Return(&models.Booking{ID: bid, Status: models.StatusCancelled}, nil)
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, base+"/cancel", map[string]string{"reason": " customer moved "}))
	testutil.AssertJSONContains(t, rr, "status", "CANCELLED")

	svc.EXPECT().Dispute(gomock.Any(), bid, "no show").Return(&models.Booking{ID: bid, Status: models.StatusDisputed}, nil)
	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, base+"/dispute", map[string]string{"reason": "no show"}))
	testutil.AssertJSONContains(t, rr, "status", "DISPUTED")

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, base+"/dispute", map[string]string{}))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	svc.EXPECT().Start(gomock.Any(), bid).Return(nil, dErrors.New(dErrors.CodeInvalidTransition, "cannot start a DISPUTED booking"))
	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, base+"/start"))
	testutil.AssertStatus(t, rr, http.StatusConflict)
}

func TestHandleResolve(t *testing.T) {
	router, svc := newBookingRouter(t)
	bid := id.NewBookingID()
	path := "/admin/bookings/" + bid.String() + "/resolve"

	testutil.Given(t, "an admin request without an explicit reviewer", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, path, map[string]any{"outcome": "Completed", "actual_value": 800})
		req.Header.Set("X-Admin-Token", adminToken)
		req.Header.Set("X-Admin-Actor", "ops-lead")

		svc.EXPECT().ResolveDispute(gomock.Any(), bid, models.Resolution{
			Outcome: models.OutcomeCompleted, ReviewerID: "ops-lead", ActualValue: ptr(800.0),
		}).Return(&models.Booking{ID: bid, Status: models.StatusCompleted, ResolvedBy: "ops-lead"}, nil)

		rr := testutil.DoRequest(router, req)
		testutil.Then(t, "the admin actor is the reviewer", func(t *testing.T) {
			testutil.AssertStatusOK(t, rr)
			testutil.AssertJSONContains(t, rr, "resolved_by", "ops-lead")
		})
	})

	testutil.When(t, "the admin token is missing", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, path, map[string]any{"outcome": "cancelled"}))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	testutil.When(t, "the outcome is unknown", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, path, map[string]any{"outcome": "refund"})
		req.Header.Set("X-Admin-Token", adminToken)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})
}
