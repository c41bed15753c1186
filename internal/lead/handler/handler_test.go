package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	booking "octopus/internal/booking/models"
	bookingservice "octopus/internal/booking/service"
	bookingstore "octopus/internal/booking/store"
	"octopus/internal/lead/attribution"
	"octopus/internal/lead/models"
	"octopus/internal/lead/service"
	"octopus/internal/lead/store"
	provider "octopus/internal/provider/models"
	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
	"octopus/pkg/testutil"
)

type providerTable map[id.ProviderID]*provider.Provider

func (p providerTable) Get(_ context.Context, providerID id.ProviderID) (*provider.Provider, error) {
	if found, ok := p[providerID]; ok {
		return found, nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "provider not found")
}

type fixture struct {
	router   http.Handler
	verified *provider.Provider
	low      *provider.Provider
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec, err := attribution.NewCodec("handler-secret", "https://octopus.test")
	require.NoError(t, err)

	f := &fixture{
		verified: &provider.Provider{ID: id.NewProviderID(), Status: provider.StatusVerified, TrustScore: 82},
		low:      &provider.Provider{ID: id.NewProviderID(), Status: provider.StatusPending, TrustScore: 55},
	}
	providers := providerTable{f.verified.ID: f.verified, f.low.ID: f.low}

	svc, err := service.New(store.NewInMemory(), codec, providers, bookingservice.New(bookingstore.NewInMemory()),
		service.WithCache(store.NewMemoryCache(time.Hour)))
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	f.router = r
	return f
}

func captureBody(providerID id.ProviderID) map[string]any {
	return map[string]any{
		"provider_id":       providerID.String(),
		"customer_name":     "Riley",
		"customer_phone":    "555-0100",
		"service_requested": "plumbing",
	}
}

func (f *fixture) capture(t *testing.T) *models.Lead {
	t.Helper()
	rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/leads/capture", captureBody(f.verified.ID)))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return testutil.UnmarshalResponse[models.Lead](t, rr)
}

func (f *fixture) post(t *testing.T, path string, body any) int {
	t.Helper()
	return testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, path, body)).Code
}

func TestCaptureAndFunnel(t *testing.T) {
	f := newFixture(t)

	testutil.Given(t, "a captured lead", func(t *testing.T) {
		lead := f.capture(t)
		assert.Equal(t, models.StatusCaptured, lead.Status)
		assert.NotEmpty(t, lead.SignedURL)

		testutil.When(t, "it moves through the funnel", func(t *testing.T) {
			base := "/leads/" + lead.ID.String()
			require.Equal(t, http.StatusOK, f.post(t, base+"/contacted", nil))
			require.Equal(t, http.StatusOK, f.post(t, base+"/contacted", nil))
			require.Equal(t, http.StatusOK, f.post(t, base+"/quoted", nil))

			rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, base+"/convert",
				map[string]any{"estimated_value": 900, "notes": "tuesday"}))

			testutil.Then(t, "a booking is created and the lead is booked", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusCreated)
				b := testutil.UnmarshalResponse[booking.Booking](t, rr)
				assert.Equal(t, lead.ID, b.LeadID)
				assert.Equal(t, booking.StatusRequested, b.Status)

				got := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, base))
				testutil.AssertJSONContains(t, got, "status", "BOOKED")
			})
		})
	})
}

func TestCapture_Errors(t *testing.T) {
	f := newFixture(t)

	rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/leads/capture", captureBody(f.low.ID)))
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "trust_score_too_low")

	body := captureBody(f.verified.ID)
	delete(body, "customer_phone")
	rr = testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, "/leads/capture", body))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}

func TestTransitions_Errors(t *testing.T) {
	f := newFixture(t)
	lead := f.capture(t)
	base := "/leads/" + lead.ID.String()

	rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, base+"/convert", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "invalid_transition")

	rr = testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, base+"/lost", map[string]string{}))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodPost, base+"/lost", map[string]string{"reason": "no budget"}))
	testutil.AssertJSONContains(t, rr, "status", "LOST")

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/leads/not-a-uuid"))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)

	rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/leads/"+id.NewLeadID().String()))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestVerifyAttribution(t *testing.T) {
	f := newFixture(t)
	lead := f.capture(t)

	signed, err := url.Parse(lead.SignedURL)
	require.NoError(t, err)
	path := strings.TrimPrefix(signed.Path, "/api/v1") + "?" + signed.RawQuery

	testutil.When(t, "the signed link is followed", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, path))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "VALID")
	})

	testutil.When(t, "the link is followed after it expired", func(t *testing.T) {
		req := testutil.WithTime(testutil.NewRequest(t, http.MethodGet, path), lead.CreatedAt.Add(73*time.Hour))
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusGone, "expired_attribution")
	})

	testutil.When(t, "the token is tampered with", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, path+"x"))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "invalid_signature")
	})

	testutil.When(t, "no lead matches", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/leads/attribution/"+strings.Repeat("0", 64)))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "unknown_attribution")
	})
}
