package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"octopus/internal/platform/metrics"
	"octopus/internal/ratelimit/models"
	"octopus/pkg/requestcontext"
)

type stubLimiter struct {
	result  *models.RateLimitResult
	err     error
	clients []string
}

func (s *stubLimiter) Check(_ context.Context, client string) (*models.RateLimitResult, error) {
	s.clients = append(s.clients, client)
	return s.result, s.err
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRateLimit(t *testing.T) {
	reset := time.Date(2025, 5, 1, 12, 1, 0, 0, time.UTC)

	t.Run("allowed requests carry headers", func(t *testing.T) {
		lim := &stubLimiter{result: &models.RateLimitResult{Allowed: true, Window: "minute", Limit: 60, Remaining: 59, ResetAt: reset}}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil)
		req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), "203.0.113.9", "curl"))

		New(lim, discard()).RateLimit(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "59", rec.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "1746100860", rec.Header().Get("X-RateLimit-Reset"))
		assert.Equal(t, []string{"203.0.113.9"}, lim.clients)
	})

	t.Run("denied requests get 429", func(t *testing.T) {
		lim := &stubLimiter{result: &models.RateLimitResult{Window: "minute", Limit: 60, ResetAt: reset, RetryAfter: 42}}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/leads/capture", nil)
		m := metrics.NewWithRegistry(prometheus.NewRegistry())

		New(lim, discard(), WithMetrics(m)).RateLimit(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "42", rec.Header().Get("Retry-After"))
		var body models.RateLimitExceededResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "rate_limited", body.Error)
		assert.Equal(t, 42, body.RetryAfter)
		assert.Equal(t, []string{"192.0.2.1"}, lim.clients, "falls back to the remote address")
		assert.InDelta(t, 1, promtest.ToFloat64(m.RateLimitRejected.WithLabelValues("minute")), 0)
	})

	t.Run("api key callers share one budget per key", func(t *testing.T) {
		lim := &stubLimiter{result: &models.RateLimitResult{Allowed: true, Window: "minute", Limit: 60, Remaining: 10, ResetAt: reset}}
		mw := New(lim, discard()).RateLimit(okHandler)
		for _, ip := range []string{"203.0.113.9", "198.51.100.20"} {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil)
			req.Header.Set(APIKeyHeader, "partner-key-1")
			req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "partner-sync"))
			mw.ServeHTTP(httptest.NewRecorder(), req)
		}
		require.Len(t, lim.clients, 2)
		assert.Equal(t, lim.clients[0], lim.clients[1])
		assert.True(t, strings.HasPrefix(lim.clients[0], "api:"))
		assert.NotContains(t, lim.clients[0], "partner-key-1")
	})

	t.Run("counter errors fail open", func(t *testing.T) {
		lim := &stubLimiter{err: errors.New("redis down")}
		rec := httptest.NewRecorder()
		New(lim, discard()).RateLimit(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("health and metrics are exempt", func(t *testing.T) {
		lim := &stubLimiter{result: &models.RateLimitResult{RetryAfter: 1}}
		mw := New(lim, discard()).RateLimit(okHandler)
		for _, path := range []string{"/health", "/metrics"} {
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
		assert.Empty(t, lim.clients)
	})

	t.Run("disabled passes through", func(t *testing.T) {
		lim := &stubLimiter{result: &models.RateLimitResult{RetryAfter: 1}}
		rec := httptest.NewRecorder()
		New(lim, discard(), WithDisabled(true)).RateLimit(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, lim.clients)
	})
}
