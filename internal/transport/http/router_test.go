package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"octopus/pkg/platform/httputil"
	"octopus/pkg/requestcontext"
)

type echoModule struct{}

func (echoModule) Register(r chi.Router) {
	r.Get("/echo", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
	})
}

func (echoModule) RegisterAdmin(r chi.Router) {
	r.Get("/admin/whoami", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"actor": requestcontext.ActorID(r.Context())})
	})
}

func newTestRouter(opts Options) http.Handler {
	return NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), opts, echoModule{})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicAndAdminRoutes(t *testing.T) {
	h := newTestRouter(Options{AdminToken: "s3cret"})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/echo", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/admin/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/whoami", nil)
	req.Header.Set("X-Admin-Token", "s3cret")
	req.Header.Set("X-Admin-Actor", "reviewer-7")
	rec = serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reviewer-7")
}

func TestRouter_SystemEndpoints(t *testing.T) {
	t.Run("health ok", func(t *testing.T) {
		h := newTestRouter(Options{HealthChecks: map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
		}})
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok"}}`, rec.Body.String())
	})

	t.Run("health degraded", func(t *testing.T) {
		h := newTestRouter(Options{HealthChecks: map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("dial tcp: refused") },
		}})
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"status":"degraded","checks":{"redis":"unavailable"}}`, rec.Body.String())
	})

	t.Run("llms.txt", func(t *testing.T) {
		rec := serve(newTestRouter(Options{}), httptest.NewRequest(http.MethodGet, "/llms.txt", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
		assert.Contains(t, rec.Body.String(), "/api/v1/leads/capture")
	})

	t.Run("metrics", func(t *testing.T) {
		rec := serve(newTestRouter(Options{}), httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRouter_RateLimitMiddlewareRuns(t *testing.T) {
	var seen []string
	limit := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, r.URL.Path)
			if r.URL.Path == "/api/v1/echo" {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	h := newTestRouter(Options{RateLimit: limit})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/echo", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, []string{"/api/v1/echo"}, seen)
}

func TestRouter_RejectsNonJSONBodies(t *testing.T) {
	h := newTestRouter(Options{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/echo", http.NoBody)
	req.ContentLength = 4
	req.Header.Set("Content-Type", "text/plain")
	rec := serve(h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_CORS(t *testing.T) {
	h := newTestRouter(Options{CORSOrigins: []string{"https://widget.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/echo", nil)
	req.Header.Set("Origin", "https://widget.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := serve(h, req)
	assert.Equal(t, "https://widget.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/echo", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = serve(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
