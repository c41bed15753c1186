// Package httptransport assembles the public HTTP surface: shared middleware,
// the versioned API routes of every module and the system endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"octopus/internal/platform/metrics"
	"octopus/internal/platform/middleware"
	"octopus/pkg/platform/httputil"
	"octopus/pkg/platform/middleware/admin"
	"octopus/pkg/platform/middleware/metadata"
	"octopus/pkg/platform/middleware/requesttime"
)

const (
	APIPrefix             = "/api/v1"
	defaultRequestTimeout = 45 * time.Second
)

// Module mounts its public routes under the API prefix.
type Module interface {
	Register(r chi.Router)
}

// AdminModule mounts operator routes behind the admin token.
type AdminModule interface {
	RegisterAdmin(r chi.Router)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Options struct {
	AdminToken     string
	RequestTimeout time.Duration
	Metrics        *metrics.Metrics
	RateLimit      func(http.Handler) http.Handler
	HealthChecks   map[string]HealthCheck
	CORSOrigins    []string
}

// NewRouter builds the chi router. Modules that also implement AdminModule
// get their admin routes mounted under /api/v1 behind the admin token.
func NewRouter(logger *slog.Logger, opts Options, modules ...Module) http.Handler {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.LatencyMiddleware(opts.Metrics))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
			MaxAge:         300,
		}))
	}
	if opts.RateLimit != nil {
		r.Use(opts.RateLimit)
	}

	r.Get("/health", healthHandler(opts.HealthChecks))
	r.Handle("/metrics", metrics.Handler())
	r.Get("/llms.txt", llmsHandler)

	r.Route(APIPrefix, func(api chi.Router) {
		api.Use(middleware.Timeout(timeout))
		api.Use(middleware.ContentTypeJSON)
		for _, m := range modules {
			m.Register(api)
		}
		api.Group(func(adm chi.Router) {
			adm.Use(admin.RequireAdminToken(opts.AdminToken, logger))
			for _, m := range modules {
				if am, ok := m.(AdminModule); ok {
					am.RegisterAdmin(adm)
				}
			}
		})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
