package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"octopus/internal/platform/metrics"
	"octopus/internal/ratelimit/models"
	"octopus/pkg/platform/httputil"
	"octopus/pkg/requestcontext"
)

type RateLimiter interface {
	Check(ctx context.Context, client string) (*models.RateLimitResult, error)
}

type Middleware struct {
	limiter  RateLimiter
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
	exempt   []string
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) { m.metrics = mt }
}

// WithExemptPaths skips limiting for requests whose path starts with any of
// the prefixes.
func WithExemptPaths(prefixes ...string) Option {
	return func(m *Middleware) {
		m.exempt = append(m.exempt, prefixes...)
	}
}

func New(limiter RateLimiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
		exempt:  []string{"/health", "/metrics"},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// APIKeyHeader identifies integration callers. Requests carrying it share one
// budget per key instead of one per address.
const APIKeyHeader = "X-API-Key"

// RateLimit limits by API key when one is presented, else by client IP.
// Counter errors fail open.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled || m.isExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		client := clientKey(r)

		result, err := m.limiter.Check(ctx, client)
		if err != nil {
			m.metrics.IncRateLimitFailOpen()
			m.logger.ErrorContext(ctx, "failed to check rate limit", "error", err, "client", client)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)

		if !result.Allowed {
			m.metrics.IncRateLimitRejected(result.Window)
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"client", client,
				"window", result.Window,
				"request_id", requestcontext.RequestID(ctx),
			)
			writeRateLimitExceeded(w, result)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) isExempt(path string) bool {
	for _, prefix := range m.exempt {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// clientKey hashes API keys so raw credentials never reach counter keys or
// logs.
func clientKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(APIKeyHeader)); key != "" {
		sum := sha256.Sum256([]byte(key))
		return "api:" + hex.EncodeToString(sum[:8])
	}
	return clientIP(r)
}

func clientIP(r *http.Request) string {
	if ip := requestcontext.ClientIP(r.Context()); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil || result.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limited",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
